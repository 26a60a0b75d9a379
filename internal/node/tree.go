package node

import (
	"fmt"
	"slices"

	"github.com/emrgen/carbon/internal/id"
	"github.com/emrgen/carbon/internal/idtree"
	"github.com/emrgen/carbon/internal/invariant"
	"github.com/emrgen/carbon/internal/schema"
)

// Tree owns the nodes of one document.
//
// Structural queries (Index, Path, sibling navigation) are answered by the
// idtree, so they stay cheap under bursts of small edits. A Tree is not safe
// for concurrent mutation; concurrent reads are safe while no draft is open.
type Tree struct {
	root    *Node
	nodes   map[id.ID]*Node
	ids     *idtree.Tree
	journal *journal
}

// NewTree builds a tree around root and registers its whole subtree.
func NewTree(root *Node) (*Tree, error) {
	if !root.typ.IsContainer() {
		return nil, fmt.Errorf("%w: root %s", ErrNotContainer, root.typ.Name)
	}
	t := &Tree{
		root:  root,
		nodes: make(map[id.ID]*Node),
		ids:   idtree.New(root.id),
	}
	root.parentID = id.Null
	t.nodes[root.id] = root
	seen := make(id.Set)
	for _, c := range root.children {
		if err := t.checkFresh(c, seen); err != nil {
			return nil, err
		}
	}
	for _, c := range root.children {
		t.register(c)
		t.ids.InsertAtEnd(root.id, c.id)
		c.parentID = root.id
	}
	return t, nil
}

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// Len returns the number of registered nodes, quarantined ones included.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the registered node with the given id.
func (t *Tree) Node(nodeID id.ID) (*Node, bool) {
	n, ok := t.nodes[nodeID]
	return n, ok
}

// Has reports whether nodeID is registered.
func (t *Tree) Has(nodeID id.ID) bool {
	_, ok := t.nodes[nodeID]
	return ok
}

// Attached reports whether n is reachable from the root.
func (t *Tree) Attached(n *Node) bool {
	for cur := n; ; {
		if cur == t.root {
			return true
		}
		if !t.ids.Attached(cur.id) {
			return false
		}
		p, ok := t.nodes[cur.parentID]
		if !ok {
			return false
		}
		cur = p
	}
}

// Parent returns the parent of n.
func (t *Tree) Parent(n *Node) (*Node, bool) {
	if n.parentID.IsNull() {
		return nil, false
	}
	p, ok := t.nodes[n.parentID]
	return p, ok
}

// Index returns the position of n among its siblings, or -1 if n is detached.
func (t *Tree) Index(n *Node) int {
	if n == t.root {
		return 0
	}
	if !t.ids.Has(n.id) {
		return -1
	}
	idx := t.ids.IndexOf(n.id)
	if idx < 0 {
		return -1
	}
	p, ok := t.nodes[n.parentID]
	if !ok {
		invariant.Panicf("node.Index", "parent %s of %s is not registered", n.parentID, n.id)
	}
	if idx >= len(p.children) || p.children[idx] != n {
		invariant.Panicf("node.Index", "%s resolved to index %d of %s", n.id, idx, p.id)
	}
	return idx
}

// Path returns the child indexes leading from the root to n.
func (t *Tree) Path(n *Node) ([]int, bool) {
	var path []int
	for cur := n; cur != t.root; {
		idx := t.Index(cur)
		if idx < 0 {
			return nil, false
		}
		path = append(path, idx)
		p, ok := t.Parent(cur)
		if !ok {
			return nil, false
		}
		cur = p
	}
	slices.Reverse(path)
	return path, true
}

// NextSibling returns the sibling after n.
func (t *Tree) NextSibling(n *Node) (*Node, bool) {
	p, ok := t.Parent(n)
	if !ok {
		return nil, false
	}
	return p.Child(t.Index(n) + 1)
}

// PrevSibling returns the sibling before n.
func (t *Tree) PrevSibling(n *Node) (*Node, bool) {
	p, ok := t.Parent(n)
	if !ok {
		return nil, false
	}
	idx := t.Index(n)
	if idx <= 0 {
		return nil, false
	}
	return p.Child(idx - 1)
}

// Insert places child at index among parent's children. A child that is
// not registered yet is registered together with its subtree; a registered
// child must be detached (removed earlier in the same draft, or moved).
func (t *Tree) Insert(parentID id.ID, child *Node, index int) error {
	p, ok := t.nodes[parentID]
	if !ok {
		return fmt.Errorf("%w: parent %s", ErrNotFound, parentID)
	}
	if !p.typ.IsContainer() {
		return fmt.Errorf("%w: %s", ErrNotContainer, p)
	}
	if index < 0 || index > len(p.children) {
		return fmt.Errorf("%w: %d not in [0,%d]", ErrIndexOutOfRange, index, len(p.children))
	}
	if err := t.checkInsertable(p, child, make(id.Set)); err != nil {
		return err
	}
	t.attach(p, child, index)
	return nil
}

// InsertAll places children consecutively starting at index. Every child
// is validated before the first one is attached, so a failure leaves the
// tree untouched.
func (t *Tree) InsertAll(parentID id.ID, index int, children []*Node) error {
	p, ok := t.nodes[parentID]
	if !ok {
		return fmt.Errorf("%w: parent %s", ErrNotFound, parentID)
	}
	if !p.typ.IsContainer() {
		return fmt.Errorf("%w: %s", ErrNotContainer, p)
	}
	if index < 0 || index > len(p.children) {
		return fmt.Errorf("%w: %d not in [0,%d]", ErrIndexOutOfRange, index, len(p.children))
	}
	seen := make(id.Set)
	for _, c := range children {
		if err := t.checkInsertable(p, c, seen); err != nil {
			return err
		}
	}
	for i, c := range children {
		t.attach(p, c, index+i)
	}
	return nil
}

// InsertBefore places child immediately before ref.
func (t *Tree) InsertBefore(refID id.ID, child *Node) error {
	ref, p, err := t.attachedWithParent(refID)
	if err != nil {
		return err
	}
	return t.Insert(p.id, child, t.Index(ref))
}

// InsertAfter places child immediately after ref.
func (t *Tree) InsertAfter(refID id.ID, child *Node) error {
	ref, p, err := t.attachedWithParent(refID)
	if err != nil {
		return err
	}
	return t.Insert(p.id, child, t.Index(ref)+1)
}

// Remove detaches a node from its parent. The node and its subtree stay
// registered until Unregister, so the removal can be undone.
func (t *Tree) Remove(nodeID id.ID) (parent *Node, index int, err error) {
	n, p, err := t.attachedWithParent(nodeID)
	if err != nil {
		return nil, -1, err
	}
	idx := t.Index(n)
	t.detach(p, n, idx)
	return p, idx, nil
}

// ReplaceChildren swaps the children of n for children and returns the
// previous ones, detached but still registered.
func (t *Tree) ReplaceChildren(nodeID id.ID, children []*Node) ([]*Node, error) {
	n, ok := t.nodes[nodeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, nodeID)
	}
	if !n.typ.IsContainer() {
		return nil, fmt.Errorf("%w: %s", ErrNotContainer, n)
	}
	seen := make(id.Set)
	for _, c := range children {
		if c.parentID == n.id && t.nodes[c.id] == c && t.ids.Attached(c.id) {
			if seen.Has(c.id) {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateID, c.id)
			}
			seen.Add(c.id)
			continue
		}
		if err := t.checkInsertable(n, c, seen); err != nil {
			return nil, err
		}
	}

	old := n.Children()
	for i := len(old) - 1; i >= 0; i-- {
		t.detach(n, old[i], i)
	}
	for i, c := range children {
		t.attach(n, c, i)
	}
	return old, nil
}

// Unregister drops a detached subtree from the tree for good.
func (t *Tree) Unregister(n *Node) {
	if t.nodes[n.id] != n {
		return
	}
	if t.ids.Attached(n.id) {
		invariant.Panicf("node.Unregister", "%s is still attached", n.id)
	}
	t.ids.Forget(n.id)
	Preorder(n, func(c *Node) bool {
		if c != n {
			t.ids.Drop(c.id)
		}
		t.deleteNode(c.id)
		return true
	}, nil)
}

// SetText replaces the text of a text node.
func (t *Tree) SetText(n *Node, text string) error {
	if !n.IsText() {
		return fmt.Errorf("%w: %s", ErrNotText, n)
	}
	t.touch(n)
	n.text = text
	return nil
}

// SetProps replaces the attributes of n.
func (t *Tree) SetProps(n *Node, props Props) {
	t.touch(n)
	n.props = props
}

// SetType changes the type of n. Text nodes stay text nodes, and a node
// with children must stay a container.
func (t *Tree) SetType(n *Node, typ *schema.NodeType) error {
	if typ.IsText() != n.typ.IsText() {
		return fmt.Errorf("%w: %s to %s", ErrTypeMismatch, n.typ.Name, typ.Name)
	}
	if len(n.children) > 0 && !typ.IsContainer() {
		return fmt.Errorf("%w: %s has children, %s is not a container", ErrTypeMismatch, n, typ.Name)
	}
	t.touch(n)
	n.typ = typ
	return nil
}

// SetState sets or clears a state flag on n.
func (t *Tree) SetState(n *Node, flag State, on bool) {
	t.touch(n)
	if on {
		n.state |= flag
	} else {
		n.state &^= flag
	}
}

// MapperLen returns the length of n's child mapper.
func (t *Tree) MapperLen(n *Node) int {
	return t.ids.MapperLen(n.id)
}

// Compact rebases the child mapper of n. It does nothing while a journal
// is open and reports whether it ran.
func (t *Tree) Compact(n *Node) bool {
	childIDs := make([]id.ID, len(n.children))
	for i, c := range n.children {
		childIDs[i] = c.id
	}
	return t.ids.Compact(n.id, childIDs)
}

func (t *Tree) attachedWithParent(nodeID id.ID) (*Node, *Node, error) {
	n, ok := t.nodes[nodeID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, nodeID)
	}
	if n == t.root {
		return nil, nil, ErrRootImmutable
	}
	if !t.ids.Attached(nodeID) {
		return nil, nil, fmt.Errorf("%w: %s", ErrDetached, nodeID)
	}
	p, ok := t.nodes[n.parentID]
	if !ok {
		invariant.Panicf("node.Tree", "parent %s of %s is not registered", n.parentID, nodeID)
	}
	return n, p, nil
}

// checkInsertable validates child for insertion under p without mutating.
func (t *Tree) checkInsertable(p, child *Node, seen id.Set) error {
	if child == t.root || child.id == t.root.id {
		return ErrRootImmutable
	}
	known, ok := t.nodes[child.id]
	if !ok {
		return t.checkFresh(child, seen)
	}
	if known != child {
		return fmt.Errorf("%w: %s", ErrDuplicateID, child.id)
	}
	if t.ids.Attached(child.id) {
		return fmt.Errorf("%w: %s", ErrAttached, child.id)
	}
	if seen.Has(child.id) {
		return fmt.Errorf("%w: %s", ErrDuplicateID, child.id)
	}
	seen.Add(child.id)
	for a := p; a != nil; {
		if a == child {
			return fmt.Errorf("%w: %s into %s", ErrCycle, child.id, p.id)
		}
		next, ok := t.Parent(a)
		if !ok {
			break
		}
		a = next
	}
	return nil
}

// checkFresh verifies that no id in an unregistered subtree is taken.
func (t *Tree) checkFresh(sub *Node, seen id.Set) error {
	var err error
	Preorder(sub, func(c *Node) bool {
		if c.id.IsNull() || c.id.IsReserved() {
			err = fmt.Errorf("%w: reserved id %q", ErrInvalidDescriptor, c.id)
			return false
		}
		if t.Has(c.id) || seen.Has(c.id) {
			err = fmt.Errorf("%w: %s", ErrDuplicateID, c.id)
			return false
		}
		if len(c.children) > 0 && !c.typ.IsContainer() {
			err = fmt.Errorf("%w: %s", ErrNotContainer, c)
			return false
		}
		seen.Add(c.id)
		return true
	}, nil)
	return err
}

// register adds an unregistered subtree to the id table and idtree.
// The subtree root stays detached.
func (t *Tree) register(sub *Node) {
	t.ids.Ensure(sub.id)
	Preorder(sub, func(n *Node) bool {
		t.setNode(n)
		for _, c := range n.children {
			t.touch(c)
			c.parentID = n.id
			t.ids.InsertAtEnd(n.id, c.id)
		}
		return true
	}, nil)
}

func (t *Tree) attach(p, child *Node, index int) {
	if !t.Has(child.id) {
		t.register(child)
	}
	t.touch(p)
	t.touch(child)
	t.ids.InsertAt(p.id, child.id, index)
	p.children = slices.Insert(p.children, index, child)
	child.parentID = p.id
}

func (t *Tree) detach(p, n *Node, index int) {
	t.touch(p)
	t.touch(n)
	t.ids.Remove(n.id)
	p.children = slices.Delete(p.children, index, index+1)
	n.parentID = id.Null
}
