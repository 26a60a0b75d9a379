package state

import (
	"fmt"
	"slices"

	"github.com/emrgen/carbon/internal/id"
	"github.com/emrgen/carbon/internal/node"
	"github.com/emrgen/carbon/internal/pin"
	"github.com/emrgen/carbon/internal/schema"
)

// Removal records where a removed node was.
type Removal struct {
	Node   *node.Node
	Parent id.ID
	Index  int
}

// Draft is the mutation facade of one transaction.
type Draft struct {
	state  *State
	origin Origin
	closed bool

	changes map[id.ID]*node.Node // nodes updated in place
	added   map[id.ID]*node.Node // inserted subtree roots
	deleted map[id.ID]*node.Node // quarantined subtree roots
	removed map[id.ID]Removal    // last position of each removed subtree root
	born    id.Set               // ids registered by this draft
	queue   []id.ID              // pending normalize

	selectionBefore pin.PinnedSelection
	selectedBefore  id.Set
	activatedBefore id.Set
}

func newDraft(s *State, origin Origin) *Draft {
	return &Draft{
		state:           s,
		origin:          origin,
		changes:         make(map[id.ID]*node.Node),
		added:           make(map[id.ID]*node.Node),
		deleted:         make(map[id.ID]*node.Node),
		removed:         make(map[id.ID]Removal),
		born:            make(id.Set),
		selectionBefore: s.selection,
		selectedBefore:  s.selectedNodes.Clone(),
		activatedBefore: s.activatedNodes.Clone(),
	}
}

// Origin returns the origin the draft was opened with.
func (d *Draft) Origin() Origin { return d.origin }

// Tree returns the live tree.
func (d *Draft) Tree() *node.Tree { return d.state.tree }

// Schema returns the state's schema.
func (d *Draft) Schema() *schema.Schema { return d.state.schema }

// Generator returns the state's identifier generator.
func (d *Draft) Generator() *id.Generator { return d.state.gen }

// Resolver returns a resolver over the live tree.
func (d *Draft) Resolver() *pin.Resolver { return d.state.resolver }

// Closed reports whether the draft has been committed or rolled back.
func (d *Draft) Closed() bool { return d.closed }

// Lookup returns an attached node.
func (d *Draft) Lookup(nodeID id.ID) (*node.Node, bool) {
	return d.state.Node(nodeID)
}

func (d *Draft) lookup(nodeID id.ID) (*node.Node, error) {
	if d.closed {
		return nil, ErrDraftClosed
	}
	n, ok := d.state.Node(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	return n, nil
}

func (d *Draft) touched(n *node.Node) {
	d.changes[n.ID()] = n
}

// Insert places nodes consecutively under parent starting at index.
func (d *Draft) Insert(parentID id.ID, index int, nodes ...*node.Node) error {
	p, err := d.lookup(parentID)
	if err != nil {
		return err
	}
	tree := d.state.tree
	fresh := make([]bool, len(nodes))
	for i, n := range nodes {
		fresh[i] = !tree.Has(n.ID())
	}
	if err := tree.InsertAll(p.ID(), index, nodes); err != nil {
		return err
	}
	d.touched(p)
	for i, n := range nodes {
		if fresh[i] {
			node.Preorder(n, func(c *node.Node) bool {
				d.born.Add(c.ID())
				return true
			}, nil)
		}
		if _, ok := d.deleted[n.ID()]; ok && !d.born.Has(n.ID()) {
			delete(d.deleted, n.ID())
			d.touched(n)
			continue
		}
		delete(d.deleted, n.ID())
		d.added[n.ID()] = n
	}
	return nil
}

// InsertBefore places nodes immediately before ref.
func (d *Draft) InsertBefore(refID id.ID, nodes ...*node.Node) error {
	ref, err := d.lookup(refID)
	if err != nil {
		return err
	}
	p, ok := d.state.tree.Parent(ref)
	if !ok {
		return fmt.Errorf("%w: %s has no parent", node.ErrRootImmutable, refID)
	}
	return d.Insert(p.ID(), d.state.tree.Index(ref), nodes...)
}

// InsertAfter places nodes immediately after ref.
func (d *Draft) InsertAfter(refID id.ID, nodes ...*node.Node) error {
	ref, err := d.lookup(refID)
	if err != nil {
		return err
	}
	p, ok := d.state.tree.Parent(ref)
	if !ok {
		return fmt.Errorf("%w: %s has no parent", node.ErrRootImmutable, refID)
	}
	return d.Insert(p.ID(), d.state.tree.Index(ref)+1, nodes...)
}

// Remove detaches a node and quarantines it until commit. The parent is
// queued for normalization.
func (d *Draft) Remove(nodeID id.ID) (Removal, error) {
	n, err := d.lookup(nodeID)
	if err != nil {
		return Removal{}, err
	}
	p, idx, err := d.state.tree.Remove(n.ID())
	if err != nil {
		return Removal{}, err
	}
	d.touched(p)
	delete(d.added, n.ID())
	d.deleted[n.ID()] = n
	d.queue = append(d.queue, p.ID())
	rm := Removal{Node: n, Parent: p.ID(), Index: idx}
	d.removed[n.ID()] = rm
	return rm, nil
}

// SetText replaces the text of a text node and returns the old text.
func (d *Draft) SetText(nodeID id.ID, text string) (string, error) {
	n, err := d.lookup(nodeID)
	if err != nil {
		return "", err
	}
	old := n.Text()
	if err := d.state.tree.SetText(n, text); err != nil {
		return "", err
	}
	d.touched(n)
	return old, nil
}

// SetProps replaces the attributes of a node and returns the old ones.
func (d *Draft) SetProps(nodeID id.ID, props node.Props) (node.Props, error) {
	n, err := d.lookup(nodeID)
	if err != nil {
		return node.Props{}, err
	}
	old := n.Props()
	d.state.tree.SetProps(n, props)
	d.touched(n)
	return old, nil
}

// UpdateProps merges patch into a node's attributes and returns the patch
// that undoes it.
func (d *Draft) UpdateProps(nodeID id.ID, patch node.Props) (node.Props, error) {
	n, err := d.lookup(nodeID)
	if err != nil {
		return node.Props{}, err
	}
	undo, err := n.Props().Reverse(patch)
	if err != nil {
		return node.Props{}, err
	}
	merged, err := n.Props().Merge(patch)
	if err != nil {
		return node.Props{}, err
	}
	d.state.tree.SetProps(n, merged)
	d.touched(n)
	return undo, nil
}

// SetType changes a node's type by name and returns the old name.
func (d *Draft) SetType(nodeID id.ID, name string) (string, error) {
	n, err := d.lookup(nodeID)
	if err != nil {
		return "", err
	}
	typ, err := d.state.schema.Type(name)
	if err != nil {
		return "", err
	}
	old := n.Name()
	if err := d.state.tree.SetType(n, typ); err != nil {
		return "", err
	}
	d.touched(n)
	return old, nil
}

// ReplaceChildren swaps a node's children and returns the old ones, which
// are quarantined unless they reappear among the new children.
func (d *Draft) ReplaceChildren(nodeID id.ID, children []*node.Node) ([]*node.Node, error) {
	n, err := d.lookup(nodeID)
	if err != nil {
		return nil, err
	}
	tree := d.state.tree
	fresh := make([]bool, len(children))
	for i, c := range children {
		fresh[i] = !tree.Has(c.ID())
	}
	old, err := tree.ReplaceChildren(n.ID(), children)
	if err != nil {
		return nil, err
	}
	d.touched(n)
	kept := make(id.Set)
	for i, c := range children {
		kept.Add(c.ID())
		if fresh[i] {
			node.Preorder(c, func(x *node.Node) bool {
				d.born.Add(x.ID())
				return true
			}, nil)
			d.added[c.ID()] = c
		}
	}
	for i, c := range old {
		if !kept.Has(c.ID()) {
			delete(d.added, c.ID())
			d.deleted[c.ID()] = c
			d.removed[c.ID()] = Removal{Node: c, Parent: n.ID(), Index: i}
		}
	}
	return old, nil
}

// Selection returns the current pin selection.
func (d *Draft) Selection() pin.PinnedSelection { return d.state.selection }

// SelectedNodes returns a copy of the selected node set.
func (d *Draft) SelectedNodes() id.Set { return d.state.selectedNodes.Clone() }

// ActivatedNodes returns a copy of the activated node set.
func (d *Draft) ActivatedNodes() id.Set { return d.state.activatedNodes.Clone() }

// Select replaces the pin selection and returns the previous one. Both
// pins are normalized; the zero selection clears it.
func (d *Draft) Select(sel pin.PinnedSelection) (pin.PinnedSelection, error) {
	if d.closed {
		return pin.PinnedSelection{}, ErrDraftClosed
	}
	if !sel.IsZero() {
		var err error
		if sel, err = d.state.resolver.Select(sel.Tail, sel.Head); err != nil {
			return pin.PinnedSelection{}, err
		}
	}
	before := d.state.selection
	d.state.selection = sel
	return before, nil
}

// SelectNodes replaces the selected node set and returns the difference.
// Nodes already selected are left alone.
func (d *Draft) SelectNodes(ids []id.ID) (Diff, error) {
	return d.setNodeState(ids, node.Selected, &d.state.selectedNodes)
}

// ActivateNodes replaces the activated node set and returns the difference.
func (d *Draft) ActivateNodes(ids []id.ID) (Diff, error) {
	return d.setNodeState(ids, node.Active, &d.state.activatedNodes)
}

func (d *Draft) setNodeState(ids []id.ID, flag node.State, set *id.Set) (Diff, error) {
	if d.closed {
		return Diff{}, ErrDraftClosed
	}
	for _, nodeID := range ids {
		if _, err := d.lookup(nodeID); err != nil {
			return Diff{}, err
		}
	}
	next := id.NewSet(ids...)
	added, removed := set.Diff(next)
	for _, nodeID := range added {
		n, _ := d.state.tree.Node(nodeID)
		d.state.tree.SetState(n, flag, true)
	}
	for _, nodeID := range removed {
		if n, ok := d.state.tree.Node(nodeID); ok {
			d.state.tree.SetState(n, flag, false)
		}
	}
	*set = next
	return Diff{Added: added, Removed: removed}, nil
}

// Normalize queues a node for the normalize pass.
func (d *Draft) Normalize(nodeID id.ID) {
	d.queue = append(d.queue, nodeID)
}

// Commit runs the normalize pass, keeps every change, purges quarantined
// nodes and compacts long child mappers.
func (d *Draft) Commit() (Summary, error) {
	if d.closed {
		return Summary{}, ErrDraftClosed
	}
	s := d.state
	if s.normalizer != nil {
		seen := make(id.Set)
		for len(d.queue) > 0 {
			nodeID := d.queue[0]
			d.queue = d.queue[1:]
			if seen.Has(nodeID) {
				continue
			}
			seen.Add(nodeID)
			n, ok := d.Lookup(nodeID)
			if !ok {
				continue
			}
			if err := s.normalizer(d, n); err != nil {
				d.Rollback()
				return Summary{}, fmt.Errorf("%w: %s: %v", ErrNormalize, nodeID, err)
			}
		}
	}

	s.selection = d.relocate(s.selection)

	sum := Summary{
		Version: s.last.Version + 1,
		Origin:  d.origin,
		Changes: d.changeSet(),
	}
	s.tree.Commit()

	for _, n := range d.deleted {
		if s.tree.Attached(n) {
			continue
		}
		node.Preorder(n, func(c *node.Node) bool {
			s.selectedNodes.Remove(c.ID())
			s.activatedNodes.Remove(c.ID())
			return true
		}, nil)
		s.tree.Unregister(n)
	}

	if s.compactThreshold > 0 {
		for _, n := range d.changes {
			if !n.Type().IsContainer() || !s.tree.Has(n.ID()) || !s.tree.Attached(n) {
				continue
			}
			if s.tree.MapperLen(n) > s.compactThreshold && s.tree.Compact(n) {
				sum.Compacted = append(sum.Compacted, n.ID())
			}
		}
		slices.Sort(sum.Compacted)
	}

	sum.ContentChanged = !sum.Changes.IsEmpty()
	sum.Selection = SelectionChange{Before: d.selectionBefore, After: s.selection, Origin: d.origin}
	sum.SelectionChanged = d.selectionBefore != s.selection
	sel, desel := d.selectedBefore.Diff(s.selectedNodes)
	act, deact := d.activatedBefore.Diff(s.activatedNodes)
	sum.Nodes = NodeStateChange{Selected: sel, Deselected: desel, Activated: act, Deactivated: deact}

	s.last = sum
	s.draft = nil
	d.closed = true

	if sum.SelectionChanged && s.onSelect != nil {
		s.onSelect(sum.Selection.Before, sum.Selection.After, d.origin)
	}
	return sum, nil
}

// Rollback discards every change made through the draft.
func (d *Draft) Rollback() {
	if d.closed {
		return
	}
	s := d.state
	s.tree.Rollback()
	s.selection = d.selectionBefore
	s.selectedNodes = d.selectedBefore
	s.activatedNodes = d.activatedBefore
	s.draft = nil
	d.closed = true
}

// changeSet is computed before the quarantine is purged, while removed
// subtrees can still be walked.
func (d *Draft) changeSet() ChangeSet {
	tree := d.state.tree
	inserted := make(id.Set)
	for _, n := range d.added {
		if !tree.Attached(n) {
			continue
		}
		node.Preorder(n, func(c *node.Node) bool {
			inserted.Add(c.ID())
			return true
		}, nil)
	}
	removed := make(id.Set)
	for _, n := range d.deleted {
		if tree.Attached(n) {
			continue
		}
		node.Preorder(n, func(c *node.Node) bool {
			if !d.born.Has(c.ID()) {
				removed.Add(c.ID())
			}
			return true
		}, nil)
	}
	updated := make(id.Set)
	for nodeID, n := range d.changes {
		if !inserted.Has(nodeID) && !removed.Has(nodeID) && tree.Attached(n) {
			updated.Add(nodeID)
		}
	}
	return ChangeSet{
		Inserted: inserted.Sorted(),
		Updated:  updated.Sorted(),
		Removed:  removed.Sorted(),
	}
}
