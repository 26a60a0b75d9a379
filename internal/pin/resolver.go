package pin

import (
	"fmt"

	"github.com/emrgen/carbon/internal/node"
)

// Resolver answers position queries against a tree. It holds no state of
// its own, so it stays valid across drafts.
type Resolver struct {
	tree *node.Tree
}

// NewResolver creates a resolver for t.
func NewResolver(t *node.Tree) *Resolver {
	return &Resolver{tree: t}
}

// Tree returns the resolved tree.
func (r *Resolver) Tree() *node.Tree { return r.tree }

// Leaf returns the leaf a pin refers to, checking its offset.
func (r *Resolver) Leaf(p Pin) (*node.Node, error) {
	n, ok := r.tree.Node(p.ID)
	if !ok || !r.tree.Attached(n) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, p.ID)
	}
	if !n.IsFocusableLeaf() {
		return nil, fmt.Errorf("%w: %s", ErrNotFocusable, n)
	}
	if p.Offset < 0 || p.Offset > n.Size() {
		return nil, fmt.Errorf("%w: %s not in [0,%d]", ErrOffsetOutOfRange, p, n.Size())
	}
	return n, nil
}

// IsMarker reports whether n is an empty placeholder flanking an atom.
func (r *Resolver) IsMarker(n *node.Node) bool {
	if !n.Type().IsEmpty() || !n.IsFocusableLeaf() {
		return false
	}
	if s, ok := r.tree.PrevSibling(n); ok && s.Type().IsAtom() {
		return true
	}
	if s, ok := r.tree.NextSibling(n); ok && s.Type().IsAtom() {
		return true
	}
	return false
}

// navigable reports whether leaf iteration stops at n.
func (r *Resolver) navigable(n *node.Node) bool {
	return n.IsFocusableLeaf() && !r.IsMarker(n)
}

// NextLeaf returns the navigable leaf after n in document order.
func (r *Resolver) NextLeaf(n *node.Node) (*node.Node, bool) {
	return r.tree.Next(n, r.navigable, node.NextOptions{})
}

// PrevLeaf returns the navigable leaf before n in document order.
func (r *Resolver) PrevLeaf(n *node.Node) (*node.Node, bool) {
	return r.tree.Prev(n, r.navigable, node.NextOptions{})
}

// FirstLeaf returns the first navigable leaf of n's subtree.
func (r *Resolver) FirstLeaf(n *node.Node) (*node.Node, bool) {
	return node.First(n, r.navigable, nil)
}

// LastLeaf returns the last navigable leaf of n's subtree.
func (r *Resolver) LastLeaf(n *node.Node) (*node.Node, bool) {
	return node.Last(n, r.navigable, nil)
}

// Block returns the nearest block ancestor of n.
func (r *Resolver) Block(n *node.Node) (*node.Node, bool) {
	for cur, ok := r.tree.Parent(n); ok; cur, ok = r.tree.Parent(cur) {
		if cur.Type().IsBlock() {
			return cur, true
		}
	}
	return nil, false
}

// Joined reports whether the end of a and the start of b, adjacent leaves,
// are the same position.
func (r *Resolver) Joined(a, b *node.Node) bool {
	if !a.Type().IsInline() || !b.Type().IsInline() {
		return false
	}
	if a.Size() == 0 || b.Size() == 0 {
		return false
	}
	ba, ok := r.Block(a)
	if !ok {
		return false
	}
	bb, ok := r.Block(b)
	return ok && ba == bb
}

// Normalize validates p and moves it off a marker onto the atom beside it.
func (r *Resolver) Normalize(p Pin) (Pin, error) {
	n, ok := r.tree.Node(p.ID)
	if ok && r.tree.Attached(n) && r.IsMarker(n) {
		if s, ok := r.tree.NextSibling(n); ok && s.Type().IsAtom() {
			p = Pin{ID: s.ID(), Offset: 0}
		} else if s, ok := r.tree.PrevSibling(n); ok {
			p = Pin{ID: s.ID(), Offset: s.Size()}
		}
	}
	if _, err := r.Leaf(p); err != nil {
		return Pin{}, err
	}
	return p, nil
}

// LeftAlign resolves a joined boundary to the end of the earlier leaf.
func (r *Resolver) LeftAlign(p Pin) (Pin, error) {
	p, err := r.Normalize(p)
	if err != nil {
		return Pin{}, err
	}
	if p.Offset != 0 {
		return p, nil
	}
	n, _ := r.tree.Node(p.ID)
	if prev, ok := r.PrevLeaf(n); ok && r.Joined(prev, n) {
		return Pin{ID: prev.ID(), Offset: prev.Size()}, nil
	}
	return p, nil
}

// RightAlign resolves a joined boundary to the start of the later leaf.
func (r *Resolver) RightAlign(p Pin) (Pin, error) {
	p, err := r.Normalize(p)
	if err != nil {
		return Pin{}, err
	}
	n, _ := r.tree.Node(p.ID)
	if p.Offset != n.Size() {
		return p, nil
	}
	if next, ok := r.NextLeaf(n); ok && r.Joined(n, next) {
		return Pin{ID: next.ID(), Offset: 0}, nil
	}
	return p, nil
}

// MoveBy moves p by count positions, backwards when count is negative.
// Text is consumed character by character, joined boundaries are free and
// any other leaf crossing costs one position. When the document ends first
// the last reachable pin is returned. The result is left-aligned.
func (r *Resolver) MoveBy(p Pin, count int) (Pin, error) {
	p, err := r.LeftAlign(p)
	if err != nil {
		return Pin{}, err
	}
	leaf, _ := r.tree.Node(p.ID)
	off := p.Offset

	if count >= 0 {
		for remaining := count; remaining > 0; {
			if size := leaf.Size(); off < size {
				step := min(remaining, size-off)
				off += step
				remaining -= step
				continue
			}
			next, ok := r.NextLeaf(leaf)
			if !ok {
				break
			}
			if !r.Joined(leaf, next) {
				remaining--
			}
			leaf, off = next, 0
		}
	} else {
		for remaining := -count; remaining > 0; {
			if off > 0 {
				step := min(remaining, off)
				off -= step
				remaining -= step
				continue
			}
			prev, ok := r.PrevLeaf(leaf)
			if !ok {
				break
			}
			if !r.Joined(prev, leaf) {
				remaining--
			}
			leaf, off = prev, prev.Size()
		}
	}
	return r.LeftAlign(Pin{ID: leaf.ID(), Offset: off})
}

// Down converts a structural point into a leaf pin.
func (r *Resolver) Down(pt Point) (Pin, error) {
	n, ok := r.tree.Node(pt.ID)
	if !ok {
		return Pin{}, fmt.Errorf("%w: %s", ErrUnknownNode, pt.ID)
	}
	switch pt.Placement {
	case Within:
		if n.IsFocusableLeaf() {
			return r.Normalize(Pin{ID: n.ID(), Offset: pt.Offset})
		}
		if pt.Offset < 0 || pt.Offset > n.ChildCount() {
			return Pin{}, fmt.Errorf("%w: child index %d of %s", ErrInvalidPoint, pt.Offset, n)
		}
		if c, ok := n.Child(pt.Offset); ok {
			return r.Down(StartOf(c.ID()))
		}
		return r.Down(EndOf(n.ID()))
	case Before, Start:
		return r.edge(n, true)
	case After, End:
		return r.edge(n, false)
	default:
		return Pin{}, fmt.Errorf("%w: placement %s", ErrInvalidPoint, pt.Placement)
	}
}

func (r *Resolver) edge(n *node.Node, start bool) (Pin, error) {
	leaf := n
	if !n.IsFocusableLeaf() {
		var ok bool
		if start {
			leaf, ok = r.FirstLeaf(n)
		} else {
			leaf, ok = r.LastLeaf(n)
		}
		if !ok {
			return Pin{}, fmt.Errorf("%w: in %s", ErrNoFocusableLeaf, n)
		}
	}
	if start {
		return r.Normalize(Pin{ID: leaf.ID(), Offset: 0})
	}
	return r.Normalize(Pin{ID: leaf.ID(), Offset: leaf.Size()})
}

// Up converts a leaf pin into the outermost structural point that Down
// maps back onto the same pin.
func (r *Resolver) Up(p Pin) (Point, error) {
	p, err := r.Normalize(p)
	if err != nil {
		return Point{}, err
	}
	n, _ := r.tree.Node(p.ID)
	size := n.Size()
	if p.Offset > 0 && p.Offset < size {
		return WithinNode(n.ID(), p.Offset), nil
	}

	atStart := p.Offset == 0
	top := n
	for {
		parent, ok := r.tree.Parent(top)
		if !ok || parent == r.tree.Root() {
			break
		}
		var edge *node.Node
		if atStart {
			edge, ok = r.FirstLeaf(parent)
		} else {
			edge, ok = r.LastLeaf(parent)
		}
		if !ok || edge != n {
			break
		}
		top = parent
	}
	switch {
	case top == n && atStart:
		return BeforeNode(n.ID()), nil
	case top == n:
		return AfterNode(n.ID()), nil
	case atStart:
		return StartOf(top.ID()), nil
	default:
		return EndOf(top.ID()), nil
	}
}

// Compare orders two pins in the document: -1, 0 or 1. Pins on either side
// of a joined boundary compare equal.
func (r *Resolver) Compare(a, b Pin) (int, error) {
	a, err := r.LeftAlign(a)
	if err != nil {
		return 0, err
	}
	b, err = r.LeftAlign(b)
	if err != nil {
		return 0, err
	}
	if a.ID == b.ID {
		return cmpInt(a.Offset, b.Offset), nil
	}
	na, _ := r.tree.Node(a.ID)
	nb, _ := r.tree.Node(b.ID)
	pa, ok := r.tree.Path(na)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownNode, a.ID)
	}
	pb, ok := r.tree.Path(nb)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownNode, b.ID)
	}
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if c := cmpInt(pa[i], pb[i]); c != 0 {
			return c, nil
		}
	}
	return cmpInt(len(pa), len(pb)), nil
}

// Leaves returns the navigable leaves from a's leaf through b's leaf.
func (r *Resolver) Leaves(a, b Pin) ([]*node.Node, error) {
	from, err := r.Leaf(a)
	if err != nil {
		return nil, err
	}
	to, err := r.Leaf(b)
	if err != nil {
		return nil, err
	}
	out := []*node.Node{from}
	for cur := from; cur != to; {
		next, ok := r.NextLeaf(cur)
		if !ok {
			break
		}
		out = append(out, next)
		cur = next
	}
	return out, nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
