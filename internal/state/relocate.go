package state

import (
	"github.com/emrgen/carbon/internal/node"
	"github.com/emrgen/carbon/internal/pin"
)

// relocate moves the pins of sel that no longer resolve onto surviving
// leaves. It runs at commit, while removed subtrees are still registered.
// A pin inside a removed subtree lands on the nearest focusable leaf around
// the position the subtree was removed from; a text offset past the end of
// its leaf is clamped. When neither pin can be placed the selection is
// cleared.
func (d *Draft) relocate(sel pin.PinnedSelection) pin.PinnedSelection {
	if sel.IsZero() {
		return sel
	}
	tail, tok := d.relocatePin(sel.Tail)
	head, hok := d.relocatePin(sel.Head)
	switch {
	case tok && hok:
		return pin.PinnedSelection{Tail: tail, Head: head}
	case tok:
		return pin.Collapsed(tail)
	case hok:
		return pin.Collapsed(head)
	default:
		return pin.PinnedSelection{}
	}
}

func (d *Draft) relocatePin(p pin.Pin) (pin.Pin, bool) {
	tree := d.state.tree
	if n, ok := tree.Node(p.ID); ok && tree.Attached(n) {
		if size := n.Size(); p.Offset > size {
			p.Offset = size
		}
		return p, true
	}

	parent, index, ok := d.removalAnchor(p)
	if !ok {
		return pin.Pin{}, false
	}
	for {
		if q, ok := d.nearestLeaf(parent, index); ok {
			return q, true
		}
		gp, ok := tree.Parent(parent)
		if !ok {
			return pin.Pin{}, false
		}
		parent, index = gp, tree.Index(parent)
	}
}

// removalAnchor finds the attached container and child index where the
// removed subtree holding p used to sit.
func (d *Draft) removalAnchor(p pin.Pin) (*node.Node, int, bool) {
	tree := d.state.tree
	cur := p.ID
	for !cur.IsNull() {
		if rm, ok := d.removed[cur]; ok {
			parent, ok := tree.Node(rm.Parent)
			if !ok {
				return nil, 0, false
			}
			if tree.Attached(parent) {
				return parent, min(rm.Index, parent.ChildCount()), true
			}
			cur = rm.Parent
			continue
		}
		n, ok := tree.Node(cur)
		if !ok {
			return nil, 0, false
		}
		cur = n.ParentID()
	}
	return nil, 0, false
}

// nearestLeaf prefers the end of the closest preceding child and falls
// back to the start of the closest following one.
func (d *Draft) nearestLeaf(parent *node.Node, index int) (pin.Pin, bool) {
	r := d.state.resolver
	children := parent.Children()
	for j := index - 1; j >= 0; j-- {
		if q, err := r.Down(pin.AfterNode(children[j].ID())); err == nil {
			return d.align(q)
		}
	}
	for j := index; j < len(children); j++ {
		if q, err := r.Down(pin.BeforeNode(children[j].ID())); err == nil {
			return d.align(q)
		}
	}
	return pin.Pin{}, false
}

func (d *Draft) align(p pin.Pin) (pin.Pin, bool) {
	q, err := d.state.resolver.LeftAlign(p)
	if err != nil {
		return pin.Pin{}, false
	}
	return q, true
}
