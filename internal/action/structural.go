package action

import (
	"fmt"

	"github.com/emrgen/carbon/internal/id"
	"github.com/emrgen/carbon/internal/node"
	"github.com/emrgen/carbon/internal/pin"
	"github.com/emrgen/carbon/internal/state"
)

// resolveInsertion turns a point into a parent and child index.
// Within, Start and End address the children of the point's node; Before
// and After address its siblings.
func resolveInsertion(d *state.Draft, at pin.Point) (id.ID, int, error) {
	n, ok := d.Lookup(at.ID)
	if !ok {
		return id.Null, 0, fmt.Errorf("%w: %s", state.ErrNodeNotFound, at.ID)
	}
	switch at.Placement {
	case pin.Within:
		return n.ID(), at.Offset, nil
	case pin.Start:
		return n.ID(), 0, nil
	case pin.End:
		return n.ID(), n.ChildCount(), nil
	case pin.Before, pin.After:
		p, ok := d.Tree().Parent(n)
		if !ok {
			return id.Null, 0, fmt.Errorf("%w: %s has no siblings", ErrInvalidTarget, at.ID)
		}
		idx := d.Tree().Index(n)
		if at.Placement == pin.After {
			idx++
		}
		return p.ID(), idx, nil
	default:
		return id.Null, 0, fmt.Errorf("%w: placement %s", ErrInvalidTarget, at.Placement)
	}
}

// Insert adds nodes at a point.
type Insert struct {
	meta
	At    pin.Point
	Nodes []*node.Node

	done bool
}

// NewInsert returns an action inserting nodes at at.
func NewInsert(at pin.Point, nodes ...*node.Node) *Insert {
	return &Insert{At: at, Nodes: nodes}
}

// Kind implements Action.
func (a *Insert) Kind() Kind { return KindInsert }

// Execute implements Action. The value is the inserted ids.
func (a *Insert) Execute(d *state.Draft) Result {
	if len(a.Nodes) == 0 {
		return Noop()
	}
	parent, idx, err := resolveInsertion(d, a.At)
	if err != nil {
		return Failf("insert: %w", err)
	}
	if err := d.Insert(parent, idx, a.Nodes...); err != nil {
		return Failf("insert: %w", err)
	}
	a.done = true
	ids := make([]id.ID, len(a.Nodes))
	for i, n := range a.Nodes {
		ids[i] = n.ID()
	}
	return OK(ids)
}

// Inverse implements Action.
func (a *Insert) Inverse() Action {
	if !a.done {
		return nil
	}
	if len(a.Nodes) == 1 {
		return inherit(a, NewRemove(a.Nodes[0].ID()))
	}
	removes := make([]Action, 0, len(a.Nodes))
	for i := len(a.Nodes) - 1; i >= 0; i-- {
		removes = append(removes, inherit(a, NewRemove(a.Nodes[i].ID())))
	}
	return inherit(a, NewBatch(removes...))
}

// Remove detaches a node.
type Remove struct {
	meta
	ID id.ID

	removal *state.Removal
}

// NewRemove returns an action removing the node nodeID.
func NewRemove(nodeID id.ID) *Remove {
	return &Remove{ID: nodeID}
}

// Kind implements Action.
func (a *Remove) Kind() Kind { return KindRemove }

// Execute implements Action. The value is the removed node.
func (a *Remove) Execute(d *state.Draft) Result {
	r, err := d.Remove(a.ID)
	if err != nil {
		return Failf("remove: %w", err)
	}
	a.removal = &r
	return OK(r.Node)
}

// Inverse implements Action.
func (a *Remove) Inverse() Action {
	if a.removal == nil {
		return nil
	}
	return inherit(a, NewInsert(pin.WithinNode(a.removal.Parent, a.removal.Index), a.removal.Node))
}

// Move relocates a node, keeping the node and its subtree.
type Move struct {
	meta
	ID id.ID
	To pin.Point

	from *state.Removal
}

// NewMove returns an action moving nodeID to the point to.
func NewMove(nodeID id.ID, to pin.Point) *Move {
	return &Move{ID: nodeID, To: to}
}

// Kind implements Action.
func (a *Move) Kind() Kind { return KindMove }

// Execute implements Action.
func (a *Move) Execute(d *state.Draft) Result {
	n, ok := d.Lookup(a.ID)
	if !ok {
		return Failf("move: %w: %s", state.ErrNodeNotFound, a.ID)
	}
	target, ok := d.Lookup(a.To.ID)
	if !ok {
		return Failf("move: %w: %s", state.ErrNodeNotFound, a.To.ID)
	}
	if target == n {
		return Failf("move: %w: %s relative to itself", ErrInvalidTarget, a.ID)
	}
	for cur, ok := d.Tree().Parent(target); ok; cur, ok = d.Tree().Parent(cur) {
		if cur == n {
			return Failf("move: %w", node.ErrCycle)
		}
	}

	r, err := d.Remove(a.ID)
	if err != nil {
		return Failf("move: %w", err)
	}
	parent, idx, err := resolveInsertion(d, a.To)
	if err == nil {
		err = d.Insert(parent, idx, n)
	}
	if err != nil {
		if rerr := d.Insert(r.Parent, r.Index, n); rerr != nil {
			return Failf("move: %w (restore failed: %v)", err, rerr)
		}
		return Failf("move: %w", err)
	}
	a.from = &r
	return OK(n.ID())
}

// Inverse implements Action.
func (a *Move) Inverse() Action {
	if a.from == nil {
		return nil
	}
	return inherit(a, NewMove(a.ID, pin.WithinNode(a.from.Parent, a.from.Index)))
}
