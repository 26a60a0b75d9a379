package node

import "github.com/emrgen/carbon/internal/id"

// journal records what a draft changed so Rollback can restore it.
type journal struct {
	snapshots map[*Node]Snapshot
	nodes     map[id.ID]*Node // nil value: id was not registered
}

// Begin starts journaling mutations. Nested calls are ignored.
func (t *Tree) Begin() {
	if t.journal != nil {
		return
	}
	t.journal = &journal{
		snapshots: make(map[*Node]Snapshot),
		nodes:     make(map[id.ID]*Node),
	}
	t.ids.Begin()
}

// InJournal reports whether a journal is open.
func (t *Tree) InJournal() bool {
	return t.journal != nil
}

// Commit keeps every mutation since Begin.
func (t *Tree) Commit() {
	t.journal = nil
	t.ids.Commit()
}

// Rollback restores nodes, the id table and sibling positions to their
// state at Begin.
func (t *Tree) Rollback() {
	j := t.journal
	if j == nil {
		return
	}
	t.journal = nil
	for nodeID, n := range j.nodes {
		if n == nil {
			delete(t.nodes, nodeID)
		} else {
			t.nodes[nodeID] = n
		}
	}
	for n, s := range j.snapshots {
		n.restore(s)
	}
	t.ids.Rollback()
}

// Touched returns the nodes modified since Begin.
func (t *Tree) Touched() []*Node {
	if t.journal == nil {
		return nil
	}
	out := make([]*Node, 0, len(t.journal.snapshots))
	for n := range t.journal.snapshots {
		out = append(out, n)
	}
	return out
}

func (t *Tree) touch(n *Node) {
	if t.journal == nil {
		return
	}
	if _, ok := t.journal.snapshots[n]; !ok {
		t.journal.snapshots[n] = n.snapshot()
	}
}

func (t *Tree) recordID(nodeID id.ID) {
	if t.journal == nil {
		return
	}
	if _, ok := t.journal.nodes[nodeID]; !ok {
		t.journal.nodes[nodeID] = t.nodes[nodeID]
	}
}

func (t *Tree) setNode(n *Node) {
	t.recordID(n.id)
	t.nodes[n.id] = n
}

func (t *Tree) deleteNode(nodeID id.ID) {
	t.recordID(nodeID)
	delete(t.nodes, nodeID)
}
