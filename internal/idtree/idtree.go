// Package idtree keeps per-parent sibling order for a tree of identifiers.
//
// Every node owns an index.Mapper describing the ordering edits applied to
// its children. A child remembers only the IndexMap that placed it (its
// slot); its current index is the slot composed through the maps appended to
// the parent's mapper since. Inserting or removing a child appends one map and
// never renumbers siblings, so positions stay cheap under bursts of
// keystroke-sized edits.
//
// The tree holds positions only. The ordered child lists themselves live in
// the node tree that owns this structure.
package idtree

import (
	"github.com/emrgen/carbon/internal/id"
	"github.com/emrgen/carbon/internal/index"
	"github.com/emrgen/carbon/internal/invariant"
)

// entry is the bookkeeping for one node.
type entry struct {
	slot    *index.IndexMap // placement within the parent's mapper
	mapper  *index.Mapper   // ordering of this node's own children
	size    int             // number of attached children
	removed bool            // detached from its parent, slot shadowed
}

// Tree maps identifiers to sibling positions.
// A Tree is not safe for concurrent use.
type Tree struct {
	root       id.ID
	rootMapper *index.Mapper
	entries    map[id.ID]*entry
	parents    map[id.ID]id.ID
	journal    *journal
}

// New creates a tree whose root is seeded with an identity mapper, so
// IndexOf(root) is always 0.
func New(root id.ID) *Tree {
	rm := index.NewMapper()
	slot := rm.Add(index.MustNew(0, 0, index.Insert))
	t := &Tree{
		root:       root,
		rootMapper: rm,
		entries:    make(map[id.ID]*entry),
		parents:    make(map[id.ID]id.ID),
	}
	t.entries[root] = &entry{slot: slot, mapper: index.NewMapper()}
	return t
}

// Root returns the root identifier.
func (t *Tree) Root() id.ID {
	return t.root
}

// Has reports whether n has an entry, attached or not.
func (t *Tree) Has(n id.ID) bool {
	_, ok := t.entries[n]
	return ok
}

// Attached reports whether n is the root or currently has a parent.
func (t *Tree) Attached(n id.ID) bool {
	if n == t.root {
		return true
	}
	e, ok := t.entries[n]
	return ok && !e.removed
}

// Parent returns the parent of n.
func (t *Tree) Parent(n id.ID) (id.ID, bool) {
	p, ok := t.parents[n]
	return p, ok
}

// Size returns the number of attached children of n.
func (t *Tree) Size(n id.ID) int {
	return t.mustEntry(n, "idtree.Size").size
}

// MapperLen returns the length of n's child mapper.
func (t *Tree) MapperLen(n id.ID) int {
	return t.mustEntry(n, "idtree.MapperLen").mapper.Len()
}

// Ensure creates an empty entry for a detached node if it has none.
// New nodes get their entry on first insert; Ensure lets a detached subtree
// root receive children before it is attached.
func (t *Tree) Ensure(n id.ID) {
	if _, ok := t.entries[n]; ok {
		return
	}
	t.touchEntry(n)
	t.entries[n] = &entry{mapper: index.NewMapper(), removed: true}
}

// IndexOf returns the current index of n among its siblings.
// Returns -1 for a detached node.
func (t *Tree) IndexOf(n id.ID) int {
	e := t.mustEntry(n, "idtree.IndexOf")
	if n == t.root {
		return t.rootMapper.Map(e.slot, e.slot.Start())
	}
	if e.removed {
		return -1
	}
	p := t.mustParent(n, "idtree.IndexOf")
	pe := t.mustEntry(p, "idtree.IndexOf")
	return pe.mapper.Map(e.slot, e.slot.Start())
}

// InsertAt places child at index among parent's children.
func (t *Tree) InsertAt(parent, child id.ID, idx int) {
	pe := t.mustEntry(parent, "idtree.InsertAt")
	if idx < 0 || idx > pe.size {
		invariant.Panicf("idtree.InsertAt", "index %d out of range [0,%d] for %s", idx, pe.size, parent)
	}
	if child == t.root {
		invariant.Panicf("idtree.InsertAt", "cannot insert root %s", child)
	}
	e, exists := t.entries[child]
	if exists && !e.removed {
		invariant.Panicf("idtree.InsertAt", "%s is already attached to %s", child, t.parents[child])
	}

	t.touchMapper(pe.mapper)
	t.touchEntry(parent)
	t.touchEntry(child)
	t.touchParent(child)

	slot := pe.mapper.Add(index.MustNew(idx, idx, index.Insert))
	if exists {
		e.slot = slot
		e.removed = false
	} else {
		t.entries[child] = &entry{slot: slot, mapper: index.NewMapper()}
	}
	t.parents[child] = parent
	pe.size++
}

// InsertAtStart makes child the first child of parent.
func (t *Tree) InsertAtStart(parent, child id.ID) {
	t.InsertAt(parent, child, 0)
}

// InsertAtEnd makes child the last child of parent.
func (t *Tree) InsertAtEnd(parent, child id.ID) {
	t.InsertAt(parent, child, t.mustEntry(parent, "idtree.InsertAtEnd").size)
}

// InsertBefore places child immediately before ref.
func (t *Tree) InsertBefore(ref, child id.ID) {
	p := t.mustParent(ref, "idtree.InsertBefore")
	t.InsertAt(p, child, t.IndexOf(ref))
}

// InsertAfter places child immediately after ref.
func (t *Tree) InsertAfter(ref, child id.ID) {
	p := t.mustParent(ref, "idtree.InsertAfter")
	t.InsertAt(p, child, t.IndexOf(ref)+1)
}

// Remove detaches n from its parent. The slot is shadowed by a deletion map;
// n keeps its entry (and its own children's ordering) so it can be
// re-inserted elsewhere.
func (t *Tree) Remove(n id.ID) {
	if n == t.root {
		invariant.Panicf("idtree.Remove", "cannot remove root %s", n)
	}
	e := t.mustEntry(n, "idtree.Remove")
	if e.removed {
		invariant.Panicf("idtree.Remove", "%s is not attached", n)
	}
	p := t.mustParent(n, "idtree.Remove")
	pe := t.mustEntry(p, "idtree.Remove")
	idx := pe.mapper.Map(e.slot, e.slot.Start())

	t.touchMapper(pe.mapper)
	t.touchEntry(p)
	t.touchEntry(n)
	t.touchParent(n)

	pe.mapper.Add(index.MustNew(idx, idx, index.Delete))
	e.removed = true
	delete(t.parents, n)
	pe.size--
}

// Forget drops the entry of a detached node permanently.
func (t *Tree) Forget(n id.ID) {
	e, ok := t.entries[n]
	if !ok {
		return
	}
	if !e.removed || n == t.root {
		invariant.Panicf("idtree.Forget", "%s is still attached", n)
	}
	t.touchEntry(n)
	delete(t.entries, n)
}

// Drop deletes the entry of n whether or not it is attached, together with
// its parent record. It is used when a whole subtree leaves the document:
// the subtree root is forgotten and every descendant dropped.
func (t *Tree) Drop(n id.ID) {
	if n == t.root {
		invariant.Panicf("idtree.Drop", "cannot drop root %s", n)
	}
	if _, ok := t.entries[n]; !ok {
		return
	}
	t.touchEntry(n)
	t.touchParent(n)
	delete(t.entries, n)
	delete(t.parents, n)
}

// Compact rebuilds parent's mapper from its ordered children so the log
// length drops back to the child count. children must list every attached
// child of parent in order. Compaction is skipped inside a journal because
// rollback relies on truncating mappers; it reports whether it ran.
func (t *Tree) Compact(parent id.ID, children []id.ID) bool {
	if t.journal != nil {
		return false
	}
	pe := t.mustEntry(parent, "idtree.Compact")
	if len(children) != pe.size {
		invariant.Panicf("idtree.Compact", "%s has %d children, got %d", parent, pe.size, len(children))
	}
	for _, c := range children {
		if p, ok := t.parents[c]; !ok || p != parent {
			invariant.Panicf("idtree.Compact", "%s is not a child of %s", c, parent)
		}
	}
	pe.mapper.Take(pe.mapper.Len())
	for i, c := range children {
		t.entries[c].slot = pe.mapper.Add(index.MustNew(i, i, index.Insert))
	}
	return true
}

func (t *Tree) mustEntry(n id.ID, op string) *entry {
	e, ok := t.entries[n]
	if !ok {
		invariant.Panicf(op, "no entry for %s", n)
	}
	return e
}

func (t *Tree) mustParent(n id.ID, op string) id.ID {
	p, ok := t.parents[n]
	if !ok {
		invariant.Panicf(op, "no parent entry for %s", n)
	}
	return p
}
