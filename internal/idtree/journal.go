package idtree

import (
	"github.com/emrgen/carbon/internal/id"
	"github.com/emrgen/carbon/internal/index"
)

// journal records the pre-draft state of everything touched since Begin.
type journal struct {
	mappers map[*index.Mapper]int
	entries map[id.ID]*entry // nil value: entry did not exist
	parents map[id.ID]parentRecord
}

type parentRecord struct {
	parent id.ID
	ok     bool
}

// Begin starts recording changes so they can be rolled back.
// Nested calls are ignored.
func (t *Tree) Begin() {
	if t.journal != nil {
		return
	}
	t.journal = &journal{
		mappers: make(map[*index.Mapper]int),
		entries: make(map[id.ID]*entry),
		parents: make(map[id.ID]parentRecord),
	}
}

// InJournal reports whether changes are being recorded.
func (t *Tree) InJournal() bool {
	return t.journal != nil
}

// Commit keeps every change since Begin.
func (t *Tree) Commit() {
	t.journal = nil
}

// Rollback restores the state recorded at Begin. Mappers are truncated to
// their earlier length, which drops every map appended since.
func (t *Tree) Rollback() {
	j := t.journal
	if j == nil {
		return
	}
	t.journal = nil

	for m, n := range j.mappers {
		m.Truncate(n)
	}
	for n, saved := range j.entries {
		if saved == nil {
			delete(t.entries, n)
			continue
		}
		restored := *saved
		t.entries[n] = &restored
	}
	for n, rec := range j.parents {
		if rec.ok {
			t.parents[n] = rec.parent
		} else {
			delete(t.parents, n)
		}
	}
}

func (t *Tree) touchMapper(m *index.Mapper) {
	if t.journal == nil {
		return
	}
	if _, ok := t.journal.mappers[m]; !ok {
		t.journal.mappers[m] = m.Len()
	}
}

func (t *Tree) touchEntry(n id.ID) {
	if t.journal == nil {
		return
	}
	if _, ok := t.journal.entries[n]; ok {
		return
	}
	e, ok := t.entries[n]
	if !ok {
		t.journal.entries[n] = nil
		return
	}
	saved := *e
	t.journal.entries[n] = &saved
}

func (t *Tree) touchParent(n id.ID) {
	if t.journal == nil {
		return
	}
	if _, ok := t.journal.parents[n]; ok {
		return
	}
	p, ok := t.parents[n]
	t.journal.parents[n] = parentRecord{parent: p, ok: ok}
}
