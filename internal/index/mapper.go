package index

import (
	"github.com/emrgen/carbon/internal/invariant"
)

// Mapper is an append-only log of IndexMaps.
//
// Maps already in the log are never modified, so concurrent readers are safe
// while no writer is appending. A Mapper is not safe for concurrent writes.
type Mapper struct {
	maps []*IndexMap
}

// NewMapper creates an empty mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// Len returns the number of maps in the log.
func (mp *Mapper) Len() int {
	return len(mp.maps)
}

// At returns the map at offset i.
func (mp *Mapper) At(i int) *IndexMap {
	return mp.maps[i]
}

// Last returns the newest map, or nil for an empty mapper.
func (mp *Mapper) Last() *IndexMap {
	if len(mp.maps) == 0 {
		return nil
	}
	return mp.maps[len(mp.maps)-1]
}

// Add appends m, records its offset and returns it.
// Adding a map that already belongs to a mapper is an invariant violation.
func (mp *Mapper) Add(m *IndexMap) *IndexMap {
	if m.offset >= 0 {
		invariant.Panicf("index.Add", "%s already attached", m)
	}
	m.offset = len(mp.maps)
	mp.maps = append(mp.maps, m)
	return m
}

// Map converts index, recorded as of ref, into its current value by
// composing every map appended after ref in append order.
func (mp *Mapper) Map(ref *IndexMap, index int) int {
	mp.check(ref, "index.Map")
	for i := ref.offset + 1; i < len(mp.maps); i++ {
		index = mp.maps[i].Map(index)
	}
	return index
}

// Unmap converts a current index back to its value as of ref by undoing
// every map appended after ref, newest first.
func (mp *Mapper) Unmap(ref *IndexMap, index int) int {
	mp.check(ref, "index.Unmap")
	for i := len(mp.maps) - 1; i > ref.offset; i-- {
		index = mp.maps[i].Unmap(index)
	}
	return index
}

// MapAll converts an index recorded before any map in the log.
func (mp *Mapper) MapAll(index int) int {
	for _, m := range mp.maps {
		index = m.Map(index)
	}
	return index
}

// Take splits off the first count maps into a new mapper and keeps the
// remainder, renumbering their offsets from zero. The taken maps keep their
// offsets relative to the returned mapper.
func (mp *Mapper) Take(count int) *Mapper {
	if count < 0 {
		count = 0
	}
	if count > len(mp.maps) {
		count = len(mp.maps)
	}
	head := &Mapper{maps: append([]*IndexMap(nil), mp.maps[:count]...)}
	rest := append([]*IndexMap(nil), mp.maps[count:]...)
	for i, m := range rest {
		m.offset = i
	}
	mp.maps = rest
	return head
}

// Truncate drops every map at offset >= n. Dropped maps become unattached.
// Used to roll back edits appended during an aborted draft.
func (mp *Mapper) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n >= len(mp.maps) {
		return
	}
	for _, m := range mp.maps[n:] {
		m.offset = -1
	}
	mp.maps = mp.maps[:n]
}

// check panics when ref is not part of this mapper.
func (mp *Mapper) check(ref *IndexMap, op string) {
	if ref == nil {
		invariant.Panicf(op, "nil mapper reference")
	}
	if ref.offset < 0 || ref.offset >= len(mp.maps) || mp.maps[ref.offset] != ref {
		invariant.Panicf(op, "%s is not part of this mapper", ref)
	}
}
