// Package index records how edits shift positions within an ordered sequence.
//
// Inserting or removing k elements at position p must not force every other
// entity that cached its position to be renumbered. Instead each edit is
// appended to a Mapper as an immutable IndexMap, and an entity resolves its
// current position by composing the maps appended after the map it was last
// pinned to:
//
//	m := index.NewMapper()
//	a := m.Add(index.MustNew(0, 0, index.Insert)) // a lands at 0
//	m.Add(index.MustNew(0, 0, index.Insert))      // something inserted before a
//	m.Map(a, a.Start())                           // 1
//
// Resolution costs O(edits since ref), not O(sequence length).
package index
