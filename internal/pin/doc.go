// Package pin resolves cursor positions in the content tree.
//
// Two kinds of position exist. A Point is structural: before, after, at the
// start or end of, or within a node. A Pin is down-aligned: a focusable leaf
// and an offset inside it. Text leaves have offsets 0..len measured in
// grapheme clusters, atoms and voids 0..1, empty placeholders only 0.
//
// Adjacent inline leaves inside the same block are joined: the end of the
// first and the start of the second are the same position, so moving across
// that boundary costs nothing. Every other leaf boundary costs one position.
// A pin sitting on a joined boundary is ambiguous; LeftAlign and RightAlign
// pick a side. MoveBy always returns left-aligned pins.
//
// An empty placeholder next to an atom is a marker. Markers are skipped by
// leaf iteration, and Normalize redirects a pin on a marker to the atom.
package pin
