package index

import (
	"errors"
	"fmt"
)

// Op is the direction of an edit.
type Op int

const (
	// Delete removes the mapped span.
	Delete Op = -1
	// Insert adds the mapped span.
	Insert Op = 1
)

// String returns "insert" or "delete".
func (o Op) String() string {
	switch o {
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// ErrInvalidMap indicates a map with start > end or an unknown op.
var ErrInvalidMap = errors.New("invalid index map")

// IndexMap is one edit's footprint on the inclusive range [start, end].
// It is immutable once created; only its offset in the owning Mapper is
// assigned when it is added.
type IndexMap struct {
	start  int
	end    int
	op     Op
	offset int
}

// New creates an IndexMap covering [start, end].
func New(start, end int, op Op) (*IndexMap, error) {
	if start > end {
		return nil, fmt.Errorf("%w: start %d > end %d", ErrInvalidMap, start, end)
	}
	if op != Insert && op != Delete {
		return nil, fmt.Errorf("%w: op %d", ErrInvalidMap, op)
	}
	return &IndexMap{start: start, end: end, op: op, offset: -1}, nil
}

// MustNew is like New but panics on invalid input.
func MustNew(start, end int, op Op) *IndexMap {
	m, err := New(start, end, op)
	if err != nil {
		panic(err)
	}
	return m
}

// Start returns the first index of the span.
func (m *IndexMap) Start() int { return m.start }

// End returns the last index of the span.
func (m *IndexMap) End() int { return m.end }

// Op returns the direction.
func (m *IndexMap) Op() Op { return m.op }

// Len returns end - start + 1.
func (m *IndexMap) Len() int { return m.end - m.start + 1 }

// Offset returns the map's position in its mapper, or -1 if unattached.
func (m *IndexMap) Offset() int { return m.offset }

// Map converts an index recorded before this edit into the index after it.
// Indexes before the span are unchanged; everything at or after start shifts.
func (m *IndexMap) Map(index int) int {
	if index < m.start {
		return index
	}
	return index + int(m.op)*m.Len()
}

// Unmap converts an index after this edit back to the index before it.
// An index inside an inserted span has no earlier position and is returned
// unchanged.
func (m *IndexMap) Unmap(index int) int {
	if index < m.start {
		return index
	}
	if m.op == Insert && index <= m.end {
		return index
	}
	return index - int(m.op)*m.Len()
}

// String returns a debug representation.
func (m *IndexMap) String() string {
	sign := "+"
	if m.op == Delete {
		sign = "-"
	}
	return fmt.Sprintf("IndexMap(%s[%d,%d]@%d)", sign, m.start, m.end, m.offset)
}
