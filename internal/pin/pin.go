package pin

import (
	"encoding/json"
	"fmt"

	"github.com/emrgen/carbon/internal/id"
)

// Placement describes where a Point sits relative to its node.
type Placement uint8

const (
	Within Placement = iota
	Before
	After
	Start
	End
)

var placementNames = [...]string{"within", "before", "after", "start", "end"}

// String returns the placement name.
func (p Placement) String() string {
	if int(p) < len(placementNames) {
		return placementNames[p]
	}
	return fmt.Sprintf("placement(%d)", uint8(p))
}

// ParsePlacement parses a placement name.
func ParsePlacement(s string) (Placement, error) {
	for i, name := range placementNames {
		if name == s {
			return Placement(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown placement %q", ErrInvalidPoint, s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Placement) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Placement) UnmarshalText(data []byte) error {
	parsed, err := ParsePlacement(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Point is a structural position. Offset is used with Within only: a child
// index for containers, a leaf offset for focusable leaves.
type Point struct {
	ID        id.ID     `json:"id"`
	Placement Placement `json:"placement"`
	Offset    int       `json:"offset,omitempty"`
}

// BeforeNode returns the point before n.
func BeforeNode(n id.ID) Point { return Point{ID: n, Placement: Before} }

// AfterNode returns the point after n.
func AfterNode(n id.ID) Point { return Point{ID: n, Placement: After} }

// StartOf returns the point at the start of n's content.
func StartOf(n id.ID) Point { return Point{ID: n, Placement: Start} }

// EndOf returns the point at the end of n's content.
func EndOf(n id.ID) Point { return Point{ID: n, Placement: End} }

// WithinNode returns the point at offset inside n.
func WithinNode(n id.ID, offset int) Point {
	return Point{ID: n, Placement: Within, Offset: offset}
}

// String returns a short debug form.
func (p Point) String() string {
	if p.Placement == Within {
		return fmt.Sprintf("%s(%s,%d)", p.Placement, p.ID, p.Offset)
	}
	return fmt.Sprintf("%s(%s)", p.Placement, p.ID)
}

// Pin is a leaf position: a focusable leaf and an offset inside it.
type Pin struct {
	ID     id.ID `json:"id"`
	Offset int   `json:"offset"`
}

// At returns a pin.
func At(n id.ID, offset int) Pin { return Pin{ID: n, Offset: offset} }

// IsZero reports whether p is the zero pin.
func (p Pin) IsZero() bool { return p.ID.IsNull() }

// String returns "id@offset".
func (p Pin) String() string {
	return fmt.Sprintf("%s@%d", p.ID, p.Offset)
}

// PinnedSelection is a directional pair of pins. Tail is the anchor and
// Head the moving end.
type PinnedSelection struct {
	Tail Pin `json:"tail"`
	Head Pin `json:"head"`
}

// Collapsed returns a selection with both ends at p.
func Collapsed(p Pin) PinnedSelection {
	return PinnedSelection{Tail: p, Head: p}
}

// IsZero reports whether there is no selection.
func (s PinnedSelection) IsZero() bool {
	return s.Tail.IsZero() && s.Head.IsZero()
}

// IsCollapsed reports whether tail and head are the same pin.
func (s PinnedSelection) IsCollapsed() bool {
	return s.Tail == s.Head
}

// Collapse returns the selection collapsed onto its head.
func (s PinnedSelection) Collapse() PinnedSelection {
	return Collapsed(s.Head)
}

// String returns "tail..head".
func (s PinnedSelection) String() string {
	if s.IsZero() {
		return "none"
	}
	return fmt.Sprintf("%s..%s", s.Tail, s.Head)
}

// MarshalJSON encodes the zero selection as null.
func (s PinnedSelection) MarshalJSON() ([]byte, error) {
	if s.IsZero() {
		return []byte("null"), nil
	}
	type wire PinnedSelection
	return json.Marshal(wire(s))
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *PinnedSelection) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = PinnedSelection{}
		return nil
	}
	type wire PinnedSelection
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = PinnedSelection(w)
	return nil
}
