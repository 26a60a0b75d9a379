package pin

import "github.com/emrgen/carbon/internal/node"

// Focus is a pin bound to a resolver for character navigation.
type Focus struct {
	r   *Resolver
	pin Pin
}

// NewFocus returns a focus at p, normalized and left-aligned.
func NewFocus(r *Resolver, p Pin) (Focus, error) {
	p, err := r.LeftAlign(p)
	if err != nil {
		return Focus{}, err
	}
	return Focus{r: r, pin: p}, nil
}

// Pin returns the current pin.
func (f Focus) Pin() Pin { return f.pin }

// Node returns the focused leaf.
func (f Focus) Node() (*node.Node, error) { return f.r.Leaf(f.pin) }

// MoveBy returns the focus moved by count positions.
func (f Focus) MoveBy(count int) (Focus, error) {
	p, err := f.r.MoveBy(f.pin, count)
	if err != nil {
		return Focus{}, err
	}
	return Focus{r: f.r, pin: p}, nil
}

// Up returns the structural point of the focus.
func (f Focus) Up() (Point, error) { return f.r.Up(f.pin) }
