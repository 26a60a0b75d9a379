package pin

import "github.com/emrgen/carbon/internal/node"

// Select builds a selection from two pins, normalized and left-aligned.
func (r *Resolver) Select(tail, head Pin) (PinnedSelection, error) {
	t, err := r.LeftAlign(tail)
	if err != nil {
		return PinnedSelection{}, err
	}
	h, err := r.LeftAlign(head)
	if err != nil {
		return PinnedSelection{}, err
	}
	return PinnedSelection{Tail: t, Head: h}, nil
}

// IsForward reports whether the tail is at or before the head.
func (s PinnedSelection) IsForward(r *Resolver) (bool, error) {
	c, err := r.Compare(s.Tail, s.Head)
	if err != nil {
		return false, err
	}
	return c <= 0, nil
}

// Range returns the ends of s in document order.
func (s PinnedSelection) Range(r *Resolver) (start, end Pin, err error) {
	fwd, err := s.IsForward(r)
	if err != nil {
		return Pin{}, Pin{}, err
	}
	if fwd {
		return s.Tail, s.Head, nil
	}
	return s.Head, s.Tail, nil
}

// Blocks returns the blocks the selection touches, in document order.
func (s PinnedSelection) Blocks(r *Resolver) ([]*node.Node, error) {
	start, end, err := s.Range(r)
	if err != nil {
		return nil, err
	}
	leaves, err := r.Leaves(start, end)
	if err != nil {
		return nil, err
	}
	var out []*node.Node
	seen := make(map[*node.Node]bool)
	for _, l := range leaves {
		b := l
		if !l.Type().IsBlock() {
			var ok bool
			if b, ok = r.Block(l); !ok {
				continue
			}
		}
		if !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	return out, nil
}
