package id

import "sort"

// Set is an unordered collection of identifiers.
type Set map[ID]struct{}

// NewSet creates a set holding ids.
func NewSet(ids ...ID) Set {
	s := make(Set, len(ids))
	for _, i := range ids {
		s[i] = struct{}{}
	}
	return s
}

// Has reports whether i is in the set.
func (s Set) Has(i ID) bool {
	_, ok := s[i]
	return ok
}

// Add inserts i.
func (s Set) Add(i ID) {
	s[i] = struct{}{}
}

// Remove deletes i.
func (s Set) Remove(i ID) {
	delete(s, i)
}

// Clone returns a copy of the set.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for i := range s {
		c[i] = struct{}{}
	}
	return c
}

// Sorted returns the members in identifier order.
func (s Set) Sorted() []ID {
	out := make([]ID, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// Diff compares s (before) with next (after).
// added holds ids only in next, removed holds ids only in s; both sorted.
func (s Set) Diff(next Set) (added, removed []ID) {
	for i := range next {
		if !s.Has(i) {
			added = append(added, i)
		}
	}
	for i := range s {
		if !next.Has(i) {
			removed = append(removed, i)
		}
	}
	sort.Slice(added, func(a, b int) bool { return added[a] < added[b] })
	sort.Slice(removed, func(a, b int) bool { return removed[a] < removed[b] })
	return added, removed
}

// Equal reports whether both sets hold the same ids.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if !other.Has(i) {
			return false
		}
	}
	return true
}
