package index

import (
	"errors"
	"math/rand"
	"testing"
)

func TestNewRejectsInvalid(t *testing.T) {
	if _, err := New(3, 2, Insert); !errors.Is(err, ErrInvalidMap) {
		t.Errorf("start > end: err = %v, want ErrInvalidMap", err)
	}
	if _, err := New(0, 0, Op(2)); !errors.Is(err, ErrInvalidMap) {
		t.Errorf("bad op: err = %v, want ErrInvalidMap", err)
	}
}

func TestIndexMapMap(t *testing.T) {
	ins := MustNew(2, 4, Insert)
	del := MustNew(2, 4, Delete)

	tests := []struct {
		name  string
		m     *IndexMap
		index int
		want  int
	}{
		{"insert before span", ins, 1, 1},
		{"insert at start", ins, 2, 5},
		{"insert after", ins, 7, 10},
		{"delete before span", del, 1, 1},
		{"delete after", del, 7, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.Map(tt.index); got != tt.want {
				t.Errorf("Map(%d) = %d, want %d", tt.index, got, tt.want)
			}
		})
	}
}

func TestIndexMapUnmap(t *testing.T) {
	ins := MustNew(2, 4, Insert)
	del := MustNew(2, 4, Delete)

	tests := []struct {
		name  string
		m     *IndexMap
		index int
		want  int
	}{
		{"insert before span", ins, 1, 1},
		{"insert inside span", ins, 3, 3},
		{"insert after span", ins, 5, 2},
		{"delete before span", del, 1, 1},
		{"delete at start", del, 2, 5},
		{"delete after", del, 4, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.Unmap(tt.index); got != tt.want {
				t.Errorf("Unmap(%d) = %d, want %d", tt.index, got, tt.want)
			}
		})
	}
}

func TestMapperComposesAfterRef(t *testing.T) {
	mp := NewMapper()
	a := mp.Add(MustNew(0, 0, Insert))
	if got := mp.Map(a, a.Start()); got != 0 {
		t.Fatalf("fresh ref maps to %d, want 0", got)
	}
	mp.Add(MustNew(0, 0, Insert)) // before a
	mp.Add(MustNew(5, 5, Insert)) // after a
	if got := mp.Map(a, 0); got != 1 {
		t.Errorf("Map = %d, want 1", got)
	}
	mp.Add(MustNew(0, 0, Delete))
	if got := mp.Map(a, 0); got != 0 {
		t.Errorf("Map after delete = %d, want 0", got)
	}
}

func TestMapperForeignRefPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for foreign ref")
		}
	}()
	a := NewMapper()
	b := NewMapper()
	ref := a.Add(MustNew(0, 0, Insert))
	b.Add(MustNew(0, 0, Insert))
	b.Map(ref, 0)
}

func TestMapperAddTwicePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic when re-adding a map")
		}
	}()
	mp := NewMapper()
	m := mp.Add(MustNew(0, 0, Insert))
	mp.Add(m)
}

// TestMapperRoundTrip simulates random edits over a real slice and checks
// that every survivor's mapped index matches its actual position, and that
// Unmap recovers the original index.
func TestMapperRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		seq := make([]int, 20)
		for i := range seq {
			seq[i] = i
		}
		next := len(seq)

		mp := NewMapper()
		ref := mp.Add(MustNew(0, len(seq)-1, Insert))

		for step := 0; step < 30; step++ {
			if len(seq) > 0 && rng.Intn(2) == 0 {
				start := rng.Intn(len(seq))
				end := start + rng.Intn(3)
				if end >= len(seq) {
					end = len(seq) - 1
				}
				seq = append(seq[:start], seq[end+1:]...)
				mp.Add(MustNew(start, end, Delete))
			} else {
				start := rng.Intn(len(seq) + 1)
				n := 1 + rng.Intn(3)
				ins := make([]int, n)
				for i := range ins {
					ins[i] = next
					next++
				}
				seq = append(seq[:start], append(ins, seq[start:]...)...)
				mp.Add(MustNew(start, start+n-1, Insert))
			}
		}

		for cur, v := range seq {
			if v >= 20 {
				continue
			}
			if got := mp.Map(ref, v); got != cur {
				t.Fatalf("round %d: Map(%d) = %d, want %d", round, v, got, cur)
			}
			if got := mp.Unmap(ref, cur); got != v {
				t.Fatalf("round %d: Unmap(%d) = %d, want %d", round, cur, got, v)
			}
		}
	}
}

func TestMapperTake(t *testing.T) {
	mp := NewMapper()
	for i := 0; i < 5; i++ {
		mp.Add(MustNew(i, i, Insert))
	}
	third := mp.At(2)
	head := mp.Take(2)
	if head.Len() != 2 || mp.Len() != 3 {
		t.Fatalf("Take split %d/%d, want 2/3", head.Len(), mp.Len())
	}
	if third.Offset() != 0 {
		t.Errorf("remaining map offset = %d, want 0", third.Offset())
	}
	if got := mp.Map(third, 5); got != 7 {
		t.Errorf("Map after Take = %d, want 7", got)
	}
	if head.At(1).Offset() != 1 {
		t.Errorf("taken map offset = %d, want 1", head.At(1).Offset())
	}
}

func TestMapperTruncate(t *testing.T) {
	mp := NewMapper()
	ref := mp.Add(MustNew(0, 0, Insert))
	dropped := mp.Add(MustNew(0, 0, Insert))
	mp.Truncate(1)
	if mp.Len() != 1 {
		t.Fatalf("Len = %d, want 1", mp.Len())
	}
	if dropped.Offset() != -1 {
		t.Error("dropped map should be unattached")
	}
	if got := mp.Map(ref, 0); got != 0 {
		t.Errorf("Map after truncate = %d, want 0", got)
	}
	// A dropped map may be attached again.
	mp.Add(dropped)
	if dropped.Offset() != 1 {
		t.Errorf("re-added offset = %d, want 1", dropped.Offset())
	}
}
