package view

import (
	"sync"
	"testing"

	"github.com/emrgen/carbon/internal/id"
	"github.com/emrgen/carbon/internal/node"
	"github.com/emrgen/carbon/internal/schema"
)

func TestStore(t *testing.T) {
	s := NewStore()
	p := node.New("p1", schema.Default().MustType("paragraph"))
	type handle struct{ name string }

	if _, ok := s.Get("p1"); ok {
		t.Fatal("empty store returned a handle")
	}
	s.Register(p, &handle{"first"})
	s.Register(p, &handle{"second"})
	h, ok := s.Get("p1")
	if !ok || h.(*handle).name != "second" {
		t.Errorf("Get = %v, %v", h, ok)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d", s.Len())
	}

	s.Delete(p)
	if _, ok := s.Get("p1"); ok {
		t.Error("handle survived Delete")
	}
}

func TestPrune(t *testing.T) {
	s := NewStore()
	typ := schema.Default().MustType("paragraph")
	for _, nodeID := range []id.ID{"a", "b", "c"} {
		s.Register(node.New(nodeID, typ), nodeID)
	}
	if got := s.Prune([]id.ID{"a", "c", "z"}); got != 2 {
		t.Errorf("Prune = %d", got)
	}
	if _, ok := s.Get("b"); !ok || s.Len() != 1 {
		t.Errorf("b missing or len %d", s.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStore()
	typ := schema.Default().MustType("paragraph")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n := node.New(id.ID(string(rune('a'+i))), typ)
			s.Register(n, i)
			_, _ = s.Get(n.ID())
			s.DeleteID(n.ID())
		}(i)
	}
	wg.Wait()
	if s.Len() != 0 {
		t.Errorf("Len = %d", s.Len())
	}
}
