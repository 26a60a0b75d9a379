// Package view keeps the association between tree nodes and the handles
// of whatever renders them.
//
// The store is keyed by node identifier and never looks inside a handle,
// so renderers can register any value they like. Handles are not owned:
// deleting an entry does not release the handle.
package view

import (
	"sync"

	"github.com/emrgen/carbon/internal/id"
	"github.com/emrgen/carbon/internal/node"
)

// Store maps node identifiers to view handles.
// It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	handles map[id.ID]any
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{handles: make(map[id.ID]any)}
}

// Register associates handle with n, replacing any previous handle.
func (s *Store) Register(n *node.Node, handle any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handles[n.ID()] = handle
}

// Delete forgets the handle of n.
func (s *Store) Delete(n *node.Node) {
	s.DeleteID(n.ID())
}

// DeleteID forgets the handle registered for nodeID.
func (s *Store) DeleteID(nodeID id.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handles, nodeID)
}

// Get returns the handle registered for nodeID.
func (s *Store) Get(nodeID id.ID) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handles[nodeID]
	return h, ok
}

// Len returns the number of registered handles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handles)
}

// Prune drops the handles of the given nodes and returns how many were
// registered.
func (s *Store) Prune(ids []id.ID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, nodeID := range ids {
		if _, ok := s.handles[nodeID]; ok {
			delete(s.handles, nodeID)
			n++
		}
	}
	return n
}
