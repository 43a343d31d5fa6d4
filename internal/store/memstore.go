// internal/store/memstore.go

// Package store holds the authoritative in-memory spot collection.
package store

import (
	"sync"

	"spotshare/internal/domain/spot"
)

// MemStore implements spot.Store with a mutex-guarded map. A single store-wide
// lock is acceptable here: every transform is an O(1) in-memory function with
// no I/O, so writers hold the lock only briefly. Reads hand out deep copies so
// a caller never observes a partially-applied mutation.
type MemStore struct {
	mu    sync.RWMutex
	spots map[string]spot.Spot
}

// NewMemStore creates an empty store
func NewMemStore() *MemStore {
	return &MemStore{
		spots: make(map[string]spot.Spot),
	}
}

// Insert adds a new record
func (m *MemStore) Insert(s spot.Spot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.spots[s.ID]; exists {
		return spot.ErrDuplicateID
	}

	m.spots[s.ID] = s.Clone()
	return nil
}

// Get returns a snapshot copy of a record
func (m *MemStore) Get(id string) (spot.Spot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.spots[id]
	if !ok {
		return spot.Spot{}, spot.ErrNotFound
	}

	return s.Clone(), nil
}

// Mutate applies fn to the record under exclusive access. The transform
// receives a copy; if it returns an error no change is applied and the error
// is propagated unchanged. This is the single choke point every state
// transition passes through.
func (m *MemStore) Mutate(id string, fn func(spot.Spot) (spot.Spot, error)) (spot.Spot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.spots[id]
	if !ok {
		return spot.Spot{}, spot.ErrNotFound
	}

	next, err := fn(current.Clone())
	if err != nil {
		return spot.Spot{}, err
	}

	// The id is the map key; a transform must not rewrite it.
	next.ID = current.ID

	m.spots[id] = next
	return next.Clone(), nil
}

// Remove deletes a record; idempotent
func (m *MemStore) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.spots, id)
}

// All returns a consistent snapshot of every record
func (m *MemStore) All() []spot.Spot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]spot.Spot, 0, len(m.spots))
	for _, s := range m.spots {
		out = append(out, s.Clone())
	}

	return out
}

// Len returns the number of live records
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.spots)
}
