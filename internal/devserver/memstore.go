package devserver

import (
	"encoding/json"
	"sync"
)

// record is one server-side entity copy with its optimistic-concurrency
// version.
type record struct {
	Data    json.RawMessage
	Version int64
	Deleted bool
}

// Rejection carries the server's current copy back to the agent when a
// replay's base version no longer matches. Shape mirrors the agent's
// conflict payload contract.
type Rejection struct {
	ServerData    json.RawMessage `json:"server_data"`
	ServerVersion int64           `json:"server_version"`
	Deleted       bool            `json:"deleted"`
}

// MemStore is the dev server's entity storage: per-collection maps guarded
// by one mutex. Volatile on purpose; the dev server exists to exercise the
// agent's sync protocol, not to persist data.
type MemStore struct {
	mu          sync.Mutex
	collections map[string]map[string]*record
}

func NewMemStore() *MemStore {
	return &MemStore{collections: map[string]map[string]*record{}}
}

func (s *MemStore) collection(name string) map[string]*record {
	c, ok := s.collections[name]
	if !ok {
		c = map[string]*record{}
		s.collections[name] = c
	}
	return c
}

// Create stores a new entity at version 1. Creating an ID that already
// exists is a divergence and returns a Rejection.
func (s *MemStore) Create(collection, id string, data json.RawMessage) (int64, *Rejection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	if existing, ok := c[id]; ok {
		return 0, &Rejection{ServerData: existing.Data, ServerVersion: existing.Version, Deleted: existing.Deleted}
	}

	c[id] = &record{Data: data, Version: 1}
	return 1, nil
}

// Update replaces the entity if baseVersion still matches the stored
// version. A missing or deleted entity, or a stale base, returns a
// Rejection with the server's current state.
func (s *MemStore) Update(collection, id string, baseVersion int64, data json.RawMessage) (int64, *Rejection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	existing, ok := c[id]
	if !ok {
		return 0, &Rejection{Deleted: true}
	}
	if existing.Deleted {
		return 0, &Rejection{ServerData: existing.Data, ServerVersion: existing.Version, Deleted: true}
	}
	if existing.Version != baseVersion {
		return 0, &Rejection{ServerData: existing.Data, ServerVersion: existing.Version}
	}

	existing.Data = data
	existing.Version++
	return existing.Version, nil
}

// Delete tombstones the entity under the same version check as Update.
func (s *MemStore) Delete(collection, id string, baseVersion int64) (int64, *Rejection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	existing, ok := c[id]
	if !ok {
		return 0, &Rejection{Deleted: true}
	}
	if existing.Deleted {
		return 0, &Rejection{ServerData: existing.Data, ServerVersion: existing.Version, Deleted: true}
	}
	if existing.Version != baseVersion {
		return 0, &Rejection{ServerData: existing.Data, ServerVersion: existing.Version}
	}

	existing.Deleted = true
	existing.Version++
	return existing.Version, nil
}

// Get returns the stored copy, mostly for tests and manual poking.
func (s *MemStore) Get(collection, id string) (json.RawMessage, int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.collection(collection)[id]
	if !ok || existing.Deleted {
		return nil, 0, false
	}
	return existing.Data, existing.Version, true
}

// Seed force-writes an entity at the given version, bypassing the version
// check. Used by tests to fabricate server-side divergence.
func (s *MemStore) Seed(collection, id string, data json.RawMessage, version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collection(collection)[id] = &record{Data: data, Version: version}
}
