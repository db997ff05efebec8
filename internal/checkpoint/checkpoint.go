// Package checkpoint provides a minimal durable numeric key-value store used
// to remember update-check state across restarts.
package checkpoint

import "sync"

// Store is a durable numeric key→value store.
type Store interface {
	// Get returns the value for key, or def when the key is absent.
	Get(key string, def int64) int64
	// Set durably records value under key.
	Set(key string, value int64) error
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]int64)}
}

// Get returns the stored value or def.
func (m *MemStore) Get(key string, def int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.values[key]; ok {
		return v
	}
	return def
}

// Set records value under key.
func (m *MemStore) Set(key string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
