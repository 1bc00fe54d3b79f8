// ABOUTME: In-memory Store implementation
// ABOUTME: Backs tests and the "memory" storage driver without touching disk

package store

import (
	"context"
	"errors"
	"sync"
)

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte

	// Failing keys make Get/Put return FailErr, for exercising error paths.
	failing map[string]bool
	FailErr error
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:  make(map[string][]byte),
		failing: make(map[string]bool),
	}
}

// Get retrieves a copy of the value stored under key.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.failing[key] {
		return nil, m.FailErr
	}

	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put stores a copy of value under key.
func (m *MemoryStore) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failing[key] {
		return m.FailErr
	}

	// Make a copy to avoid external modification
	v := make([]byte, len(value))
	copy(v, value)
	m.values[key] = v
	return nil
}

// Delete removes key.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

// Has reports whether key currently holds a value.
func (m *MemoryStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.values[key]
	return ok
}

// FailKey makes subsequent Get and Put calls on key return m.FailErr.
func (m *MemoryStore) FailKey(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailErr == nil {
		m.FailErr = errors.New("store unavailable")
	}
	m.failing[key] = true
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
