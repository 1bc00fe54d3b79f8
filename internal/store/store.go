// ABOUTME: Store interface for coven-chat durable key/value persistence
// ABOUTME: Every write replaces the whole value stored under a key

package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested key does not exist
var ErrNotFound = errors.New("not found")

// Store is a synchronous key/value medium holding serialized blobs.
// Put replaces the entire value at key; there are no partial or merge writes.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the value stored under key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store
	Close() error
}
