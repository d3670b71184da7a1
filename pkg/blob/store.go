// Package blob defines the storage interface for file contents.
//
// Every regular file in a share has exactly one blob, named after the
// file's identity and current version (see Key). Directories have none.
package blob

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a blob does not exist.
	ErrNotFound = errors.New("blob not found")

	// ErrStoreClosed is returned when operations are attempted on a closed store.
	ErrStoreClosed = errors.New("store is closed")
)

// Store is a flat key/value object store.
type Store interface {
	// Put creates or overwrites the blob at key.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the blob contents. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Rename moves from to to, replacing to. When from is missing and to
	// exists the rename is treated as already done and returns nil, so a
	// replayed rename is harmless. When both are missing it returns
	// ErrNotFound.
	Rename(ctx context.Context, from, to string) error

	// Delete removes key. A missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns every key starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// Key names the blob of file id owned by instance owner at version
// (changeInstance, changeID).
func Key(id, owner, changeID, changeInstance uint64) string {
	return fmt.Sprintf("%d-%d-%d-%d", id, owner, changeID, changeInstance)
}

// ParseKey is the inverse of Key.
func ParseKey(key string) (id, owner, changeID, changeInstance uint64, err error) {
	var rest string
	n, err := fmt.Sscanf(key, "%d-%d-%d-%d%s", &id, &owner, &changeID, &changeInstance, &rest)
	if n != 4 || rest != "" {
		return 0, 0, 0, 0, fmt.Errorf("invalid blob key %q", key)
	}
	return id, owner, changeID, changeInstance, nil
}
