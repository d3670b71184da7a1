// Package memory is an in-process blob store for tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/marmos91/dittoshare/pkg/blob"
)

// Store keeps blobs in a map.
type Store struct {
	mu     sync.RWMutex
	blobs  map[string][]byte
	closed bool
}

var _ blob.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

func (s *Store) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return blob.ErrStoreClosed
	}
	s.blobs[key] = slices.Clone(data)
	return nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, blob.ErrStoreClosed
	}
	data, ok := s.blobs[key]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return slices.Clone(data), nil
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, blob.ErrStoreClosed
	}
	_, ok := s.blobs[key]
	return ok, nil
}

func (s *Store) Rename(_ context.Context, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return blob.ErrStoreClosed
	}
	data, ok := s.blobs[from]
	if !ok {
		if _, done := s.blobs[to]; done {
			return nil
		}
		return blob.ErrNotFound
	}
	s.blobs[to] = data
	delete(s.blobs, from)
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return blob.ErrStoreClosed
	}
	delete(s.blobs, key)
	return nil
}

func (s *Store) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, blob.ErrStoreClosed
	}
	keys := []string{}
	for k := range s.blobs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *Store) HealthCheck(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return blob.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
