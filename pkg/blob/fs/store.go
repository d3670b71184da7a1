// Package fs stores blobs as files in a single directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/marmos91/dittoshare/pkg/blob"
)

const tmpSuffix = ".tmp"

// Config holds configuration for the filesystem blob store.
type Config struct {
	// BasePath is the directory holding the blobs.
	BasePath string

	// FileMode is the permission mode for blob files. Default: 0644
	FileMode os.FileMode

	// NoSync skips fsync of files and the directory. Only for tests.
	NoSync bool
}

// Store is a filesystem-backed blob.Store. Writes go to a temp file that
// is synced and renamed into place.
type Store struct {
	mu       sync.RWMutex
	basePath string
	mode     os.FileMode
	sync     bool
	closed   bool
}

var _ blob.Store = (*Store)(nil)

// New opens the store rooted at cfg.BasePath, creating it if needed, and
// removes temp files left by an interrupted Put.
func New(cfg Config) (*Store, error) {
	if cfg.BasePath == "" {
		return nil, errors.New("base path is required")
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0o644
	}
	if err := os.MkdirAll(cfg.BasePath, 0o755); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(cfg.BasePath)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), tmpSuffix) {
			_ = os.Remove(filepath.Join(cfg.BasePath, e.Name()))
		}
	}

	return &Store{basePath: cfg.BasePath, mode: cfg.FileMode, sync: !cfg.NoSync}, nil
}

func (s *Store) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." || strings.HasSuffix(key, tmpSuffix) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.basePath, key), nil
}

func (s *Store) syncDir() error {
	if !s.sync {
		return nil
	}
	d, err := os.Open(s.basePath)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// Put implements blob.Store.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return blob.ErrStoreClosed
	}

	dst, err := s.path(key)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(s.basePath, key+".*"+tmpSuffix)
	if err != nil {
		return err
	}
	tmp := f.Name()
	ok := false
	defer func() {
		if !ok {
			_ = os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if s.sync {
		if err := f.Sync(); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, s.mode); err != nil {
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return err
	}
	ok = true
	return s.syncDir()
}

// Get implements blob.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, blob.ErrStoreClosed
	}

	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, blob.ErrNotFound
	}
	return data, err
}

// Exists implements blob.Store.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, blob.ErrStoreClosed
	}
	return s.exists(key)
}

func (s *Store) exists(key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Rename implements blob.Store.
func (s *Store) Rename(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return blob.ErrStoreClosed
	}

	src, err := s.path(from)
	if err != nil {
		return err
	}
	dst, err := s.path(to)
	if err != nil {
		return err
	}

	if err := os.Rename(src, dst); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		done, serr := s.exists(to)
		if serr != nil {
			return serr
		}
		if !done {
			return blob.ErrNotFound
		}
		return nil
	}
	return s.syncDir()
}

// Delete implements blob.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return blob.ErrStoreClosed
	}

	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return s.syncDir()
}

// List implements blob.Store.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, blob.ErrStoreClosed
	}

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, err
	}
	keys := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasSuffix(name, tmpSuffix) || !strings.HasPrefix(name, prefix) {
			continue
		}
		keys = append(keys, name)
	}
	slices.Sort(keys)
	return keys, nil
}

// HealthCheck implements blob.Store.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return blob.ErrStoreClosed
	}
	info, err := os.Stat(s.basePath)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("blob path %s is not a directory", s.basePath)
	}
	return nil
}

// Close implements blob.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
