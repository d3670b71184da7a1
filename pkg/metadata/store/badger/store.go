// Package badger is the BadgerDB metadata store: an embedded key/value
// alternative to the relational store, with the same semantics.
package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/google/uuid"

	"github.com/marmos91/dittoshare/internal/logger"
	"github.com/marmos91/dittoshare/pkg/metadata"
)

// Config configures the BadgerDB store.
type Config struct {
	// Path is the database directory.
	Path string

	// BlockCacheSize and IndexCacheSize are Badger's cache sizes in bytes.
	// Zero keeps the library defaults.
	BlockCacheSize int64
	IndexCacheSize int64

	// NoSync disables fsync on commit. Only for tests.
	NoSync bool
}

// Store implements metadata.Store on BadgerDB.
type Store struct {
	db *badgerdb.DB
}

var _ metadata.Store = (*Store)(nil)

// Open opens or creates the database at cfg.Path.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("badger path is required")
	}

	opts := badgerdb.DefaultOptions(cfg.Path).
		WithLoggingLevel(badgerdb.WARNING).
		WithCompression(options.None).
		WithSyncWrites(!cfg.NoSync)
	if cfg.BlockCacheSize > 0 {
		opts = opts.WithBlockCacheSize(cfg.BlockCacheSize)
	}
	if cfg.IndexCacheSize > 0 {
		opts = opts.WithIndexCacheSize(cfg.IndexCacheSize)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug("metadata store opened", logger.Store("badger"), logger.Path(cfg.Path))
	return &Store{db: db}, nil
}

func (s *Store) view(ctx context.Context, fn func(t *txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.View(func(btx *badgerdb.Txn) error { return fn(&txn{btx}) })
	return wrapEngineError("read", err)
}

func (s *Store) update(ctx context.Context, fn func(t *txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(btx *badgerdb.Txn) error { return fn(&txn{btx}) })
	return wrapEngineError("write", err)
}

// wrapEngineError leaves StoreErrors and context errors alone and turns
// anything else into an ErrIOError.
func wrapEngineError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *metadata.StoreError
	if errors.As(err, &se) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return metadata.NewIOError(op, err)
}

// WithTransaction implements metadata.Store.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx metadata.Transaction) error) error {
	return s.update(ctx, func(t *txn) error { return fn(t) })
}

// Bootstrap implements metadata.Store.
func (s *Store) Bootstrap(ctx context.Context, root *metadata.FileEntry) error {
	return s.update(ctx, func(t *txn) error {
		for _, k := range [][]byte{keyFileCounter, keyChangeCounter, keyInstanceCounter} {
			if _, err := t.txn.Get(k); errors.Is(err, badgerdb.ErrKeyNotFound) {
				if err := t.txn.Set(k, encodeUint64(1)); err != nil {
					return err
				}
			} else if err != nil {
				return err
			}
		}
		if _, err := t.txn.Get(keySchemaVersion); errors.Is(err, badgerdb.ErrKeyNotFound) {
			if err := t.setVersion(metadata.CurrentSchemaVersion); err != nil {
				return err
			}
		}
		return t.InsertFile(ctx, root)
	})
}

// SchemaVersion implements metadata.Store.
func (s *Store) SchemaVersion(ctx context.Context) (uint32, error) {
	var v uint32
	err := s.view(ctx, func(t *txn) error {
		item, err := t.txn.Get(keySchemaVersion)
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(b []byte) error {
			if len(b) != 4 {
				return fmt.Errorf("schema version: want 4 bytes, got %d", len(b))
			}
			v = uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
			return nil
		})
	})
	return v, err
}

// SetSchemaVersion implements metadata.Store.
func (s *Store) SetSchemaVersion(ctx context.Context, v uint32) error {
	return s.update(ctx, func(t *txn) error { return t.setVersion(v) })
}

// Upgrade implements metadata.Store.
func (s *Store) Upgrade(ctx context.Context) (uint32, uint32, error) {
	return metadata.ApplyUpgrades(ctx, s, metadata.CurrentSchemaVersion, nil)
}

// HealthCheck implements metadata.Store.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s.db.IsClosed() {
		return metadata.NewIOError("health check", badgerdb.ErrDBClosed)
	}
	return s.view(ctx, func(t *txn) error {
		_, err := t.txn.Get(keySchemaVersion)
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// Close implements metadata.Store.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetFileCounter(ctx context.Context) (v uint64, err error) {
	err = s.view(ctx, func(t *txn) error { v, err = t.GetFileCounter(ctx); return err })
	return v, err
}

func (s *Store) IncrementFileCounter(ctx context.Context) error {
	return s.update(ctx, func(t *txn) error { return t.IncrementFileCounter(ctx) })
}

func (s *Store) GetChangeCounter(ctx context.Context) (v uint64, err error) {
	err = s.view(ctx, func(t *txn) error { v, err = t.GetChangeCounter(ctx); return err })
	return v, err
}

func (s *Store) IncrementChangeCounter(ctx context.Context) error {
	return s.update(ctx, func(t *txn) error { return t.IncrementChangeCounter(ctx) })
}

func (s *Store) InsertInstance(ctx context.Context, name string, id uuid.UUID) error {
	return s.update(ctx, func(t *txn) error { return t.InsertInstance(ctx, name, id) })
}

func (s *Store) GetInstanceIndex(ctx context.Context, name string, id uuid.UUID) (idx uint64, ok bool, err error) {
	err = s.view(ctx, func(t *txn) error { idx, ok, err = t.GetInstanceIndex(ctx, name, id); return err })
	return idx, ok, err
}

func (s *Store) InsertFile(ctx context.Context, e *metadata.FileEntry) error {
	return s.update(ctx, func(t *txn) error { return t.InsertFile(ctx, e) })
}

func (s *Store) GetFile(ctx context.Context, id metadata.FileID) (e *metadata.FileEntry, ok bool, err error) {
	err = s.view(ctx, func(t *txn) error { e, ok, err = t.GetFile(ctx, id); return err })
	return e, ok, err
}

func (s *Store) GetFileByPath(ctx context.Context, path, filename string) (e *metadata.FileEntry, ok bool, err error) {
	err = s.view(ctx, func(t *txn) error { e, ok, err = t.GetFileByPath(ctx, path, filename); return err })
	return e, ok, err
}

func (s *Store) ListDirectory(ctx context.Context, path string, offset, limit int) (out []*metadata.FileEntry, err error) {
	err = s.view(ctx, func(t *txn) error { out, err = t.ListDirectory(ctx, path, offset, limit); return err })
	return out, err
}

func (s *Store) CountChildren(ctx context.Context, path string) (n int, err error) {
	err = s.view(ctx, func(t *txn) error { n, err = t.CountChildren(ctx, path); return err })
	return n, err
}

func (s *Store) UpdatePermissions(ctx context.Context, id metadata.FileID, perms metadata.Permissions, ci, cid uint64) error {
	return s.update(ctx, func(t *txn) error { return t.UpdatePermissions(ctx, id, perms, ci, cid) })
}

func (s *Store) UpdateTimestamp(ctx context.Context, id metadata.FileID, ts time.Time, ci, cid uint64) error {
	return s.update(ctx, func(t *txn) error { return t.UpdateTimestamp(ctx, id, ts, ci, cid) })
}

func (s *Store) DeleteFile(ctx context.Context, id metadata.FileID) error {
	return s.update(ctx, func(t *txn) error { return t.DeleteFile(ctx, id) })
}

func (s *Store) InsertAncestry(ctx context.Context, child, parent metadata.FileID) error {
	return s.update(ctx, func(t *txn) error { return t.InsertAncestry(ctx, child, parent) })
}

func (s *Store) GetParent(ctx context.Context, child metadata.FileID) (p metadata.FileID, ok bool, err error) {
	err = s.view(ctx, func(t *txn) error { p, ok, err = t.GetParent(ctx, child); return err })
	return p, ok, err
}

func (s *Store) DeleteAncestry(ctx context.Context, child metadata.FileID) error {
	return s.update(ctx, func(t *txn) error { return t.DeleteAncestry(ctx, child) })
}
