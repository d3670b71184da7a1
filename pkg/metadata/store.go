package metadata

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CurrentSchemaVersion is the schema version written by Bootstrap and
// targeted by Upgrade.
const CurrentSchemaVersion uint32 = 1

// Files is the set of row operations available both directly on a Store
// and inside a Transaction.
//
// Lookups report absence through their bool result, never through an
// error. Every engine failure is a *StoreError with Code ErrIOError.
type Files interface {
	// GetFileCounter returns the next local id to allocate.
	GetFileCounter(ctx context.Context) (uint64, error)
	IncrementFileCounter(ctx context.Context) error

	// GetChangeCounter returns the next change id to allocate.
	GetChangeCounter(ctx context.Context) (uint64, error)
	IncrementChangeCounter(ctx context.Context) error

	// InsertInstance registers an instance. Existing rows are left alone.
	InsertInstance(ctx context.Context, name string, id uuid.UUID) error

	// GetInstanceIndex returns the row index of an instance. Indexes start
	// at 1; 0 owns the root entry.
	GetInstanceIndex(ctx context.Context, name string, id uuid.UUID) (uint64, bool, error)

	// InsertFile adds an entry. A row with the same FileID is left
	// untouched; a different row with the same (Path, Filename) fails with
	// ErrConstraintViolation.
	InsertFile(ctx context.Context, e *FileEntry) error

	GetFile(ctx context.Context, id FileID) (*FileEntry, bool, error)
	GetFileByPath(ctx context.Context, path, filename string) (*FileEntry, bool, error)

	// ListDirectory returns up to limit children of the directory whose
	// full path is path, ordered by filename bytes, skipping offset.
	ListDirectory(ctx context.Context, path string, offset, limit int) ([]*FileEntry, error)

	// CountChildren returns the number of entries whose Path is path.
	CountChildren(ctx context.Context, path string) (int, error)

	// UpdatePermissions and UpdateTimestamp overwrite the attribute and
	// the version stamp. A missing row is ErrNotFound.
	UpdatePermissions(ctx context.Context, id FileID, perms Permissions, changeInstance, changeID uint64) error
	UpdateTimestamp(ctx context.Context, id FileID, t time.Time, changeInstance, changeID uint64) error

	// DeleteFile removes a row. A missing row is ErrNotFound.
	DeleteFile(ctx context.Context, id FileID) error

	// InsertAncestry records child's parent. Existing edges are left alone.
	InsertAncestry(ctx context.Context, child, parent FileID) error
	GetParent(ctx context.Context, child FileID) (FileID, bool, error)

	// DeleteAncestry removes child's edge. A missing edge is not an error.
	DeleteAncestry(ctx context.Context, child FileID) error
}

// Transaction is the view of a store inside WithTransaction.
type Transaction interface {
	Files
}

// Store is a persistent metadata store.
type Store interface {
	Files

	// WithTransaction runs fn atomically: all of its writes commit when
	// it returns nil and none do otherwise.
	WithTransaction(ctx context.Context, fn func(tx Transaction) error) error

	// Bootstrap creates the schema at CurrentSchemaVersion, seeds both
	// counters at 1 and inserts root.
	Bootstrap(ctx context.Context, root *FileEntry) error

	// SchemaVersion returns the stored version, 0 when uninitialized.
	SchemaVersion(ctx context.Context) (uint32, error)
	SetSchemaVersion(ctx context.Context, v uint32) error

	// Upgrade brings the schema to CurrentSchemaVersion.
	Upgrade(ctx context.Context) (from, to uint32, err error)

	HealthCheck(ctx context.Context) error
	Close() error
}
