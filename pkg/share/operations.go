package share

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/marmos91/dittoshare/internal/logger"
	"github.com/marmos91/dittoshare/internal/telemetry"
	"github.com/marmos91/dittoshare/pkg/blob"
	"github.com/marmos91/dittoshare/pkg/metadata"
	"github.com/marmos91/dittoshare/pkg/metrics"
	"github.com/marmos91/dittoshare/pkg/txlog"
)

// Operation names used for spans, log context and metrics.
const (
	OpCreate         = "create"
	OpGet            = "get"
	OpList           = "list"
	OpSetPermissions = "set_permissions"
	OpSetTimestamp   = "set_timestamp"
	OpDelete         = "delete"
)

// begin starts the span and log context of op. The returned function
// records the outcome and must be deferred with the operation's error.
func (c *Core) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	attrs = append(attrs, telemetry.Share(c.inst.Name), telemetry.Instance(c.InstanceFilename()))
	ctx, span := telemetry.StartShareSpan(ctx, op, attrs...)

	lc := logger.NewLogContext(op).
		WithShare(c.inst.Name, c.InstanceFilename()).
		WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	ctx = logger.WithContext(ctx, lc)

	return ctx, func(errp *error) {
		outcome := metrics.OutcomeOK
		if err := *errp; err != nil {
			if IsUserError(err) {
				outcome = metrics.OutcomeUserError
				logger.DebugCtx(ctx, "Operation rejected", logger.Err(err))
			} else {
				outcome = metrics.OutcomeSystemError
				telemetry.RecordError(ctx, err)
				logger.ErrorCtx(ctx, "Operation failed", logger.Err(err))
			}
		}
		metrics.ObserveOperation(c.metrics, op, outcome, time.Since(lc.StartTime))
		span.End()
	}
}

func blobKey(e *metadata.FileEntry) string {
	return blob.Key(e.ID, e.Instance, e.ChangeID, e.ChangeInstance)
}

// lookup resolves an absolute cleaned path. A missing entry is (nil, nil).
func (c *Core) lookup(ctx context.Context, p string) (*metadata.FileEntry, error) {
	var (
		e     *metadata.FileEntry
		found bool
		err   error
	)
	if p == "/" {
		e, found, err = c.store.GetFile(ctx, metadata.RootID)
	} else {
		dir, name := metadata.SplitPath(p)
		e, found, err = c.store.GetFileByPath(ctx, dir, name)
	}
	if err != nil {
		return nil, systemErr(err, "could not look up %s", p)
	}
	if !found {
		return nil, nil
	}
	return e, nil
}

// current re-reads e by identity.
func (c *Core) current(ctx context.Context, e *metadata.FileEntry) (*metadata.FileEntry, error) {
	if e == nil {
		return nil, userErr(metadata.ErrInvalidArgument, "", "entry is required")
	}
	cur, found, err := c.store.GetFile(ctx, e.FileID)
	if err != nil {
		return nil, systemErr(err, "could not look up %s", e.FullPath())
	}
	if !found {
		return nil, userErr(metadata.ErrNotFound, e.FullPath(), "file no longer exists")
	}
	return cur, nil
}

type counter int

const (
	fileCounter counter = iota
	changeCounter
)

func (k counter) String() string {
	if k == fileCounter {
		return "file"
	}
	return "change"
}

// allocate reads and bumps one counter in its own store transaction.
func (c *Core) allocate(ctx context.Context, k counter) (uint64, error) {
	var v uint64
	err := c.store.WithTransaction(ctx, func(tx metadata.Transaction) error {
		var err error
		if k == fileCounter {
			if v, err = tx.GetFileCounter(ctx); err != nil {
				return err
			}
			return tx.IncrementFileCounter(ctx)
		}
		if v, err = tx.GetChangeCounter(ctx); err != nil {
			return err
		}
		return tx.IncrementChangeCounter(ctx)
	})
	if err != nil {
		return 0, systemErr(err, "could not allocate %s id", k)
	}
	return v, nil
}

// instanceIndex returns this instance's store index, registering the
// instance on first use. Callers hold c.mu.
func (c *Core) instanceIndex(ctx context.Context) (uint64, error) {
	if c.instIdx != 0 {
		return c.instIdx, nil
	}

	var idx uint64
	err := c.store.WithTransaction(ctx, func(tx metadata.Transaction) error {
		if err := tx.InsertInstance(ctx, c.inst.Name, c.inst.ID); err != nil {
			return err
		}
		i, ok, err := tx.GetInstanceIndex(ctx, c.inst.Name, c.inst.ID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("instance %s missing after insert", c.InstanceFilename())
		}
		idx = i
		return nil
	})
	if err != nil {
		return 0, systemErr(err, "could not register instance")
	}
	c.instIdx = idx
	return idx, nil
}

func (c *Core) logBegin(ctx context.Context, op txlog.Op) (txlog.Handle, error) {
	h, err := c.txlog.Begin(op)
	if err != nil {
		return h, systemErr(err, "could not write transaction record")
	}
	metrics.RecordTransaction(c.metrics, op.Kind().String())
	telemetry.AddEvent(ctx, telemetry.SpanTxnBegin, telemetry.TxnSeq(h.Seq), telemetry.TxnKind(op.Kind().String()))
	return h, nil
}

// discard drops the record of an operation that was abandoned before it
// changed anything.
func (c *Core) discard(ctx context.Context, h txlog.Handle) {
	if err := c.txlog.Complete(h); err != nil {
		logger.WarnCtx(ctx, "Could not discard transaction record", logger.TxnSeq(h.Seq), logger.Err(err))
	}
}

// complete drops the record of a committed operation, retrying once. A
// record that still cannot be removed is left for settle, which the next
// mutation runs before doing anything else.
func (c *Core) complete(ctx context.Context, h txlog.Handle) {
	err := c.txlog.Complete(h)
	if err != nil {
		err = c.txlog.Complete(h)
	}
	if err != nil {
		logger.WarnCtx(ctx, "Could not complete transaction record", logger.TxnSeq(h.Seq), logger.Err(err))
	}
}

// Create adds a file or directory at path; perms.IsFile selects which.
// The parent must be an existing directory and path must be free.
func (c *Core) Create(ctx context.Context, path string, perms metadata.Permissions) (_ *metadata.FileEntry, err error) {
	ctx, done := c.begin(ctx, OpCreate,
		telemetry.Path(path), telemetry.IsFile(perms.IsFile()), telemetry.Mode(perms.Mode()))
	defer done(&err)
	if c.closed.Load() {
		return nil, ErrClosed
	}

	clean, err := cleanSharePath(path, c.strange)
	if err != nil {
		return nil, err
	}
	if clean == "/" {
		return nil, userErr(metadata.ErrAlreadyExists, clean, "file already exists")
	}
	dir, name := metadata.SplitPath(clean)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.settle(ctx); err != nil {
		return nil, err
	}

	parent, err := c.lookup(ctx, dir)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, userErr(metadata.ErrNotFound, dir, "parent directory does not exist")
	}
	if !parent.IsDir() {
		return nil, userErr(metadata.ErrNotDirectory, dir, "parent is not a directory")
	}
	existing, err := c.lookup(ctx, clean)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, userErr(metadata.ErrAlreadyExists, clean, "file already exists")
	}

	id, err := c.allocate(ctx, fileCounter)
	if err != nil {
		return nil, err
	}
	changeID, err := c.allocate(ctx, changeCounter)
	if err != nil {
		return nil, err
	}
	owner, err := c.instanceIndex(ctx)
	if err != nil {
		return nil, err
	}

	entry := &metadata.FileEntry{
		FileID:         metadata.FileID{Instance: owner, ID: id},
		ChangeInstance: owner,
		ChangeID:       changeID,
		Path:           dir,
		Filename:       name,
		Timestamp:      c.now().UTC(),
		Permissions:    perms,
	}
	telemetry.SetAttributes(ctx, telemetry.FileID(entry.FileID.String()))

	h, err := c.logBegin(ctx, &txlog.CreateFile{
		ID:             entry.ID,
		Owner:          entry.Instance,
		ChangeID:       entry.ChangeID,
		ChangeInstance: entry.ChangeInstance,
		Path:           clean,
		IsFile:         entry.IsFile(),
		Permissions:    uint32(entry.Permissions),
		Timestamp:      metadata.TimeToStorage(entry.Timestamp),
	})
	if err != nil {
		return nil, err
	}

	if entry.IsFile() {
		if err := c.blobs.Put(ctx, blobKey(entry), nil); err != nil {
			c.discard(ctx, h)
			return nil, systemErr(err, "could not create file %s", clean)
		}
	}

	err = c.store.WithTransaction(ctx, func(tx metadata.Transaction) error {
		if err := tx.InsertFile(ctx, entry); err != nil {
			return err
		}
		return tx.InsertAncestry(ctx, entry.FileID, parent.FileID)
	})
	if err != nil {
		if entry.IsFile() {
			if derr := c.blobs.Delete(ctx, blobKey(entry)); derr != nil {
				logger.WarnCtx(ctx, "Could not remove orphaned blob", logger.BlobKey(blobKey(entry)), logger.Err(derr))
			}
		}
		c.discard(ctx, h)
		if metadata.IsConstraintViolation(err) {
			return nil, userErr(metadata.ErrAlreadyExists, clean, "file already exists")
		}
		return nil, systemErr(err, "could not record %s", clean)
	}
	c.complete(ctx, h)

	logger.DebugCtx(ctx, "Created entry",
		logger.Path(clean),
		logger.FileID(entry.Instance, entry.ID),
		logger.ChangeID(entry.ChangeInstance, entry.ChangeID),
		logger.Permissions(uint16(entry.Permissions)))
	return entry.Clone(), nil
}

// Get returns the entry at path. A missing entry is (nil, false, nil).
func (c *Core) Get(ctx context.Context, path string) (_ *metadata.FileEntry, _ bool, err error) {
	ctx, done := c.begin(ctx, OpGet, telemetry.Path(path))
	defer done(&err)
	if c.closed.Load() {
		return nil, false, ErrClosed
	}

	clean, err := cleanSharePath(path, c.strange)
	if err != nil {
		return nil, false, err
	}
	e, err := c.lookup(ctx, clean)
	if err != nil {
		return nil, false, err
	}
	return e, e != nil, nil
}

// GetDirectory lists up to count children of dir, ordered by filename,
// skipping the first from. dir is re-read by identity first, so a stale
// copy still lists the directory's current contents.
func (c *Core) GetDirectory(ctx context.Context, dir *metadata.FileEntry, from, count int) (_ []*metadata.FileEntry, err error) {
	ctx, done := c.begin(ctx, OpList, telemetry.Offset(from), telemetry.Count(count))
	defer done(&err)
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if from < 0 || count < 0 {
		return nil, userErr(metadata.ErrInvalidArgument, "", "invalid window from=%d count=%d", from, count)
	}

	cur, err := c.current(ctx, dir)
	if err != nil {
		return nil, err
	}
	telemetry.SetAttributes(ctx, telemetry.FileID(cur.FileID.String()), telemetry.Path(cur.FullPath()))
	if !cur.IsDir() {
		return nil, userErr(metadata.ErrNotDirectory, cur.FullPath(), "not a directory")
	}
	if count == 0 {
		return []*metadata.FileEntry{}, nil
	}

	entries, err := c.store.ListDirectory(ctx, cur.FullPath(), from, count)
	if err != nil {
		return nil, systemErr(err, "could not list %s", cur.FullPath())
	}
	return entries, nil
}

// SetPermissions replaces the rwx bits of entry. The file kind is kept.
func (c *Core) SetPermissions(ctx context.Context, entry *metadata.FileEntry, perms metadata.Permissions) (_ *metadata.FileEntry, err error) {
	ctx, done := c.begin(ctx, OpSetPermissions, telemetry.Mode(perms.Mode()))
	defer done(&err)
	return c.setAttributes(ctx, entry, &perms, nil)
}

// SetTimestamp replaces the modification time of entry.
func (c *Core) SetTimestamp(ctx context.Context, entry *metadata.FileEntry, t time.Time) (_ *metadata.FileEntry, err error) {
	ctx, done := c.begin(ctx, OpSetTimestamp)
	defer done(&err)
	return c.setAttributes(ctx, entry, nil, &t)
}

func (c *Core) setAttributes(ctx context.Context, entry *metadata.FileEntry, perms *metadata.Permissions, ts *time.Time) (*metadata.FileEntry, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.settle(ctx); err != nil {
		return nil, err
	}

	cur, err := c.current(ctx, entry)
	if err != nil {
		return nil, err
	}
	telemetry.SetAttributes(ctx, telemetry.FileID(cur.FileID.String()), telemetry.Path(cur.FullPath()))

	changeID, err := c.allocate(ctx, changeCounter)
	if err != nil {
		return nil, err
	}
	changer, err := c.instanceIndex(ctx)
	if err != nil {
		return nil, err
	}

	next := cur.Clone()
	next.ChangeInstance, next.ChangeID = changer, changeID
	op := &txlog.SetAttributes{
		ID:                cur.ID,
		Owner:             cur.Instance,
		OldChangeInstance: cur.ChangeInstance,
		OldChangeID:       cur.ChangeID,
		ChangeInstance:    changer,
		ChangeID:          changeID,
		IsFile:            cur.IsFile(),
	}
	if perms != nil {
		next.Permissions = cur.Permissions.WithMode(perms.Mode())
		op.Permissions, op.HasPermissions = uint32(next.Permissions), true
	}
	if ts != nil {
		next.Timestamp = ts.UTC()
		op.Timestamp, op.HasTimestamp = metadata.TimeToStorage(next.Timestamp), true
	}

	h, err := c.logBegin(ctx, op)
	if err != nil {
		return nil, err
	}

	if cur.IsFile() {
		if err := c.blobs.Rename(ctx, blobKey(cur), blobKey(next)); err != nil {
			c.discard(ctx, h)
			return nil, systemErr(err, "could not update file %s", cur.FullPath())
		}
	}

	err = c.store.WithTransaction(ctx, func(tx metadata.Transaction) error {
		return applyAttributes(ctx, tx, op)
	})
	if err != nil {
		if cur.IsFile() {
			if rerr := c.blobs.Rename(ctx, blobKey(next), blobKey(cur)); rerr != nil {
				// The record stays; settle or the next open finishes the change.
				logger.WarnCtx(ctx, "Could not restore blob after failed update",
					logger.BlobKey(blobKey(cur)), logger.Err(rerr))
				return nil, systemErr(err, "could not update %s", cur.FullPath())
			}
		}
		c.discard(ctx, h)
		return nil, systemErr(err, "could not update %s", cur.FullPath())
	}
	c.complete(ctx, h)

	logger.DebugCtx(ctx, "Updated entry",
		logger.Path(next.FullPath()),
		logger.FileID(next.Instance, next.ID),
		logger.ChangeID(next.ChangeInstance, next.ChangeID))
	return next, nil
}

func applyAttributes(ctx context.Context, tx metadata.Files, op *txlog.SetAttributes) error {
	id := metadata.FileID{Instance: op.Owner, ID: op.ID}
	if op.HasPermissions {
		if err := tx.UpdatePermissions(ctx, id, metadata.Permissions(op.Permissions), op.ChangeInstance, op.ChangeID); err != nil {
			return err
		}
	}
	if op.HasTimestamp {
		if err := tx.UpdateTimestamp(ctx, id, metadata.TimeFromStorage(op.Timestamp), op.ChangeInstance, op.ChangeID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes entry. The root and non-empty directories are refused.
func (c *Core) Delete(ctx context.Context, entry *metadata.FileEntry) (err error) {
	ctx, done := c.begin(ctx, OpDelete)
	defer done(&err)
	if c.closed.Load() {
		return ErrClosed
	}
	if entry != nil && entry.IsRoot() {
		return userErr(metadata.ErrInvalidArgument, "/", "the root directory cannot be deleted")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.settle(ctx); err != nil {
		return err
	}

	cur, err := c.current(ctx, entry)
	if err != nil {
		return err
	}
	telemetry.SetAttributes(ctx, telemetry.FileID(cur.FileID.String()), telemetry.Path(cur.FullPath()))

	if cur.IsDir() {
		n, err := c.store.CountChildren(ctx, cur.FullPath())
		if err != nil {
			return systemErr(err, "could not list %s", cur.FullPath())
		}
		if n > 0 {
			return userErr(metadata.ErrNotEmpty, cur.FullPath(), "directory not empty")
		}
	}

	h, err := c.logBegin(ctx, &txlog.DeleteFile{
		ID:             cur.ID,
		Owner:          cur.Instance,
		ChangeInstance: cur.ChangeInstance,
		ChangeID:       cur.ChangeID,
		IsFile:         cur.IsFile(),
	})
	if err != nil {
		return err
	}

	err = c.store.WithTransaction(ctx, func(tx metadata.Transaction) error {
		if err := tx.DeleteFile(ctx, cur.FileID); err != nil {
			return err
		}
		return tx.DeleteAncestry(ctx, cur.FileID)
	})
	if err != nil {
		c.discard(ctx, h)
		return systemErr(err, "could not delete %s", cur.FullPath())
	}

	if cur.IsFile() {
		if err := c.blobs.Delete(ctx, blobKey(cur)); err != nil {
			// The row is gone; settle or the next open removes the blob.
			logger.WarnCtx(ctx, "Could not delete blob, leaving it for recovery",
				logger.BlobKey(blobKey(cur)), logger.Err(err))
			return nil
		}
	}
	c.complete(ctx, h)

	logger.DebugCtx(ctx, "Deleted entry", logger.Path(cur.FullPath()), logger.FileID(cur.Instance, cur.ID))
	return nil
}
