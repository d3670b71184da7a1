package share

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/dittoshare/internal/logger"
	"github.com/marmos91/dittoshare/internal/telemetry"
	"github.com/marmos91/dittoshare/pkg/blob"
	"github.com/marmos91/dittoshare/pkg/metadata"
	"github.com/marmos91/dittoshare/pkg/metrics"
	"github.com/marmos91/dittoshare/pkg/txlog"
)

// recover rolls every pending transaction record forward. Replay checks
// the version stamp of the row first, so records that already took effect
// or were overtaken are dropped, and a crash during recovery is itself
// recoverable.
func (c *Core) recover(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanRecover,
		telemetry.Share(c.inst.Name), telemetry.Instance(c.InstanceFilename()))
	defer span.End()

	lc := logger.NewLogContext("recover").WithShare(c.inst.Name, c.InstanceFilename())
	ctx = logger.WithContext(ctx, lc)

	n, err := c.txlog.Recover(ctx, c.apply)
	metrics.RecordRecovered(c.metrics, n)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return n, err
	}
	if n > 0 {
		logger.InfoCtx(ctx, "Recovered pending transactions", logger.KeyCount, n)
	}
	return n, nil
}

func (c *Core) apply(ctx context.Context, op txlog.Op) error {
	switch op := op.(type) {
	case *txlog.CreateFile:
		return c.replayCreate(ctx, op)
	case *txlog.SetAttributes:
		return c.replaySetAttributes(ctx, op)
	case *txlog.DeleteFile:
		return c.replayDelete(ctx, op)
	default:
		return fmt.Errorf("unsupported transaction kind %s", op.Kind())
	}
}

func (c *Core) replayCreate(ctx context.Context, op *txlog.CreateFile) error {
	entry := &metadata.FileEntry{
		FileID:         metadata.FileID{Instance: op.Owner, ID: op.ID},
		ChangeInstance: op.ChangeInstance,
		ChangeID:       op.ChangeID,
		Timestamp:      metadata.TimeFromStorage(op.Timestamp),
		Permissions:    metadata.Permissions(op.Permissions),
	}
	entry.Path, entry.Filename = metadata.SplitPath(op.Path)
	key := blobKey(entry)

	if _, found, err := c.store.GetFile(ctx, entry.FileID); err != nil {
		return err
	} else if found {
		// Committed before the record was removed. Later changes may
		// have touched it since, so leave it alone.
		return nil
	}

	parent, err := c.lookup(ctx, entry.Path)
	if err != nil {
		return err
	}
	if parent == nil || !parent.IsDir() {
		logger.WarnCtx(ctx, "Dropping create whose parent is gone", logger.Path(op.Path))
		if entry.IsFile() {
			return c.blobs.Delete(ctx, key)
		}
		return nil
	}

	if entry.IsFile() {
		if err := c.blobs.Put(ctx, key, nil); err != nil {
			return err
		}
	}

	err = c.store.WithTransaction(ctx, func(tx metadata.Transaction) error {
		if err := tx.InsertFile(ctx, entry); err != nil {
			return err
		}
		return tx.InsertAncestry(ctx, entry.FileID, parent.FileID)
	})
	if metadata.IsConstraintViolation(err) {
		logger.WarnCtx(ctx, "Dropping create that collides with an existing entry",
			logger.Path(op.Path), logger.FileID(op.Owner, op.ID))
		if entry.IsFile() {
			return c.blobs.Delete(ctx, key)
		}
		return nil
	}
	return err
}

func (c *Core) replaySetAttributes(ctx context.Context, op *txlog.SetAttributes) error {
	id := metadata.FileID{Instance: op.Owner, ID: op.ID}
	cur, found, err := c.store.GetFile(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		logger.WarnCtx(ctx, "Dropping attribute change for missing entry", logger.FileID(op.Owner, op.ID))
		return nil
	}

	switch {
	case hasStamp(cur, op.ChangeInstance, op.ChangeID):
		return nil
	case !hasStamp(cur, op.OldChangeInstance, op.OldChangeID):
		logger.WarnCtx(ctx, "Dropping superseded attribute change",
			logger.FileID(op.Owner, op.ID),
			logger.ChangeID(op.ChangeInstance, op.ChangeID),
			"current_change_id", fmt.Sprintf("%d:%d", cur.ChangeInstance, cur.ChangeID))
		return nil
	}

	if op.IsFile {
		from := blob.Key(op.ID, op.Owner, op.OldChangeID, op.OldChangeInstance)
		to := blob.Key(op.ID, op.Owner, op.ChangeID, op.ChangeInstance)
		err := c.blobs.Rename(ctx, from, to)
		if errors.Is(err, blob.ErrNotFound) {
			logger.WarnCtx(ctx, "Blob missing during replay, recreating it", logger.BlobKey(to))
			err = c.blobs.Put(ctx, to, nil)
		}
		if err != nil {
			return err
		}
	}

	return c.store.WithTransaction(ctx, func(tx metadata.Transaction) error {
		return applyAttributes(ctx, tx, op)
	})
}

func (c *Core) replayDelete(ctx context.Context, op *txlog.DeleteFile) error {
	id := metadata.FileID{Instance: op.Owner, ID: op.ID}
	cur, found, err := c.store.GetFile(ctx, id)
	if err != nil {
		return err
	}
	if found && !hasStamp(cur, op.ChangeInstance, op.ChangeID) {
		logger.WarnCtx(ctx, "Dropping delete of an entry changed since",
			logger.FileID(op.Owner, op.ID), logger.ChangeID(cur.ChangeInstance, cur.ChangeID))
		return nil
	}

	if found {
		err = c.store.WithTransaction(ctx, func(tx metadata.Transaction) error {
			if err := tx.DeleteFile(ctx, id); err != nil && !metadata.IsNotFoundError(err) {
				return err
			}
			return tx.DeleteAncestry(ctx, id)
		})
		if err != nil {
			return err
		}
	}
	if op.IsFile {
		return c.blobs.Delete(ctx, blob.Key(op.ID, op.Owner, op.ChangeID, op.ChangeInstance))
	}
	return nil
}

func hasStamp(e *metadata.FileEntry, instance, changeID uint64) bool {
	return e.ChangeInstance == instance && e.ChangeID == changeID
}

// settle replays records left behind by earlier calls of this process,
// such as one whose removal failed. Mutations call it under c.mu before
// logging their own record, so none of them overtakes an unfinished one.
func (c *Core) settle(ctx context.Context) error {
	n, err := c.txlog.Recover(ctx, c.apply)
	if n > 0 {
		metrics.RecordRecovered(c.metrics, n)
		logger.WarnCtx(ctx, "Settled leftover transactions", logger.KeyCount, n)
	}
	if err != nil {
		return systemErr(err, "unfinished transaction could not be settled")
	}
	return nil
}
