package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/marmos91/dittoshare/pkg/metadata"
)

// txn implements metadata.Transaction over a Badger transaction.
type txn struct {
	txn *badgerdb.Txn
}

var _ metadata.Transaction = (*txn)(nil)

func (t *txn) setVersion(v uint32) error {
	return t.txn.Set(keySchemaVersion, binary.BigEndian.AppendUint32(nil, v))
}

func (t *txn) getUint64(key []byte) (uint64, error) {
	item, err := t.txn.Get(key)
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return 0, metadata.NewIOError("store not bootstrapped", err)
	}
	if err != nil {
		return 0, err
	}
	var v uint64
	err = item.Value(func(b []byte) error {
		v, err = decodeUint64(b)
		return err
	})
	return v, err
}

func (t *txn) bump(key []byte) (uint64, error) {
	v, err := t.getUint64(key)
	if err != nil {
		return 0, err
	}
	return v, t.txn.Set(key, encodeUint64(v+1))
}

func (t *txn) GetFileCounter(context.Context) (uint64, error) {
	return t.getUint64(keyFileCounter)
}

func (t *txn) IncrementFileCounter(context.Context) error {
	_, err := t.bump(keyFileCounter)
	return err
}

func (t *txn) GetChangeCounter(context.Context) (uint64, error) {
	return t.getUint64(keyChangeCounter)
}

func (t *txn) IncrementChangeCounter(context.Context) error {
	_, err := t.bump(keyChangeCounter)
	return err
}

func (t *txn) InsertInstance(_ context.Context, name string, id uuid.UUID) error {
	k := keyInstance(name, id)
	if _, err := t.txn.Get(k); err == nil {
		return nil
	} else if !errors.Is(err, badgerdb.ErrKeyNotFound) {
		return err
	}
	idx, err := t.bump(keyInstanceCounter)
	if err != nil {
		return err
	}
	return t.txn.Set(k, encodeUint64(idx))
}

func (t *txn) GetInstanceIndex(_ context.Context, name string, id uuid.UUID) (uint64, bool, error) {
	item, err := t.txn.Get(keyInstance(name, id))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	var idx uint64
	err = item.Value(func(b []byte) error {
		idx, err = decodeUint64(b)
		return err
	})
	return idx, err == nil, err
}

func (t *txn) InsertFile(_ context.Context, e *metadata.FileEntry) error {
	fk := keyFile(e.FileID)
	if _, err := t.txn.Get(fk); err == nil {
		return nil
	} else if !errors.Is(err, badgerdb.ErrKeyNotFound) {
		return err
	}

	pk := keyPath(e.Path, e.Filename)
	if _, err := t.txn.Get(pk); err == nil {
		return metadata.NewConstraintError(e.FullPath(), nil)
	} else if !errors.Is(err, badgerdb.ErrKeyNotFound) {
		return err
	}

	val, err := encodeFile(e)
	if err != nil {
		return err
	}
	if err := t.txn.Set(fk, val); err != nil {
		return err
	}
	return t.txn.Set(pk, encodeFileID(e.FileID))
}

func (t *txn) GetFile(_ context.Context, id metadata.FileID) (*metadata.FileEntry, bool, error) {
	item, err := t.txn.Get(keyFile(id))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var e *metadata.FileEntry
	err = item.Value(func(b []byte) error {
		e, err = decodeFile(id, b)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

func (t *txn) lookupPath(key []byte) (metadata.FileID, bool, error) {
	item, err := t.txn.Get(key)
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return metadata.FileID{}, false, nil
	}
	if err != nil {
		return metadata.FileID{}, false, err
	}
	var id metadata.FileID
	err = item.Value(func(b []byte) error {
		id, err = decodeFileID(b)
		return err
	})
	return id, err == nil, err
}

func (t *txn) GetFileByPath(ctx context.Context, path, filename string) (*metadata.FileEntry, bool, error) {
	id, ok, err := t.lookupPath(keyPath(path, filename))
	if err != nil || !ok {
		return nil, false, err
	}
	return t.GetFile(ctx, id)
}

// eachChild calls fn for every child id of path in filename order until fn
// returns false.
func (t *txn) eachChild(path string, fn func(id metadata.FileID) (bool, error)) error {
	prefix := keyPathPrefix(path)
	opts := badgerdb.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false

	it := t.txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		// The root is indexed with an empty path and filename.
		if len(item.Key()) == len(prefix) {
			continue
		}
		var id metadata.FileID
		err := item.Value(func(b []byte) error {
			var err error
			id, err = decodeFileID(b)
			return err
		})
		if err != nil {
			return err
		}
		more, err := fn(id)
		if err != nil || !more {
			return err
		}
	}
	return nil
}

func (t *txn) ListDirectory(ctx context.Context, path string, offset, limit int) ([]*metadata.FileEntry, error) {
	out := []*metadata.FileEntry{}
	if limit <= 0 {
		return out, nil
	}

	var ids []metadata.FileID
	skipped := 0
	err := t.eachChild(path, func(id metadata.FileID) (bool, error) {
		if skipped < offset {
			skipped++
			return true, nil
		}
		ids = append(ids, id)
		return len(ids) < limit, nil
	})
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		e, ok, err := t.GetFile(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, metadata.NewIOError("path index points at missing row "+id.String(), nil)
		}
		out = append(out, e)
	}
	return out, nil
}

func (t *txn) CountChildren(_ context.Context, path string) (int, error) {
	n := 0
	err := t.eachChild(path, func(metadata.FileID) (bool, error) {
		n++
		return true, nil
	})
	return n, err
}

func (t *txn) modify(ctx context.Context, id metadata.FileID, fn func(e *metadata.FileEntry)) error {
	e, ok, err := t.GetFile(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return metadata.NewNotFoundError(id.String(), "file")
	}
	fn(e)
	val, err := encodeFile(e)
	if err != nil {
		return err
	}
	return t.txn.Set(keyFile(id), val)
}

func (t *txn) UpdatePermissions(ctx context.Context, id metadata.FileID, perms metadata.Permissions, ci, cid uint64) error {
	return t.modify(ctx, id, func(e *metadata.FileEntry) {
		e.Permissions = perms
		e.ChangeInstance, e.ChangeID = ci, cid
	})
}

func (t *txn) UpdateTimestamp(ctx context.Context, id metadata.FileID, ts time.Time, ci, cid uint64) error {
	return t.modify(ctx, id, func(e *metadata.FileEntry) {
		e.Timestamp = ts
		e.ChangeInstance, e.ChangeID = ci, cid
	})
}

func (t *txn) DeleteFile(ctx context.Context, id metadata.FileID) error {
	e, ok, err := t.GetFile(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return metadata.NewNotFoundError(id.String(), "file")
	}
	if err := t.txn.Delete(keyPath(e.Path, e.Filename)); err != nil {
		return err
	}
	return t.txn.Delete(keyFile(id))
}

func (t *txn) InsertAncestry(_ context.Context, child, parent metadata.FileID) error {
	k := keyAncestry(child)
	if _, err := t.txn.Get(k); err == nil {
		return nil
	} else if !errors.Is(err, badgerdb.ErrKeyNotFound) {
		return err
	}
	return t.txn.Set(k, encodeFileID(parent))
}

func (t *txn) GetParent(_ context.Context, child metadata.FileID) (metadata.FileID, bool, error) {
	return t.lookupPath(keyAncestry(child))
}

func (t *txn) DeleteAncestry(_ context.Context, child metadata.FileID) error {
	return t.txn.Delete(keyAncestry(child))
}
