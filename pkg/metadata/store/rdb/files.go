package rdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marmos91/dittoshare/pkg/metadata"
)

// queries implements metadata.Files against either the pool or an open
// transaction.
type queries struct {
	db      *gorm.DB
	dialect DatabaseType
}

var _ metadata.Transaction = (*queries)(nil)

type fileRow struct {
	Instance       uint64 `gorm:"column:instance"`
	ID             uint64 `gorm:"column:id"`
	ChangeInstance uint64 `gorm:"column:change_instance"`
	ChangeID       uint64 `gorm:"column:change_id"`
	Path           string `gorm:"column:path"`
	Filename       string `gorm:"column:filename"`
	Modified       int64  `gorm:"column:modified"`
	Permissions    []byte `gorm:"column:permissions"`
}

func (r *fileRow) entry() (*metadata.FileEntry, error) {
	perms, err := metadata.DecodePermissions(r.Permissions)
	if err != nil {
		return nil, metadata.NewIOError("decode permissions", err)
	}
	return &metadata.FileEntry{
		FileID:         metadata.FileID{Instance: r.Instance, ID: r.ID},
		ChangeInstance: r.ChangeInstance,
		ChangeID:       r.ChangeID,
		Path:           r.Path,
		Filename:       r.Filename,
		Timestamp:      metadata.TimeFromStorage(r.Modified),
		Permissions:    perms,
	}, nil
}

const fileColumns = "instance, id, change_instance, change_id, path, filename, modified, permissions"

func (q *queries) exec(ctx context.Context, sql string, args ...any) error {
	return q.db.WithContext(ctx).Exec(sql, args...).Error
}

func (q *queries) execN(ctx context.Context, sql string, args ...any) (int64, error) {
	res := q.db.WithContext(ctx).Exec(sql, args...)
	return res.RowsAffected, res.Error
}

func (q *queries) scan(ctx context.Context, dest any, sql string, args ...any) error {
	if err := q.db.WithContext(ctx).Raw(sql, args...).Scan(dest).Error; err != nil {
		return metadata.NewIOError("query", err)
	}
	return nil
}

func (q *queries) counter(ctx context.Context, column string) (uint64, error) {
	var v uint64
	if err := q.scan(ctx, &v, "SELECT "+column+" FROM counters"); err != nil {
		return 0, err
	}
	return v, nil
}

func (q *queries) GetFileCounter(ctx context.Context) (uint64, error) {
	return q.counter(ctx, "file_counter")
}

func (q *queries) IncrementFileCounter(ctx context.Context) error {
	if err := q.exec(ctx, "UPDATE counters SET file_counter = file_counter + 1"); err != nil {
		return metadata.NewIOError("increment file counter", err)
	}
	return nil
}

func (q *queries) GetChangeCounter(ctx context.Context) (uint64, error) {
	return q.counter(ctx, "change_counter")
}

func (q *queries) IncrementChangeCounter(ctx context.Context) error {
	if err := q.exec(ctx, "UPDATE counters SET change_counter = change_counter + 1"); err != nil {
		return metadata.NewIOError("increment change counter", err)
	}
	return nil
}

func (q *queries) InsertInstance(ctx context.Context, name string, id uuid.UUID) error {
	err := q.exec(ctx,
		"INSERT INTO instances (name, instance_id) VALUES (?, ?) ON CONFLICT (name, instance_id) DO NOTHING",
		name, id.String())
	if err != nil {
		return metadata.NewIOError("insert instance", err)
	}
	return nil
}

func (q *queries) GetInstanceIndex(ctx context.Context, name string, id uuid.UUID) (uint64, bool, error) {
	var idx []uint64
	if err := q.scan(ctx, &idx, "SELECT idx FROM instances WHERE name = ? AND instance_id = ?", name, id.String()); err != nil {
		return 0, false, err
	}
	if len(idx) == 0 {
		return 0, false, nil
	}
	return idx[0], true, nil
}

func (q *queries) InsertFile(ctx context.Context, e *metadata.FileEntry) error {
	err := q.exec(ctx,
		"INSERT INTO files ("+fileColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT (instance, id) DO NOTHING",
		e.Instance, e.ID, e.ChangeInstance, e.ChangeID, e.Path, e.Filename,
		metadata.TimeToStorage(e.Timestamp), e.Permissions.Encode())
	if err != nil {
		if isUniqueConstraintError(err) {
			return metadata.NewConstraintError(e.FullPath(), err)
		}
		return metadata.NewIOError("insert file", err)
	}
	return nil
}

func (q *queries) one(ctx context.Context, where string, args ...any) (*metadata.FileEntry, bool, error) {
	var rows []fileRow
	if err := q.scan(ctx, &rows, "SELECT "+fileColumns+" FROM files WHERE "+where, args...); err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	e, err := rows[0].entry()
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

func (q *queries) GetFile(ctx context.Context, id metadata.FileID) (*metadata.FileEntry, bool, error) {
	return q.one(ctx, "instance = ? AND id = ?", id.Instance, id.ID)
}

func (q *queries) GetFileByPath(ctx context.Context, path, filename string) (*metadata.FileEntry, bool, error) {
	return q.one(ctx, "path = ? AND filename = ?", path, filename)
}

func (q *queries) ListDirectory(ctx context.Context, path string, offset, limit int) ([]*metadata.FileEntry, error) {
	out := []*metadata.FileEntry{}
	if limit <= 0 {
		return out, nil
	}
	if offset < 0 {
		offset = 0
	}

	var rows []fileRow
	err := q.scan(ctx, &rows,
		"SELECT "+fileColumns+" FROM files WHERE path = ? AND filename <> '' ORDER BY "+
			filenameOrder(q.dialect)+" LIMIT ? OFFSET ?",
		path, limit, offset)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		e, err := rows[i].entry()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (q *queries) CountChildren(ctx context.Context, path string) (int, error) {
	var n int64
	if err := q.scan(ctx, &n, "SELECT COUNT(*) FROM files WHERE path = ? AND filename <> ''", path); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (q *queries) update(ctx context.Context, op string, id metadata.FileID, sql string, args ...any) error {
	n, err := q.execN(ctx, sql, append(args, id.Instance, id.ID)...)
	if err != nil {
		return metadata.NewIOError(op, err)
	}
	if n == 0 {
		return metadata.NewNotFoundError(id.String(), "file")
	}
	return nil
}

func (q *queries) UpdatePermissions(ctx context.Context, id metadata.FileID, perms metadata.Permissions, ci, cid uint64) error {
	return q.update(ctx, "update permissions", id,
		"UPDATE files SET permissions = ?, change_instance = ?, change_id = ? WHERE instance = ? AND id = ?",
		perms.Encode(), ci, cid)
}

func (q *queries) UpdateTimestamp(ctx context.Context, id metadata.FileID, t time.Time, ci, cid uint64) error {
	return q.update(ctx, "update timestamp", id,
		"UPDATE files SET modified = ?, change_instance = ?, change_id = ? WHERE instance = ? AND id = ?",
		metadata.TimeToStorage(t), ci, cid)
}

func (q *queries) DeleteFile(ctx context.Context, id metadata.FileID) error {
	return q.update(ctx, "delete file", id, "DELETE FROM files WHERE instance = ? AND id = ?")
}

func (q *queries) InsertAncestry(ctx context.Context, child, parent metadata.FileID) error {
	err := q.exec(ctx,
		"INSERT INTO ancestry (instance, id, parent_instance, parent_id) VALUES (?, ?, ?, ?) ON CONFLICT (instance, id) DO NOTHING",
		child.Instance, child.ID, parent.Instance, parent.ID)
	if err != nil {
		return metadata.NewIOError("insert ancestry", err)
	}
	return nil
}

func (q *queries) GetParent(ctx context.Context, child metadata.FileID) (metadata.FileID, bool, error) {
	var rows []struct {
		ParentInstance uint64 `gorm:"column:parent_instance"`
		ParentID       uint64 `gorm:"column:parent_id"`
	}
	if err := q.scan(ctx, &rows, "SELECT parent_instance, parent_id FROM ancestry WHERE instance = ? AND id = ?", child.Instance, child.ID); err != nil {
		return metadata.FileID{}, false, err
	}
	if len(rows) == 0 {
		return metadata.FileID{}, false, nil
	}
	return metadata.FileID{Instance: rows[0].ParentInstance, ID: rows[0].ParentID}, true, nil
}

func (q *queries) DeleteAncestry(ctx context.Context, child metadata.FileID) error {
	if err := q.exec(ctx, "DELETE FROM ancestry WHERE instance = ? AND id = ?", child.Instance, child.ID); err != nil {
		return metadata.NewIOError("delete ancestry", err)
	}
	return nil
}
