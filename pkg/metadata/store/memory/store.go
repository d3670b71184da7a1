// Package memory is an in-process metadata store backed by maps.
//
// It is used by tests and by shares configured with an ephemeral
// metadata backend. WithTransaction works on a copy of the state and
// swaps it in when fn succeeds, so a failed transaction leaves nothing
// behind.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/dittoshare/pkg/metadata"
)

type pathKey struct {
	path, filename string
}

type instanceKey struct {
	name string
	id   uuid.UUID
}

type state struct {
	version       uint32
	fileCounter   uint64
	changeCounter uint64

	instances map[instanceKey]uint64
	nextIndex uint64

	files    map[metadata.FileID]*metadata.FileEntry
	byPath   map[pathKey]metadata.FileID
	ancestry map[metadata.FileID]metadata.FileID
}

func newState() *state {
	return &state{
		instances: make(map[instanceKey]uint64),
		nextIndex: 1,
		files:     make(map[metadata.FileID]*metadata.FileEntry),
		byPath:    make(map[pathKey]metadata.FileID),
		ancestry:  make(map[metadata.FileID]metadata.FileID),
	}
}

func (s *state) clone() *state {
	c := *s
	c.instances = make(map[instanceKey]uint64, len(s.instances))
	for k, v := range s.instances {
		c.instances[k] = v
	}
	c.files = make(map[metadata.FileID]*metadata.FileEntry, len(s.files))
	for k, v := range s.files {
		c.files[k] = v.Clone()
	}
	c.byPath = make(map[pathKey]metadata.FileID, len(s.byPath))
	for k, v := range s.byPath {
		c.byPath[k] = v
	}
	c.ancestry = make(map[metadata.FileID]metadata.FileID, len(s.ancestry))
	for k, v := range s.ancestry {
		c.ancestry[k] = v
	}
	return &c
}

// Store is the in-memory metadata store.
type Store struct {
	mu     sync.RWMutex
	st     *state
	closed bool
}

var _ metadata.Store = (*Store)(nil)

// New returns an empty, not yet bootstrapped store.
func New() *Store {
	return &Store{st: newState()}
}

// tx is a view over a state. Store methods run each call through a tx on
// the live state; WithTransaction runs fn against a tx on a copy.
type tx struct {
	st *state
}

var _ metadata.Transaction = (*tx)(nil)

func (s *Store) read(ctx context.Context, fn func(t *tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return metadata.NewIOError("store closed", nil)
	}
	return fn(&tx{st: s.st})
}

func (s *Store) write(ctx context.Context, fn func(t *tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return metadata.NewIOError("store closed", nil)
	}
	work := s.st.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// WithTransaction implements metadata.Store.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx metadata.Transaction) error) error {
	return s.write(ctx, func(t *tx) error { return fn(t) })
}

// Bootstrap implements metadata.Store.
func (s *Store) Bootstrap(ctx context.Context, root *metadata.FileEntry) error {
	return s.write(ctx, func(t *tx) error {
		if t.st.version == 0 {
			t.st.version = metadata.CurrentSchemaVersion
			t.st.fileCounter = 1
			t.st.changeCounter = 1
		}
		return t.InsertFile(ctx, root)
	})
}

// SchemaVersion implements metadata.Store.
func (s *Store) SchemaVersion(ctx context.Context) (uint32, error) {
	var v uint32
	err := s.read(ctx, func(t *tx) error {
		v = t.st.version
		return nil
	})
	return v, err
}

// SetSchemaVersion implements metadata.Store.
func (s *Store) SetSchemaVersion(ctx context.Context, v uint32) error {
	return s.write(ctx, func(t *tx) error {
		t.st.version = v
		return nil
	})
}

// Upgrade implements metadata.Store. There are no steps yet; the ladder
// only validates the stored version.
func (s *Store) Upgrade(ctx context.Context) (uint32, uint32, error) {
	return metadata.ApplyUpgrades(ctx, s, metadata.CurrentSchemaVersion, nil)
}

// HealthCheck implements metadata.Store.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.read(ctx, func(*tx) error { return nil })
}

// Close implements metadata.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *Store) GetFileCounter(ctx context.Context) (v uint64, err error) {
	err = s.read(ctx, func(t *tx) error { v, err = t.GetFileCounter(ctx); return err })
	return v, err
}

func (s *Store) IncrementFileCounter(ctx context.Context) error {
	return s.write(ctx, func(t *tx) error { return t.IncrementFileCounter(ctx) })
}

func (s *Store) GetChangeCounter(ctx context.Context) (v uint64, err error) {
	err = s.read(ctx, func(t *tx) error { v, err = t.GetChangeCounter(ctx); return err })
	return v, err
}

func (s *Store) IncrementChangeCounter(ctx context.Context) error {
	return s.write(ctx, func(t *tx) error { return t.IncrementChangeCounter(ctx) })
}

func (s *Store) InsertInstance(ctx context.Context, name string, id uuid.UUID) error {
	return s.write(ctx, func(t *tx) error { return t.InsertInstance(ctx, name, id) })
}

func (s *Store) GetInstanceIndex(ctx context.Context, name string, id uuid.UUID) (idx uint64, ok bool, err error) {
	err = s.read(ctx, func(t *tx) error { idx, ok, err = t.GetInstanceIndex(ctx, name, id); return err })
	return idx, ok, err
}

func (s *Store) InsertFile(ctx context.Context, e *metadata.FileEntry) error {
	return s.write(ctx, func(t *tx) error { return t.InsertFile(ctx, e) })
}

func (s *Store) GetFile(ctx context.Context, id metadata.FileID) (e *metadata.FileEntry, ok bool, err error) {
	err = s.read(ctx, func(t *tx) error { e, ok, err = t.GetFile(ctx, id); return err })
	return e, ok, err
}

func (s *Store) GetFileByPath(ctx context.Context, path, filename string) (e *metadata.FileEntry, ok bool, err error) {
	err = s.read(ctx, func(t *tx) error { e, ok, err = t.GetFileByPath(ctx, path, filename); return err })
	return e, ok, err
}

func (s *Store) ListDirectory(ctx context.Context, path string, offset, limit int) (out []*metadata.FileEntry, err error) {
	err = s.read(ctx, func(t *tx) error { out, err = t.ListDirectory(ctx, path, offset, limit); return err })
	return out, err
}

func (s *Store) CountChildren(ctx context.Context, path string) (n int, err error) {
	err = s.read(ctx, func(t *tx) error { n, err = t.CountChildren(ctx, path); return err })
	return n, err
}

func (s *Store) UpdatePermissions(ctx context.Context, id metadata.FileID, perms metadata.Permissions, ci, cid uint64) error {
	return s.write(ctx, func(t *tx) error { return t.UpdatePermissions(ctx, id, perms, ci, cid) })
}

func (s *Store) UpdateTimestamp(ctx context.Context, id metadata.FileID, ts time.Time, ci, cid uint64) error {
	return s.write(ctx, func(t *tx) error { return t.UpdateTimestamp(ctx, id, ts, ci, cid) })
}

func (s *Store) DeleteFile(ctx context.Context, id metadata.FileID) error {
	return s.write(ctx, func(t *tx) error { return t.DeleteFile(ctx, id) })
}

func (s *Store) InsertAncestry(ctx context.Context, child, parent metadata.FileID) error {
	return s.write(ctx, func(t *tx) error { return t.InsertAncestry(ctx, child, parent) })
}

func (s *Store) GetParent(ctx context.Context, child metadata.FileID) (p metadata.FileID, ok bool, err error) {
	err = s.read(ctx, func(t *tx) error { p, ok, err = t.GetParent(ctx, child); return err })
	return p, ok, err
}

func (s *Store) DeleteAncestry(ctx context.Context, child metadata.FileID) error {
	return s.write(ctx, func(t *tx) error { return t.DeleteAncestry(ctx, child) })
}

func (t *tx) GetFileCounter(context.Context) (uint64, error)   { return t.st.fileCounter, nil }
func (t *tx) GetChangeCounter(context.Context) (uint64, error) { return t.st.changeCounter, nil }

func (t *tx) IncrementFileCounter(context.Context) error {
	t.st.fileCounter++
	return nil
}

func (t *tx) IncrementChangeCounter(context.Context) error {
	t.st.changeCounter++
	return nil
}

func (t *tx) InsertInstance(_ context.Context, name string, id uuid.UUID) error {
	k := instanceKey{name, id}
	if _, ok := t.st.instances[k]; ok {
		return nil
	}
	t.st.instances[k] = t.st.nextIndex
	t.st.nextIndex++
	return nil
}

func (t *tx) GetInstanceIndex(_ context.Context, name string, id uuid.UUID) (uint64, bool, error) {
	idx, ok := t.st.instances[instanceKey{name, id}]
	return idx, ok, nil
}

func (t *tx) InsertFile(_ context.Context, e *metadata.FileEntry) error {
	if _, ok := t.st.files[e.FileID]; ok {
		return nil
	}
	pk := pathKey{e.Path, e.Filename}
	if _, ok := t.st.byPath[pk]; ok {
		return metadata.NewConstraintError(e.FullPath(), nil)
	}
	c := e.Clone()
	c.Timestamp = c.Timestamp.UTC()
	t.st.files[e.FileID] = c
	t.st.byPath[pk] = e.FileID
	return nil
}

func (t *tx) GetFile(_ context.Context, id metadata.FileID) (*metadata.FileEntry, bool, error) {
	e, ok := t.st.files[id]
	if !ok {
		return nil, false, nil
	}
	return e.Clone(), true, nil
}

func (t *tx) GetFileByPath(ctx context.Context, path, filename string) (*metadata.FileEntry, bool, error) {
	id, ok := t.st.byPath[pathKey{path, filename}]
	if !ok {
		return nil, false, nil
	}
	return t.GetFile(ctx, id)
}

func (t *tx) children(path string) []*metadata.FileEntry {
	var out []*metadata.FileEntry
	for k, id := range t.st.byPath {
		// The root is stored with an empty Path and must not list itself.
		if k.path == path && !(path == "" && k.filename == "") {
			out = append(out, t.st.files[id])
		}
	}
	return out
}

func (t *tx) ListDirectory(_ context.Context, path string, offset, limit int) ([]*metadata.FileEntry, error) {
	kids := t.children(path)
	sort.Slice(kids, func(i, j int) bool { return kids[i].Filename < kids[j].Filename })

	if offset < 0 {
		offset = 0
	}
	if offset >= len(kids) || limit <= 0 {
		return []*metadata.FileEntry{}, nil
	}
	end := min(offset+limit, len(kids))

	out := make([]*metadata.FileEntry, 0, end-offset)
	for _, e := range kids[offset:end] {
		out = append(out, e.Clone())
	}
	return out, nil
}

func (t *tx) CountChildren(_ context.Context, path string) (int, error) {
	return len(t.children(path)), nil
}

func (t *tx) UpdatePermissions(_ context.Context, id metadata.FileID, perms metadata.Permissions, ci, cid uint64) error {
	e, ok := t.st.files[id]
	if !ok {
		return metadata.NewNotFoundError(id.String(), "file")
	}
	e.Permissions = perms
	e.ChangeInstance, e.ChangeID = ci, cid
	return nil
}

func (t *tx) UpdateTimestamp(_ context.Context, id metadata.FileID, ts time.Time, ci, cid uint64) error {
	e, ok := t.st.files[id]
	if !ok {
		return metadata.NewNotFoundError(id.String(), "file")
	}
	e.Timestamp = ts.UTC()
	e.ChangeInstance, e.ChangeID = ci, cid
	return nil
}

func (t *tx) DeleteFile(_ context.Context, id metadata.FileID) error {
	e, ok := t.st.files[id]
	if !ok {
		return metadata.NewNotFoundError(id.String(), "file")
	}
	delete(t.st.byPath, pathKey{e.Path, e.Filename})
	delete(t.st.files, id)
	return nil
}

func (t *tx) InsertAncestry(_ context.Context, child, parent metadata.FileID) error {
	if _, ok := t.st.ancestry[child]; !ok {
		t.st.ancestry[child] = parent
	}
	return nil
}

func (t *tx) GetParent(_ context.Context, child metadata.FileID) (metadata.FileID, bool, error) {
	p, ok := t.st.ancestry[child]
	return p, ok, nil
}

func (t *tx) DeleteAncestry(_ context.Context, child metadata.FileID) error {
	delete(t.st.ancestry, child)
	return nil
}
