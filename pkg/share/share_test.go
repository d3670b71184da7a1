package share

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoshare/pkg/blob"
	"github.com/marmos91/dittoshare/pkg/metadata"
	"github.com/marmos91/dittoshare/pkg/staticdata"
)

var (
	filePerms = metadata.NewPermissions(0o644, true)
	dirPerms  = metadata.NewPermissions(0o755, false)
)

func openShare(t *testing.T, root, name string) *Core {
	t.Helper()
	c, err := Open(context.Background(), Options{Root: root, Name: name})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newShare(t *testing.T) (*Core, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "alpha")
	return openShare(t, root, "alpha"), root
}

func blobExists(t *testing.T, c *Core, e *metadata.FileEntry) bool {
	t.Helper()
	ok, err := c.blobs.Exists(context.Background(), blobKey(e))
	require.NoError(t, err)
	return ok
}

func TestOpenCreatesShare(t *testing.T) {
	c, root := newShare(t)

	assert.Equal(t, Created, c.Outcome())
	assert.Equal(t, root, c.GetRoot())
	assert.Equal(t, "alpha", c.Instance().Name)
	id := c.Instance().ID
	assert.Equal(t, "alpha-"+fmt.Sprintf("%x", id[:]), c.InstanceFilename())

	for _, dir := range []string{AppDirName, filepath.Join(AppDirName, FilesDir), filepath.Join(AppDirName, TransactionsDir)} {
		info, err := os.Stat(filepath.Join(root, dir))
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())
	}

	inst, err := staticdata.Load(filepath.Join(AppDir(root), StaticName))
	require.NoError(t, err)
	assert.Equal(t, c.Instance(), inst)

	readme, err := os.ReadFile(filepath.Join(root, ReadmeName))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "Do not modify")

	e, found, err := c.Get(context.Background(), "/")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, e.IsRoot())
	assert.True(t, e.IsDir())
	assert.Equal(t, metadata.RootPermissions, e.Permissions)

	require.NoError(t, c.HealthCheck(context.Background()))
}

func TestOpenRequiresName(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing")

	_, err := Open(context.Background(), Options{Root: root})
	require.Error(t, err)
	assert.True(t, IsUserError(err))
	assert.NoDirExists(t, root)

	_, err = Open(context.Background(), Options{Root: root, Name: "bad/name"})
	require.Error(t, err)
	assert.True(t, IsUserError(err))
	assert.NoDirExists(t, root)

	_, err = Open(context.Background(), Options{})
	assert.True(t, IsUserError(err))
}

func TestRestoreIgnoresName(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "alpha")

	c, err := Open(ctx, Options{Root: root, Name: "alpha"})
	require.NoError(t, err)
	inst := c.Instance()
	require.NoError(t, c.Close())

	r := openShare(t, root, "beta")
	assert.Equal(t, Restored, r.Outcome())
	assert.Equal(t, inst, r.Instance())
}

func TestRestoreCorruptStatic(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "alpha")

	c, err := Open(ctx, Options{Root: root, Name: "alpha"})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	require.NoError(t, os.WriteFile(filepath.Join(AppDir(root), StaticName), []byte("garbage"), 0o644))

	_, err = Open(ctx, Options{Root: root})
	require.Error(t, err)
	assert.True(t, IsSystemError(err))
	assert.Contains(t, err.Error(), "could not read static data")
}

func TestFileLifecycle(t *testing.T) {
	ctx := context.Background()
	c, _ := newShare(t)

	e, err := c.Create(ctx, "/notes.txt", filePerms)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), e.ID)
	assert.Equal(t, uint64(1), e.Instance)
	assert.Equal(t, "/", e.Path)
	assert.Equal(t, "notes.txt", e.Filename)
	assert.True(t, e.IsFile())
	assert.True(t, blobExists(t, c, e))

	_, err = c.Create(ctx, "/notes.txt", filePerms)
	require.Error(t, err)
	assert.True(t, IsAlreadyExists(err))

	got, found, err := c.Get(ctx, "/notes.txt")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, e.FileID, got.FileID)
	assert.Equal(t, e.ChangeID, got.ChangeID)

	updated, err := c.SetPermissions(ctx, got, metadata.NewPermissions(0o600, false))
	require.NoError(t, err)
	assert.Equal(t, e.FileID, updated.FileID)
	assert.Greater(t, updated.ChangeID, e.ChangeID)
	assert.Equal(t, uint32(0o600), updated.Permissions.Mode())
	assert.True(t, updated.IsFile(), "kind must survive a permission change")
	assert.False(t, blobExists(t, c, e))
	assert.True(t, blobExists(t, c, updated))

	stored, _, err := c.Get(ctx, "/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, updated.Permissions, stored.Permissions)
	assert.Equal(t, updated.ChangeID, stored.ChangeID)

	require.NoError(t, c.Delete(ctx, e))
	_, found, err = c.Get(ctx, "/notes.txt")
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, blobExists(t, c, updated))

	err = c.Delete(ctx, e)
	assert.True(t, IsNotFound(err))
}

func TestSetTimestamp(t *testing.T) {
	ctx := context.Background()
	c, _ := newShare(t)

	e, err := c.Create(ctx, "/d", dirPerms)
	require.NoError(t, err)

	ts := time.Date(2021, 3, 4, 5, 6, 7, 8, time.FixedZone("X", 3600))
	updated, err := c.SetTimestamp(ctx, e, ts)
	require.NoError(t, err)
	assert.True(t, updated.Timestamp.Equal(ts))
	assert.Equal(t, time.UTC, updated.Timestamp.Location())
	assert.Equal(t, e.Permissions, updated.Permissions)

	got, _, err := c.Get(ctx, "/d")
	require.NoError(t, err)
	assert.True(t, got.Timestamp.Equal(ts))
	assert.Equal(t, updated.ChangeID, got.ChangeID)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	c, _ := newShare(t)

	_, err := c.Create(ctx, "/f", filePerms)
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		code metadata.ErrorCode
	}{
		{"Root", "/", metadata.ErrAlreadyExists},
		{"Relative", "f2", metadata.ErrInvalidArgument},
		{"MissingParent", "/nope/f", metadata.ErrNotFound},
		{"ParentIsFile", "/f/child", metadata.ErrNotDirectory},
		{"StrangeChars", "/a:b", metadata.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Create(ctx, tt.path, filePerms)
			require.Error(t, err)
			assert.True(t, IsUserError(err), "%v", err)
			assert.Equal(t, tt.code, CodeOf(err))
		})
	}
}

func TestStrangePaths(t *testing.T) {
	ctx := context.Background()
	c, err := Open(ctx, Options{Root: filepath.Join(t.TempDir(), "s"), Name: "s", StrangePaths: true})
	require.NoError(t, err)
	defer c.Close()

	e, err := c.Create(ctx, "/a:b?", filePerms)
	require.NoError(t, err)
	assert.Equal(t, "a:b?", e.Filename)
}

func TestGetDirectory(t *testing.T) {
	ctx := context.Background()
	c, _ := newShare(t)

	dir, err := c.Create(ctx, "/d", dirPerms)
	require.NoError(t, err)
	for _, name := range []string{"c", "a", "b"} {
		_, err := c.Create(ctx, "/d/"+name, filePerms)
		require.NoError(t, err)
	}

	names := func(es []*metadata.FileEntry) []string {
		out := make([]string, len(es))
		for i, e := range es {
			out[i] = e.Filename
		}
		return out
	}

	page, err := c.GetDirectory(ctx, dir, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names(page))

	page, err = c.GetDirectory(ctx, dir, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, names(page))

	page, err = c.GetDirectory(ctx, dir, 5, 10)
	require.NoError(t, err)
	assert.Empty(t, page)

	page, err = c.GetDirectory(ctx, dir, 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, page)
	assert.Empty(t, page)

	_, err = c.GetDirectory(ctx, dir, -1, 1)
	assert.Equal(t, metadata.ErrInvalidArgument, CodeOf(err))
	_, err = c.GetDirectory(ctx, nil, 0, 1)
	assert.Equal(t, metadata.ErrInvalidArgument, CodeOf(err))

	file, _, err := c.Get(ctx, "/d/a")
	require.NoError(t, err)
	_, err = c.GetDirectory(ctx, file, 0, 1)
	assert.Equal(t, metadata.ErrNotDirectory, CodeOf(err))

	root, _, err := c.Get(ctx, "/")
	require.NoError(t, err)
	page, err = c.GetDirectory(ctx, root, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, names(page))
}

func TestDeleteRules(t *testing.T) {
	ctx := context.Background()
	c, _ := newShare(t)

	root, _, err := c.Get(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, metadata.ErrInvalidArgument, CodeOf(c.Delete(ctx, root)))

	dir, err := c.Create(ctx, "/d", dirPerms)
	require.NoError(t, err)
	child, err := c.Create(ctx, "/d/f", filePerms)
	require.NoError(t, err)

	assert.Equal(t, metadata.ErrNotEmpty, CodeOf(c.Delete(ctx, dir)))

	require.NoError(t, c.Delete(ctx, child))
	require.NoError(t, c.Delete(ctx, dir))

	_, err = c.GetDirectory(ctx, dir, 0, 1)
	assert.True(t, IsNotFound(err))
}

func TestIdsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "alpha")

	c, err := Open(ctx, Options{Root: root, Name: "alpha"})
	require.NoError(t, err)
	a, err := c.Create(ctx, "/a", filePerms)
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, a))
	require.NoError(t, c.Close())

	r := openShare(t, root, "")
	b, err := r.Create(ctx, "/a", filePerms)
	require.NoError(t, err)
	assert.Greater(t, b.ID, a.ID)
	assert.Greater(t, b.ChangeID, a.ChangeID)
	assert.Equal(t, a.Instance, b.Instance)
}

func TestConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	c, _ := newShare(t)

	const n = 16
	ids := make([]uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := c.Create(ctx, fmt.Sprintf("/f%02d", i), filePerms)
			if assert.NoError(t, err) {
				ids[i] = e.ID
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}

	root, _, err := c.Get(ctx, "/")
	require.NoError(t, err)
	page, err := c.GetDirectory(ctx, root, 0, 100)
	require.NoError(t, err)
	assert.Len(t, page, n)
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	c, _ := newShare(t)
	e, err := c.Create(ctx, "/f", filePerms)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.Create(ctx, "/g", filePerms)
	assert.ErrorIs(t, err, ErrClosed)
	_, _, err = c.Get(ctx, "/f")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.SetPermissions(ctx, e, filePerms)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Delete(ctx, e), ErrClosed)
	assert.ErrorIs(t, c.HealthCheck(ctx), ErrClosed)
}

func TestBlobKeyFollowsVersion(t *testing.T) {
	e := &metadata.FileEntry{
		FileID:         metadata.FileID{Instance: 2, ID: 7},
		ChangeInstance: 3,
		ChangeID:       9,
	}
	assert.Equal(t, blob.Key(7, 2, 9, 3), blobKey(e))
}
