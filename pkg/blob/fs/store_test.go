package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoshare/pkg/blob"
	"github.com/marmos91/dittoshare/pkg/blob/blobtest"
)

func TestConformance(t *testing.T) {
	blobtest.RunConformanceSuite(t, func(t *testing.T) blob.Store {
		s, err := New(Config{BasePath: t.TempDir()})
		require.NoError(t, err)
		return s
	})
}

func TestRejectsUnsafeKeys(t *testing.T) {
	s, err := New(Config{BasePath: t.TempDir(), NoSync: true})
	require.NoError(t, err)

	for _, k := range []string{"", "..", "a/b", `a\b`, "x.tmp"} {
		assert.Error(t, s.Put(t.Context(), k, nil), k)
	}
}

func TestNewRemovesStaleTemps(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1-1-1-1.123.tmp"), []byte("partial"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2-1-2-1"), nil, 0o644))

	s, err := New(Config{BasePath: dir})
	require.NoError(t, err)

	keys, err := s.List(t.Context(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"2-1-2-1"}, keys)

	_, err = os.Stat(filepath.Join(dir, "1-1-1-1.123.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileMode(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Config{BasePath: dir, FileMode: 0o600})
	require.NoError(t, err)

	require.NoError(t, s.Put(t.Context(), "k", []byte("x")))
	info, err := os.Stat(filepath.Join(dir, "k"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
