// Package blobtest is a conformance suite for blob.Store implementations.
package blobtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoshare/pkg/blob"
)

// StoreFactory returns a fresh, empty store.
type StoreFactory func(t *testing.T) blob.Store

// RunConformanceSuite runs every blob store check against factory.
func RunConformanceSuite(t *testing.T, factory StoreFactory) {
	t.Helper()

	t.Run("PutGet", func(t *testing.T) {
		s := factory(t)
		ctx := t.Context()

		require.NoError(t, s.Put(ctx, "1-1-1-1", nil))
		data, err := s.Get(ctx, "1-1-1-1")
		require.NoError(t, err)
		assert.Empty(t, data)

		require.NoError(t, s.Put(ctx, "1-1-1-1", []byte("hello")))
		data, err = s.Get(ctx, "1-1-1-1")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := factory(t)
		_, err := s.Get(t.Context(), "nope")
		assert.ErrorIs(t, err, blob.ErrNotFound)
	})

	t.Run("Exists", func(t *testing.T) {
		s := factory(t)
		ctx := t.Context()

		ok, err := s.Exists(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.Put(ctx, "k", []byte{1}))
		ok, err = s.Exists(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Rename", func(t *testing.T) {
		s := factory(t)
		ctx := t.Context()

		require.NoError(t, s.Put(ctx, "old", []byte("x")))
		require.NoError(t, s.Rename(ctx, "old", "new"))

		ok, _ := s.Exists(ctx, "old")
		assert.False(t, ok)
		data, err := s.Get(ctx, "new")
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), data)

		// Replay after the rename already happened.
		require.NoError(t, s.Rename(ctx, "old", "new"))

		assert.ErrorIs(t, s.Rename(ctx, "ghost", "ghost2"), blob.ErrNotFound)
	})

	t.Run("RenameReplacesTarget", func(t *testing.T) {
		s := factory(t)
		ctx := t.Context()

		require.NoError(t, s.Put(ctx, "a", []byte("A")))
		require.NoError(t, s.Put(ctx, "b", []byte("B")))
		require.NoError(t, s.Rename(ctx, "a", "b"))

		data, err := s.Get(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, []byte("A"), data)
	})

	t.Run("Delete", func(t *testing.T) {
		s := factory(t)
		ctx := t.Context()

		require.NoError(t, s.Put(ctx, "d", []byte("x")))
		require.NoError(t, s.Delete(ctx, "d"))
		require.NoError(t, s.Delete(ctx, "d"))

		ok, _ := s.Exists(ctx, "d")
		assert.False(t, ok)
	})

	t.Run("List", func(t *testing.T) {
		s := factory(t)
		ctx := t.Context()

		for _, k := range []string{"2-1-5-1", "1-1-3-1", "10-1-1-1"} {
			require.NoError(t, s.Put(ctx, k, nil))
		}

		all, err := s.List(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"1-1-3-1", "10-1-1-1", "2-1-5-1"}, all)

		ones, err := s.List(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, []string{"1-1-3-1", "10-1-1-1"}, ones)

		none, err := s.List(ctx, "9")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("HealthCheck", func(t *testing.T) {
		assert.NoError(t, factory(t).HealthCheck(t.Context()))
	})

	t.Run("Closed", func(t *testing.T) {
		s := factory(t)
		require.NoError(t, s.Close())
		assert.ErrorIs(t, s.Put(t.Context(), "k", nil), blob.ErrStoreClosed)
	})
}
