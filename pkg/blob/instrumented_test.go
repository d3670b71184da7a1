package blob_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoshare/pkg/blob"
	"github.com/marmos91/dittoshare/pkg/blob/memory"
)

type call struct {
	backend, op string
	failed      bool
}

type recorder struct {
	mu    sync.Mutex
	calls []call
	bytes map[string]int64
}

func (r *recorder) ObserveOperation(backend, op string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{backend, op, err != nil})
}

func (r *recorder) RecordBytes(_, op string, n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bytes == nil {
		r.bytes = map[string]int64{}
	}
	r.bytes[op] += n
}

func TestInstrumentNilMetrics(t *testing.T) {
	s := memory.New()
	assert.Same(t, s, blob.Instrument(s, "memory", nil))
}

func TestInstrumentRecordsCalls(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	s := blob.Instrument(memory.New(), "memory", rec)

	require.NoError(t, s.Put(ctx, "1-1-1-1", []byte("abc")))
	_, err := s.Get(ctx, "1-1-1-1")
	require.NoError(t, err)
	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, blob.ErrNotFound)
	require.NoError(t, s.Rename(ctx, "1-1-1-1", "1-1-2-1"))
	ok, err := s.Exists(ctx, "1-1-2-1")
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = s.List(ctx, "")
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "1-1-2-1"))
	require.NoError(t, s.HealthCheck(ctx))

	assert.Equal(t, []call{
		{"memory", "put", false},
		{"memory", "get", false},
		{"memory", "get", true},
		{"memory", "rename", false},
		{"memory", "exists", false},
		{"memory", "list", false},
		{"memory", "delete", false},
	}, rec.calls)
	assert.Equal(t, int64(3), rec.bytes["put"])
	assert.Equal(t, int64(3), rec.bytes["get"])
}
