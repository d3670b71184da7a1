package s3

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoshare/pkg/blob"
)

func TestIsNotFoundError(t *testing.T) {
	assert.False(t, isNotFoundError(nil))
	assert.True(t, isNotFoundError(fmt.Errorf("op: %w", &types.NoSuchKey{})))
	assert.True(t, isNotFoundError(&types.NotFound{}))
	assert.True(t, isNotFoundError(errors.New("https response error StatusCode: 404, RequestID: x")))
	assert.False(t, isNotFoundError(errors.New("AccessDenied")))
}

func TestFullKey(t *testing.T) {
	s := New(nil, Config{Bucket: "b", KeyPrefix: "alpha-00ff/"})
	assert.Equal(t, "alpha-00ff/1-1-1-1", s.fullKey("1-1-1-1"))
}

func TestClosedStore(t *testing.T) {
	s := New(nil, Config{Bucket: "b"})
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Put(t.Context(), "k", nil), blob.ErrStoreClosed)
	_, err := s.List(t.Context(), "")
	assert.ErrorIs(t, err, blob.ErrStoreClosed)
	assert.ErrorIs(t, s.HealthCheck(t.Context()), blob.ErrStoreClosed)
}

func TestNewFromConfigRequiresBucket(t *testing.T) {
	_, err := NewFromConfig(t.Context(), Config{})
	assert.Error(t, err)
}
