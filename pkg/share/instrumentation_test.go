package share_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoshare/pkg/blob"
	blobmemory "github.com/marmos91/dittoshare/pkg/blob/memory"
	"github.com/marmos91/dittoshare/pkg/metadata"
	"github.com/marmos91/dittoshare/pkg/metadata/store/memory"
	"github.com/marmos91/dittoshare/pkg/metrics"
	_ "github.com/marmos91/dittoshare/pkg/metrics/prometheus"
	"github.com/marmos91/dittoshare/pkg/share"
	"github.com/marmos91/dittoshare/pkg/staticdata"
)

func TestOperationMetrics(t *testing.T) {
	reg := metrics.InitRegistry()
	t.Cleanup(metrics.Reset)

	ctx := context.Background()
	c, err := share.Open(ctx, share.Options{
		Root: filepath.Join(t.TempDir(), "m"),
		Name: "m",
		OpenStore: func(context.Context, string) (metadata.Store, error) {
			return memory.New(), nil
		},
		OpenBlobs: func(context.Context, string, staticdata.Instance) (blob.Store, error) {
			return blob.Instrument(blobmemory.New(), "memory", metrics.NewBlobMetrics()), nil
		},
		Metrics: metrics.NewShareMetrics(),
	})
	require.NoError(t, err)
	defer c.Close()

	perms := metadata.NewPermissions(0o644, true)
	_, err = c.Create(ctx, "/a", perms)
	require.NoError(t, err)
	_, err = c.Create(ctx, "/a", perms)
	require.True(t, share.IsAlreadyExists(err))

	n, err := testutil.GatherAndCount(reg, "dittoshare_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one series per outcome")

	count, err := testutil.GatherAndCount(reg, "dittoshare_transactions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	blobSeries, err := testutil.GatherAndCount(reg, "dittoshare_blob_operations_total")
	require.NoError(t, err)
	assert.Positive(t, blobSeries)
}
