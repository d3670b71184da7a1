//go:build integration

package rdb_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marmos91/dittoshare/pkg/metadata"
	"github.com/marmos91/dittoshare/pkg/metadata/store/rdb"
	"github.com/marmos91/dittoshare/pkg/metadata/storetest"
)

// postgresDSN returns DITTOSHARE_TEST_POSTGRES_DSN, or starts a throwaway
// PostgreSQL container when it is unset.
func postgresDSN(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("DITTOSHARE_TEST_POSTGRES_DSN"); dsn != "" {
		return dsn
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("dittoshare_test"),
		tcpostgres.WithUsername("dittoshare"),
		tcpostgres.WithPassword("dittoshare"),
		testcontainers.WithWaitStrategyAndDeadline(2*time.Minute,
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}
	return dsn
}

func TestPostgresConformance(t *testing.T) {
	dsn := postgresDSN(t)

	storetest.RunConformanceSuite(t, func(t *testing.T) metadata.Store {
		store, err := rdb.Open(context.Background(), rdb.Config{
			Type:     rdb.DatabaseTypePostgres,
			Postgres: rdb.PostgresConfig{DSN: dsn, MaxOpenConns: 4, MaxIdleConns: 1},
		})
		if err != nil {
			t.Fatalf("Open() failed: %v", err)
		}
		// Tests share one database; start each from empty tables.
		for _, table := range []string{"ancestry", "files", "instances", "counters", "stats"} {
			if err := store.DB().Exec("DROP TABLE IF EXISTS " + table).Error; err != nil {
				t.Fatalf("drop %s: %v", table, err)
			}
		}
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}
