package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/marmos91/dittoshare/internal/logger"
	"github.com/marmos91/dittoshare/internal/telemetry"
	"github.com/marmos91/dittoshare/pkg/blob"
	blobmemory "github.com/marmos91/dittoshare/pkg/blob/memory"
	blobs3 "github.com/marmos91/dittoshare/pkg/blob/s3"
	"github.com/marmos91/dittoshare/pkg/metadata"
	"github.com/marmos91/dittoshare/pkg/metadata/store/badger"
	metadatamemory "github.com/marmos91/dittoshare/pkg/metadata/store/memory"
	"github.com/marmos91/dittoshare/pkg/metadata/store/rdb"
	"github.com/marmos91/dittoshare/pkg/metrics"
	_ "github.com/marmos91/dittoshare/pkg/metrics/prometheus"
	"github.com/marmos91/dittoshare/pkg/share"
	"github.com/marmos91/dittoshare/pkg/staticdata"
)

// ShareOptions turns cfg into the options for share.Open. m may be nil.
func ShareOptions(cfg *Config, m metrics.ShareMetrics) (share.Options, error) {
	if cfg.Share.Root == "" {
		return share.Options{}, fmt.Errorf("share root is not configured (set share.root or pass --root)")
	}

	openStore, err := StoreOpener(cfg.Metadata)
	if err != nil {
		return share.Options{}, err
	}
	openBlobs, err := BlobOpener(cfg.Blob)
	if err != nil {
		return share.Options{}, err
	}

	return share.Options{
		Root:         cfg.Share.Root,
		Name:         cfg.Share.Name,
		StrangePaths: cfg.Share.StrangePaths,
		OpenStore:    openStore,
		OpenBlobs:    openBlobs,
		Metrics:      m,
	}, nil
}

// StoreOpener returns the metadata store factory for cfg.
func StoreOpener(cfg MetadataConfig) (share.StoreOpener, error) {
	switch cfg.Type {
	case "sqlite", "":
		return func(ctx context.Context, appDir string) (metadata.Store, error) {
			rc := rdb.Config{Type: rdb.DatabaseTypeSQLite, SQLite: rdb.SQLiteConfig{Path: cfg.SQLite.Path}}
			rc.ApplyDefaults(appDir)
			return openRDB(ctx, rc)
		}, nil

	case "postgres":
		return func(ctx context.Context, appDir string) (metadata.Store, error) {
			p := cfg.Postgres
			rc := rdb.Config{
				Type: rdb.DatabaseTypePostgres,
				Postgres: rdb.PostgresConfig{
					DSN:          p.DSN,
					Host:         p.Host,
					Port:         p.Port,
					Database:     p.Database,
					User:         p.User,
					Password:     p.Password,
					SSLMode:      p.SSLMode,
					MaxOpenConns: p.MaxOpenConns,
					MaxIdleConns: p.MaxIdleConns,
				},
			}
			rc.ApplyDefaults(appDir)
			return openRDB(ctx, rc)
		}, nil

	case "badger":
		return func(ctx context.Context, appDir string) (metadata.Store, error) {
			path := cfg.Badger.Path
			if path == "" {
				path = filepath.Join(appDir, share.DatabaseName)
			}
			s, err := badger.Open(ctx, badger.Config{
				Path:           path,
				BlockCacheSize: cfg.Badger.BlockCacheSize.Int64(),
				IndexCacheSize: cfg.Badger.IndexCacheSize.Int64(),
			})
			if err != nil {
				return nil, err
			}
			return s, nil
		}, nil

	case "memory":
		return func(context.Context, string) (metadata.Store, error) {
			return metadatamemory.New(), nil
		}, nil

	default:
		return nil, fmt.Errorf("unknown metadata store type: %q", cfg.Type)
	}
}

func openRDB(ctx context.Context, cfg rdb.Config) (metadata.Store, error) {
	s, err := rdb.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// BlobOpener returns the blob store factory for cfg. Every store is
// instrumented when metrics are enabled.
func BlobOpener(cfg BlobConfig) (share.BlobOpener, error) {
	switch cfg.Type {
	case "fs", "":
		return share.FilesystemBlobs, nil

	case "s3":
		return func(ctx context.Context, _ string, inst staticdata.Instance) (blob.Store, error) {
			s, err := blobs3.NewFromConfig(ctx, blobs3.Config{
				Bucket:          cfg.S3.Bucket,
				Region:          cfg.S3.Region,
				Endpoint:        cfg.S3.Endpoint,
				KeyPrefix:       cfg.S3.KeyPrefix + inst.Filename() + "/",
				ForcePathStyle:  cfg.S3.ForcePathStyle,
				AccessKeyID:     cfg.S3.AccessKeyID,
				SecretAccessKey: cfg.S3.SecretAccessKey,
			})
			if err != nil {
				return nil, err
			}
			return blob.Instrument(s, "s3", metrics.NewBlobMetrics()), nil
		}, nil

	case "memory":
		return func(context.Context, string, staticdata.Instance) (blob.Store, error) {
			return blob.Instrument(blobmemory.New(), "memory", metrics.NewBlobMetrics()), nil
		}, nil

	default:
		return nil, fmt.Errorf("unknown blob store type: %q", cfg.Type)
	}
}

// InitializeMetrics enables the Prometheus registry when cfg asks for it
// and returns the share metrics. Disabled metrics return nil, which every
// consumer treats as a no-op.
func InitializeMetrics(cfg *Config) metrics.ShareMetrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	metrics.InitRegistry()
	return metrics.NewShareMetrics()
}

// FlushMetrics writes the registry to the configured textfile.
func FlushMetrics(cfg *Config) error {
	if !cfg.Metrics.Enabled || !metrics.IsEnabled() {
		return nil
	}
	if err := metrics.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// InitializeTelemetry starts tracing and profiling as configured. The
// returned function stops both.
func InitializeTelemetry(ctx context.Context, cfg *Config, version string) (func(context.Context) error, error) {
	tc := telemetry.DefaultConfig()
	tc.Enabled = cfg.Telemetry.Enabled
	tc.Endpoint = cfg.Telemetry.Endpoint
	tc.Insecure = cfg.Telemetry.Insecure
	tc.SampleRate = cfg.Telemetry.SampleRate
	tc.ServiceVersion = version

	shutdownTracing, err := telemetry.Init(ctx, tc)
	if err != nil {
		return nil, err
	}

	stopProfiling, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    tc.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}
	if cfg.Telemetry.Enabled {
		logger.Debug("Tracing enabled", "endpoint", tc.Endpoint, "sample_rate", tc.SampleRate)
	}

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, cfg.Telemetry.ShutdownTimeout)
		defer cancel()
		return errors.Join(stopProfiling(), shutdownTracing(ctx))
	}, nil
}
