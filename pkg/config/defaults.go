package config

import (
	"strings"
	"time"
)

// ApplyDefaults fills every unset field. Explicit values are kept.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetadataDefaults(&cfg.Metadata)
	applyBlobDefaults(&cfg.Blob)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	cfg.Format = strings.ToLower(cfg.Format)
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
		// A collector on localhost is assumed to be a development setup.
		cfg.Insecure = true
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	applyProfilingDefaults(&cfg.Profiling)
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyMetadataDefaults(cfg *MetadataConfig) {
	if cfg.Type == "" {
		cfg.Type = "sqlite"
	}
	cfg.Type = strings.ToLower(cfg.Type)

	if cfg.Type == "postgres" {
		if cfg.Postgres.Port == 0 {
			cfg.Postgres.Port = 5432
		}
		if cfg.Postgres.SSLMode == "" {
			cfg.Postgres.SSLMode = "disable"
		}
		if cfg.Postgres.MaxOpenConns == 0 {
			cfg.Postgres.MaxOpenConns = 10
		}
		if cfg.Postgres.MaxIdleConns == 0 {
			cfg.Postgres.MaxIdleConns = 2
		}
	}
}

func applyBlobDefaults(cfg *BlobConfig) {
	if cfg.Type == "" {
		cfg.Type = "fs"
	}
	cfg.Type = strings.ToLower(cfg.Type)
}

// GetDefaultConfig returns a Config with every default applied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
