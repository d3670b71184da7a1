package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected default log output 'stderr', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_Telemetry(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Telemetry.Enabled {
		t.Error("Expected telemetry disabled by default")
	}
	if cfg.Telemetry.Endpoint != "localhost:4317" || !cfg.Telemetry.Insecure {
		t.Errorf("Expected insecure localhost:4317, got %q insecure=%v", cfg.Telemetry.Endpoint, cfg.Telemetry.Insecure)
	}
	if cfg.Telemetry.SampleRate != 1.0 {
		t.Errorf("Expected sample rate 1.0, got %v", cfg.Telemetry.SampleRate)
	}
	if cfg.Telemetry.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected shutdown timeout 5s, got %v", cfg.Telemetry.ShutdownTimeout)
	}
	if len(cfg.Telemetry.Profiling.ProfileTypes) != 6 {
		t.Errorf("Expected 6 default profile types, got %v", cfg.Telemetry.Profiling.ProfileTypes)
	}
}

func TestApplyDefaults_Stores(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Metadata.Type != "sqlite" {
		t.Errorf("Expected metadata type 'sqlite', got %q", cfg.Metadata.Type)
	}
	if cfg.Metadata.Postgres.Port != 0 {
		t.Errorf("Expected postgres defaults only for postgres, got port %d", cfg.Metadata.Postgres.Port)
	}
	if cfg.Blob.Type != "fs" {
		t.Errorf("Expected blob type 'fs', got %q", cfg.Blob.Type)
	}
}

func TestApplyDefaults_Postgres(t *testing.T) {
	cfg := &Config{Metadata: MetadataConfig{Type: "POSTGRES"}}
	ApplyDefaults(cfg)

	p := cfg.Metadata.Postgres
	if cfg.Metadata.Type != "postgres" {
		t.Errorf("Expected type normalized to 'postgres', got %q", cfg.Metadata.Type)
	}
	if p.Port != 5432 || p.SSLMode != "disable" || p.MaxOpenConns != 10 || p.MaxIdleConns != 2 {
		t.Errorf("Unexpected postgres defaults: %+v", p)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "json",
			Output: "/var/log/dittoshare.log",
		},
		Telemetry: TelemetryConfig{
			Endpoint:        "collector:4317",
			SampleRate:      0.25,
			ShutdownTimeout: time.Second,
		},
		Blob: BlobConfig{Type: "s3"},
	}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Output != "/var/log/dittoshare.log" {
		t.Errorf("Expected explicit output kept, got %q", cfg.Logging.Output)
	}
	if cfg.Telemetry.Insecure {
		t.Error("Expected insecure to stay false for an explicit endpoint")
	}
	if cfg.Telemetry.SampleRate != 0.25 {
		t.Errorf("Expected sample rate 0.25, got %v", cfg.Telemetry.SampleRate)
	}
	if cfg.Telemetry.ShutdownTimeout != time.Second {
		t.Errorf("Expected shutdown timeout 1s, got %v", cfg.Telemetry.ShutdownTimeout)
	}
	if cfg.Blob.Type != "s3" {
		t.Errorf("Expected blob type 's3', got %q", cfg.Blob.Type)
	}
}
