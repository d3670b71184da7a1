package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/dittoshare/internal/bytesize"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
// On Windows, backslashes in double-quoted YAML strings are interpreted as
// escape sequences.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_Minimal(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, "config.yaml", `
logging:
  level: "debug"

share:
  root: "`+yamlSafePath(root)+`/docs"
  name: alpha
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level normalized to 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Share.Name != "alpha" {
		t.Errorf("Expected share name 'alpha', got %q", cfg.Share.Name)
	}
	if cfg.Metadata.Type != "sqlite" {
		t.Errorf("Expected default metadata type 'sqlite', got %q", cfg.Metadata.Type)
	}
	if cfg.Blob.Type != "fs" {
		t.Errorf("Expected default blob type 'fs', got %q", cfg.Blob.Type)
	}
	if cfg.Telemetry.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected default shutdown timeout 5s, got %v", cfg.Telemetry.ShutdownTimeout)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid.yaml", `
logging:
  level: INFO
  invalid yaml here [[[
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
metadata:
  type: mongodb
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Expected validation error for unknown metadata type")
	}
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[logging]
level = "WARN"
format = "json"

[metadata]
type = "badger"

[metadata.badger]
block_cache_size = "64Mi"
index_cache_size = 1048576

[telemetry]
shutdown_timeout = "2s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Metadata.Badger.BlockCacheSize != 64*bytesize.MiB {
		t.Errorf("Expected block cache 64Mi, got %v", cfg.Metadata.Badger.BlockCacheSize)
	}
	if cfg.Metadata.Badger.IndexCacheSize != bytesize.MiB {
		t.Errorf("Expected index cache 1Mi, got %v", cfg.Metadata.Badger.IndexCacheSize)
	}
	if cfg.Telemetry.ShutdownTimeout != 2*time.Second {
		t.Errorf("Expected shutdown timeout 2s, got %v", cfg.Telemetry.ShutdownTimeout)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("DITTOSHARE_LOGGING_LEVEL", "ERROR")
	t.Setenv("DITTOSHARE_SHARE_ROOT", "/srv/from-env")
	t.Setenv("DITTOSHARE_SHARE_STRANGE_PATHS", "true")
	t.Setenv("DITTOSHARE_BLOB_S3_BUCKET", "env-bucket")

	path := writeConfig(t, "config.yaml", `
logging:
  level: "INFO"
share:
  root: /srv/from-file
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.Share.Root != "/srv/from-env" {
		t.Errorf("Expected root from env var, got %q", cfg.Share.Root)
	}
	if !cfg.Share.StrangePaths {
		t.Error("Expected strange_paths from env var")
	}
	if cfg.Blob.S3.Bucket != "env-bucket" {
		t.Errorf("Expected bucket from env var, got %q", cfg.Blob.S3.Bucket)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Share.Root = "/srv/docs"
	cfg.Metadata.Type = "badger"
	cfg.Metadata.Badger.BlockCacheSize = 32 * bytesize.MiB

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Config file not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to reload saved config: %v", err)
	}
	if loaded.Share.Root != "/srv/docs" {
		t.Errorf("Expected root '/srv/docs', got %q", loaded.Share.Root)
	}
	if loaded.Metadata.Badger.BlockCacheSize != 32*bytesize.MiB {
		t.Errorf("Expected block cache 32Mi, got %v", loaded.Metadata.Badger.BlockCacheSize)
	}
	if loaded.Telemetry.ShutdownTimeout != cfg.Telemetry.ShutdownTimeout {
		t.Errorf("Expected shutdown timeout %v, got %v", cfg.Telemetry.ShutdownTimeout, loaded.Telemetry.ShutdownTimeout)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path := GetDefaultConfigPath()
	if !filepath.IsAbs(path) {
		t.Errorf("Expected absolute path, got %q", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
	if filepath.Base(GetConfigDir()) != "dittoshare" {
		t.Errorf("Expected directory name 'dittoshare', got %q", filepath.Base(GetConfigDir()))
	}
	if DefaultConfigExists() {
		t.Error("Expected no config in a fresh XDG_CONFIG_HOME")
	}
}
