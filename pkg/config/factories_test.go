package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/marmos91/dittoshare/pkg/metadata"
	"github.com/marmos91/dittoshare/pkg/metrics"
	"github.com/marmos91/dittoshare/pkg/share"
)

func TestShareOptions_RequiresRoot(t *testing.T) {
	if _, err := ShareOptions(GetDefaultConfig(), nil); err == nil {
		t.Fatal("Expected error without share root")
	}
}

func TestShareOptions_UnknownTypes(t *testing.T) {
	if _, err := StoreOpener(MetadataConfig{Type: "mongodb"}); err == nil {
		t.Error("Expected error for unknown metadata type")
	}
	if _, err := BlobOpener(BlobConfig{Type: "ftp"}); err == nil {
		t.Error("Expected error for unknown blob type")
	}
}

func openWith(t *testing.T, cfg *Config) *share.Core {
	t.Helper()
	opts, err := ShareOptions(cfg, nil)
	if err != nil {
		t.Fatalf("ShareOptions failed: %v", err)
	}
	c, err := share.Open(context.Background(), opts)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestShareOptions_Backends(t *testing.T) {
	tests := []struct {
		name     string
		metadata string
		blob     string
	}{
		{"SQLiteFS", "sqlite", "fs"},
		{"BadgerFS", "badger", "fs"},
		{"Memory", "memory", "memory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			cfg.Share.Root = filepath.Join(t.TempDir(), "docs")
			cfg.Share.Name = "docs"
			cfg.Metadata.Type = tt.metadata
			cfg.Blob.Type = tt.blob
			if err := Validate(cfg); err != nil {
				t.Fatalf("Validate failed: %v", err)
			}

			c := openWith(t, cfg)
			if c.Outcome() != share.Created {
				t.Errorf("Expected created share, got %v", c.Outcome())
			}

			e, err := c.Create(context.Background(), "/readme", metadata.NewPermissions(0o644, true))
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			if e.ID != 1 {
				t.Errorf("Expected first local id 1, got %d", e.ID)
			}
		})
	}
}

func TestShareOptions_BadgerReopen(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Share.Root = filepath.Join(t.TempDir(), "docs")
	cfg.Share.Name = "docs"
	cfg.Metadata.Type = "badger"

	opts, err := ShareOptions(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	c, err := share.Open(context.Background(), opts)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := c.Create(context.Background(), "/a", metadata.NewPermissions(0o755, false)); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	r := openWith(t, cfg)
	if r.Outcome() != share.Restored {
		t.Errorf("Expected restored share, got %v", r.Outcome())
	}
	if _, found, err := r.Get(context.Background(), "/a"); err != nil || !found {
		t.Errorf("Expected /a after reopen, found=%v err=%v", found, err)
	}
}

func TestInitializeMetrics(t *testing.T) {
	t.Cleanup(metrics.Reset)

	cfg := GetDefaultConfig()
	if m := InitializeMetrics(cfg); m != nil {
		t.Error("Expected nil metrics when disabled")
	}
	if err := FlushMetrics(cfg); err != nil {
		t.Errorf("FlushMetrics should be a no-op when disabled: %v", err)
	}

	cfg.Metrics.Enabled = true
	cfg.Metrics.TextfilePath = filepath.Join(t.TempDir(), "dittoshare.prom")
	if m := InitializeMetrics(cfg); m == nil {
		t.Fatal("Expected metrics when enabled")
	}
	if err := FlushMetrics(cfg); err != nil {
		t.Fatalf("FlushMetrics failed: %v", err)
	}
}

func TestInitializeTelemetry_Disabled(t *testing.T) {
	cfg := GetDefaultConfig()
	shutdown, err := InitializeTelemetry(context.Background(), cfg, "test")
	if err != nil {
		t.Fatalf("InitializeTelemetry failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}
