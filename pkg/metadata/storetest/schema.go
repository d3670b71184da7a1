package storetest

import (
	"testing"

	"github.com/marmos91/dittoshare/pkg/metadata"
)

func runSchemaTests(t *testing.T, factory StoreFactory) {
	t.Run("BootstrapSeedsState", func(t *testing.T) { testBootstrapSeedsState(t, factory) })
	t.Run("UpgradeAtCurrent", func(t *testing.T) { testUpgradeAtCurrent(t, factory) })
	t.Run("UpgradeRejectsNewer", func(t *testing.T) { testUpgradeRejectsNewer(t, factory) })
	t.Run("UpgradeRejectsUninitialized", func(t *testing.T) { testUpgradeRejectsUninitialized(t, factory) })
	t.Run("HealthCheck", func(t *testing.T) { testHealthCheck(t, factory) })
}

func testBootstrapSeedsState(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)
	ctx := t.Context()

	v, err := store.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion() failed: %v", err)
	}
	if v != metadata.CurrentSchemaVersion {
		t.Errorf("SchemaVersion() = %d, want %d", v, metadata.CurrentSchemaVersion)
	}

	fc, err := store.GetFileCounter(ctx)
	if err != nil || fc != 1 {
		t.Errorf("GetFileCounter() = %d, %v; want 1", fc, err)
	}
	cc, err := store.GetChangeCounter(ctx)
	if err != nil || cc != 1 {
		t.Errorf("GetChangeCounter() = %d, %v; want 1", cc, err)
	}

	root := mustGet(t, store, metadata.RootID)
	assertEntryEqual(t, root, metadata.NewRootEntry(testTime))
	if !root.IsDir() {
		t.Error("root is not a directory")
	}
}

func testUpgradeAtCurrent(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)

	from, to, err := store.Upgrade(t.Context())
	if err != nil {
		t.Fatalf("Upgrade() failed: %v", err)
	}
	if from != metadata.CurrentSchemaVersion || to != metadata.CurrentSchemaVersion {
		t.Errorf("Upgrade() = %d -> %d, want no-op at %d", from, to, metadata.CurrentSchemaVersion)
	}
}

func testUpgradeRejectsNewer(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)
	ctx := t.Context()

	if err := store.SetSchemaVersion(ctx, metadata.CurrentSchemaVersion+1); err != nil {
		t.Fatalf("SetSchemaVersion() failed: %v", err)
	}
	_, _, err := store.Upgrade(ctx)
	if !metadata.IsUnsupportedVersion(err) {
		t.Errorf("Upgrade() error = %v, want UnsupportedVersion", err)
	}
}

func testUpgradeRejectsUninitialized(t *testing.T, factory StoreFactory) {
	store := factory(t)

	_, _, err := store.Upgrade(t.Context())
	if !metadata.IsUnsupportedVersion(err) {
		t.Errorf("Upgrade() error = %v, want UnsupportedVersion", err)
	}
}

func testHealthCheck(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)
	if err := store.HealthCheck(t.Context()); err != nil {
		t.Errorf("HealthCheck() failed: %v", err)
	}
}
