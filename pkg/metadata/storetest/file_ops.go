package storetest

import (
	"testing"
	"time"

	"github.com/marmos91/dittoshare/pkg/metadata"
)

func runFileOpsTests(t *testing.T, factory StoreFactory) {
	t.Run("InsertAndGet", func(t *testing.T) { testInsertAndGet(t, factory) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, factory) })
	t.Run("InsertSameKeyIgnored", func(t *testing.T) { testInsertSameKeyIgnored(t, factory) })
	t.Run("PathCollision", func(t *testing.T) { testPathCollision(t, factory) })
	t.Run("UpdatePermissions", func(t *testing.T) { testUpdatePermissions(t, factory) })
	t.Run("UpdateTimestamp", func(t *testing.T) { testUpdateTimestamp(t, factory) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, factory) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, factory) })
	t.Run("DeleteFreesPath", func(t *testing.T) { testDeleteFreesPath(t, factory) })
}

func testInsertAndGet(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)
	ctx := t.Context()

	want := entry(1, "/notes.txt", true)
	mustInsert(t, store, want)

	assertEntryEqual(t, mustGet(t, store, want.FileID), want)

	byPath, ok, err := store.GetFileByPath(ctx, "/", "notes.txt")
	if err != nil || !ok {
		t.Fatalf("GetFileByPath() = %v, %v", ok, err)
	}
	assertEntryEqual(t, byPath, want)
	if !byPath.IsFile() {
		t.Error("IsFile() = false")
	}
}

func testGetMissing(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)
	ctx := t.Context()

	e, ok, err := store.GetFile(ctx, metadata.FileID{Instance: 1, ID: 99})
	if err != nil || ok || e != nil {
		t.Errorf("GetFile(missing) = %v, %v, %v; want nil, false, nil", e, ok, err)
	}
	e, ok, err = store.GetFileByPath(ctx, "/", "nope")
	if err != nil || ok || e != nil {
		t.Errorf("GetFileByPath(missing) = %v, %v, %v; want nil, false, nil", e, ok, err)
	}
}

func testInsertSameKeyIgnored(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)

	first := entry(1, "/a", true)
	mustInsert(t, store, first)

	again := entry(1, "/b", false)
	if err := store.InsertFile(t.Context(), again); err != nil {
		t.Fatalf("InsertFile(same key) = %v, want nil", err)
	}
	assertEntryEqual(t, mustGet(t, store, first.FileID), first)

	n, err := store.CountChildren(t.Context(), "/")
	if err != nil || n != 1 {
		t.Errorf("CountChildren(/) = %d, %v; want 1", n, err)
	}
}

func testPathCollision(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)

	mustInsert(t, store, entry(1, "/dup", true))

	err := store.InsertFile(t.Context(), entry(2, "/dup", true))
	if !metadata.IsConstraintViolation(err) {
		t.Fatalf("InsertFile(collision) error = %v, want ConstraintViolation", err)
	}
	if _, ok, _ := store.GetFile(t.Context(), metadata.FileID{Instance: 1, ID: 2}); ok {
		t.Error("colliding entry was inserted")
	}

	// Same filename under a different directory is fine.
	mustInsert(t, store, entry(3, "/dir", false))
	mustInsert(t, store, entry(4, "/dir/dup", true))
}

func testUpdatePermissions(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)
	e := entry(1, "/f", true)
	mustInsert(t, store, e)

	perms := e.Permissions.WithMode(0o600)
	if err := store.UpdatePermissions(t.Context(), e.FileID, perms, 7, 42); err != nil {
		t.Fatalf("UpdatePermissions() failed: %v", err)
	}

	got := mustGet(t, store, e.FileID)
	if got.Permissions != perms {
		t.Errorf("Permissions = %s, want %s", got.Permissions, perms)
	}
	if got.ChangeInstance != 7 || got.ChangeID != 42 {
		t.Errorf("version = (%d,%d), want (7,42)", got.ChangeInstance, got.ChangeID)
	}
	if !got.Timestamp.Equal(e.Timestamp) {
		t.Error("timestamp changed")
	}
}

func testUpdateTimestamp(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)
	e := entry(1, "/f", true)
	mustInsert(t, store, e)

	ts := time.Date(2030, 1, 2, 3, 4, 5, 6, time.UTC)
	if err := store.UpdateTimestamp(t.Context(), e.FileID, ts, 1, 9); err != nil {
		t.Fatalf("UpdateTimestamp() failed: %v", err)
	}

	got := mustGet(t, store, e.FileID)
	if !got.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, ts)
	}
	if got.ChangeID != 9 || got.Permissions != e.Permissions {
		t.Errorf("got %+v", got)
	}
}

func testUpdateMissing(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)
	missing := metadata.FileID{Instance: 1, ID: 5}

	if err := store.UpdatePermissions(t.Context(), missing, 0, 1, 1); !metadata.IsNotFoundError(err) {
		t.Errorf("UpdatePermissions(missing) = %v, want NotFound", err)
	}
	if err := store.UpdateTimestamp(t.Context(), missing, testTime, 1, 1); !metadata.IsNotFoundError(err) {
		t.Errorf("UpdateTimestamp(missing) = %v, want NotFound", err)
	}
	if err := store.DeleteFile(t.Context(), missing); !metadata.IsNotFoundError(err) {
		t.Errorf("DeleteFile(missing) = %v, want NotFound", err)
	}
}

func testDelete(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)
	e := entry(1, "/gone", true)
	mustInsert(t, store, e)

	if err := store.DeleteFile(t.Context(), e.FileID); err != nil {
		t.Fatalf("DeleteFile() failed: %v", err)
	}
	if _, ok, err := store.GetFile(t.Context(), e.FileID); ok || err != nil {
		t.Errorf("GetFile(after delete) = %v, %v", ok, err)
	}
	if _, ok, err := store.GetFileByPath(t.Context(), "/", "gone"); ok || err != nil {
		t.Errorf("GetFileByPath(after delete) = %v, %v", ok, err)
	}
}

func testDeleteFreesPath(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)

	mustInsert(t, store, entry(1, "/x", true))
	if err := store.DeleteFile(t.Context(), metadata.FileID{Instance: 1, ID: 1}); err != nil {
		t.Fatalf("DeleteFile() failed: %v", err)
	}
	mustInsert(t, store, entry(2, "/x", true))
}
