package storetest

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/dittoshare/pkg/metadata"
)

// StoreFactory creates a fresh, empty store for each test.
type StoreFactory func(t *testing.T) metadata.Store

// RunConformanceSuite runs every conformance group against factory.
func RunConformanceSuite(t *testing.T, factory StoreFactory) {
	t.Helper()

	t.Run("Schema", func(t *testing.T) { runSchemaTests(t, factory) })
	t.Run("Counters", func(t *testing.T) { runCounterTests(t, factory) })
	t.Run("Instances", func(t *testing.T) { runInstanceTests(t, factory) })
	t.Run("FileOps", func(t *testing.T) { runFileOpsTests(t, factory) })
	t.Run("DirOps", func(t *testing.T) { runDirOpsTests(t, factory) })
	t.Run("Ancestry", func(t *testing.T) { runAncestryTests(t, factory) })
	t.Run("Transactions", func(t *testing.T) { runTransactionTests(t, factory) })
}

var testTime = time.Date(2024, 3, 14, 15, 9, 26, 535897932, time.UTC)

// newBootstrapped returns a store from factory with the root inserted.
func newBootstrapped(t *testing.T, factory StoreFactory) metadata.Store {
	t.Helper()

	store := factory(t)
	if err := store.Bootstrap(t.Context(), metadata.NewRootEntry(testTime)); err != nil {
		t.Fatalf("Bootstrap() failed: %v", err)
	}
	return store
}

// entry builds a FileEntry for instance 1 at the given full path.
func entry(id uint64, fullPath string, isFile bool) *metadata.FileEntry {
	dir, name := metadata.SplitPath(fullPath)
	return &metadata.FileEntry{
		FileID:         metadata.FileID{Instance: 1, ID: id},
		ChangeInstance: 1,
		ChangeID:       id,
		Path:           dir,
		Filename:       name,
		Timestamp:      testTime,
		Permissions:    metadata.NewPermissions(0o644, isFile),
	}
}

func mustInsert(t *testing.T, store metadata.Store, e *metadata.FileEntry) {
	t.Helper()
	if err := store.InsertFile(t.Context(), e); err != nil {
		t.Fatalf("InsertFile(%s) failed: %v", e.FullPath(), err)
	}
}

func mustGet(t *testing.T, store metadata.Store, id metadata.FileID) *metadata.FileEntry {
	t.Helper()
	e, ok, err := store.GetFile(t.Context(), id)
	if err != nil {
		t.Fatalf("GetFile(%s) failed: %v", id, err)
	}
	if !ok {
		t.Fatalf("GetFile(%s) not found", id)
	}
	return e
}

func assertEntryEqual(t *testing.T, got, want *metadata.FileEntry) {
	t.Helper()
	if got.FileID != want.FileID ||
		got.ChangeInstance != want.ChangeInstance ||
		got.ChangeID != want.ChangeID ||
		got.Path != want.Path ||
		got.Filename != want.Filename ||
		got.Permissions != want.Permissions ||
		!got.Timestamp.Equal(want.Timestamp) {
		t.Errorf("entry mismatch:\n got  %+v\n want %+v", got, want)
	}
}

var testInstance = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
