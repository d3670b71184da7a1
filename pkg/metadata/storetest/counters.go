package storetest

import (
	"testing"

	"github.com/marmos91/dittoshare/pkg/metadata"
)

func runCounterTests(t *testing.T, factory StoreFactory) {
	t.Run("AllocateInTransaction", func(t *testing.T) { testAllocateInTransaction(t, factory) })
	t.Run("CountersAreIndependent", func(t *testing.T) { testCountersAreIndependent(t, factory) })
}

func allocate(t *testing.T, store metadata.Store, file bool) uint64 {
	t.Helper()
	var got uint64
	err := store.WithTransaction(t.Context(), func(tx metadata.Transaction) error {
		var err error
		if file {
			if got, err = tx.GetFileCounter(t.Context()); err != nil {
				return err
			}
			return tx.IncrementFileCounter(t.Context())
		}
		if got, err = tx.GetChangeCounter(t.Context()); err != nil {
			return err
		}
		return tx.IncrementChangeCounter(t.Context())
	})
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}
	return got
}

func testAllocateInTransaction(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)

	var prev uint64
	for i := 0; i < 5; i++ {
		id := allocate(t, store, true)
		if id <= prev {
			t.Fatalf("allocation %d returned %d after %d", i, id, prev)
		}
		prev = id
	}
	if prev != 5 {
		t.Errorf("fifth file id = %d, want 5", prev)
	}
}

func testCountersAreIndependent(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)

	allocate(t, store, true)
	allocate(t, store, true)
	if c := allocate(t, store, false); c != 1 {
		t.Errorf("first change id = %d, want 1", c)
	}
	if f := allocate(t, store, true); f != 3 {
		t.Errorf("third file id = %d, want 3", f)
	}
}

func runInstanceTests(t *testing.T, factory StoreFactory) {
	t.Run("InsertOrIgnore", func(t *testing.T) { testInstanceInsertOrIgnore(t, factory) })
}

func testInstanceInsertOrIgnore(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)
	ctx := t.Context()

	if _, ok, err := store.GetInstanceIndex(ctx, "alpha", testInstance); err != nil || ok {
		t.Fatalf("GetInstanceIndex() before insert = %v, %v; want absent", ok, err)
	}

	for i := 0; i < 2; i++ {
		if err := store.InsertInstance(ctx, "alpha", testInstance); err != nil {
			t.Fatalf("InsertInstance() #%d failed: %v", i, err)
		}
	}
	idx, ok, err := store.GetInstanceIndex(ctx, "alpha", testInstance)
	if err != nil || !ok {
		t.Fatalf("GetInstanceIndex() = %v, %v", ok, err)
	}
	if idx < 1 {
		t.Errorf("instance index = %d, want >= 1", idx)
	}

	if err := store.InsertInstance(ctx, "beta", testInstance); err != nil {
		t.Fatalf("InsertInstance(beta) failed: %v", err)
	}
	idx2, ok, err := store.GetInstanceIndex(ctx, "beta", testInstance)
	if err != nil || !ok {
		t.Fatalf("GetInstanceIndex(beta) = %v, %v", ok, err)
	}
	if idx2 == idx {
		t.Errorf("distinct instances share index %d", idx)
	}
}
