package storetest

import (
	"errors"
	"testing"

	"github.com/marmos91/dittoshare/pkg/metadata"
)

func runAncestryTests(t *testing.T, factory StoreFactory) {
	t.Run("InsertGetDelete", func(t *testing.T) { testAncestry(t, factory) })
}

func testAncestry(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)
	ctx := t.Context()
	child := metadata.FileID{Instance: 1, ID: 2}
	parent := metadata.FileID{Instance: 1, ID: 1}

	if _, ok, err := store.GetParent(ctx, child); ok || err != nil {
		t.Fatalf("GetParent(before) = %v, %v", ok, err)
	}

	if err := store.InsertAncestry(ctx, child, parent); err != nil {
		t.Fatalf("InsertAncestry() failed: %v", err)
	}
	// Insert-or-ignore: the first edge wins.
	if err := store.InsertAncestry(ctx, child, metadata.RootID); err != nil {
		t.Fatalf("InsertAncestry(again) failed: %v", err)
	}

	got, ok, err := store.GetParent(ctx, child)
	if err != nil || !ok || got != parent {
		t.Fatalf("GetParent() = %v, %v, %v; want %v", got, ok, err, parent)
	}

	if err := store.DeleteAncestry(ctx, child); err != nil {
		t.Fatalf("DeleteAncestry() failed: %v", err)
	}
	if err := store.DeleteAncestry(ctx, child); err != nil {
		t.Errorf("DeleteAncestry(missing) = %v, want nil", err)
	}
	if _, ok, _ := store.GetParent(ctx, child); ok {
		t.Error("edge survived DeleteAncestry")
	}
}

func runTransactionTests(t *testing.T, factory StoreFactory) {
	t.Run("Commit", func(t *testing.T) { testTransactionCommit(t, factory) })
	t.Run("Rollback", func(t *testing.T) { testTransactionRollback(t, factory) })
	t.Run("ConstraintRollsBack", func(t *testing.T) { testConstraintRollsBack(t, factory) })
}

func testTransactionCommit(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)
	e := entry(1, "/t", true)

	err := store.WithTransaction(t.Context(), func(tx metadata.Transaction) error {
		if err := tx.InsertFile(t.Context(), e); err != nil {
			return err
		}
		if err := tx.InsertAncestry(t.Context(), e.FileID, metadata.RootID); err != nil {
			return err
		}
		// Writes are visible inside the transaction.
		if _, ok, err := tx.GetFile(t.Context(), e.FileID); err != nil || !ok {
			t.Errorf("GetFile inside tx = %v, %v", ok, err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTransaction() failed: %v", err)
	}

	mustGet(t, store, e.FileID)
	if p, ok, _ := store.GetParent(t.Context(), e.FileID); !ok || p != metadata.RootID {
		t.Errorf("GetParent() = %v, %v", p, ok)
	}
}

func testTransactionRollback(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)
	e := entry(1, "/t", true)
	boom := errors.New("boom")

	err := store.WithTransaction(t.Context(), func(tx metadata.Transaction) error {
		if err := tx.IncrementFileCounter(t.Context()); err != nil {
			return err
		}
		if err := tx.InsertFile(t.Context(), e); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTransaction() = %v, want boom", err)
	}

	if _, ok, _ := store.GetFile(t.Context(), e.FileID); ok {
		t.Error("rolled back insert is visible")
	}
	if c, _ := store.GetFileCounter(t.Context()); c != 1 {
		t.Errorf("GetFileCounter() = %d after rollback, want 1", c)
	}
}

func testConstraintRollsBack(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)
	mustInsert(t, store, entry(1, "/taken", true))
	dup := entry(2, "/taken", true)

	err := store.WithTransaction(t.Context(), func(tx metadata.Transaction) error {
		if err := tx.InsertAncestry(t.Context(), dup.FileID, metadata.RootID); err != nil {
			return err
		}
		return tx.InsertFile(t.Context(), dup)
	})
	if !metadata.IsConstraintViolation(err) {
		t.Fatalf("WithTransaction() = %v, want ConstraintViolation", err)
	}
	if _, ok, _ := store.GetParent(t.Context(), dup.FileID); ok {
		t.Error("ancestry edge from failed transaction is visible")
	}
}
