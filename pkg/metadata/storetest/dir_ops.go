package storetest

import (
	"fmt"
	"testing"

	"github.com/marmos91/dittoshare/pkg/metadata"
)

func runDirOpsTests(t *testing.T, factory StoreFactory) {
	t.Run("ListOrdered", func(t *testing.T) { testListOrdered(t, factory) })
	t.Run("ListPagination", func(t *testing.T) { testListPagination(t, factory) })
	t.Run("ListOnlyDirectChildren", func(t *testing.T) { testListOnlyDirectChildren(t, factory) })
	t.Run("CountChildren", func(t *testing.T) { testCountChildren(t, factory) })
}

func names(entries []*metadata.FileEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Filename
	}
	return out
}

func testListOrdered(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)

	// Byte order: uppercase sorts before lowercase.
	for i, name := range []string{"beta", "Zed", "alpha", "a", "_x"} {
		mustInsert(t, store, entry(uint64(i+1), "/"+name, true))
	}

	got, err := store.ListDirectory(t.Context(), "/", 0, 100)
	if err != nil {
		t.Fatalf("ListDirectory() failed: %v", err)
	}
	want := []string{"Zed", "_x", "a", "alpha", "beta"}
	if fmt.Sprint(names(got)) != fmt.Sprint(want) {
		t.Errorf("ListDirectory() = %v, want %v", names(got), want)
	}
}

func testListPagination(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)

	const n = 7
	for i := 0; i < n; i++ {
		mustInsert(t, store, entry(uint64(i+1), fmt.Sprintf("/f%02d", i), true))
	}

	tests := []struct {
		from, count int
		first       string
		want        int
	}{
		{0, 3, "f00", 3},
		{3, 3, "f03", 3},
		{6, 3, "f06", 1},
		{7, 3, "", 0},
		{100, 3, "", 0},
		{2, 0, "", 0},
	}
	for _, tt := range tests {
		got, err := store.ListDirectory(t.Context(), "/", tt.from, tt.count)
		if err != nil {
			t.Fatalf("ListDirectory(%d,%d) failed: %v", tt.from, tt.count, err)
		}
		if len(got) != tt.want {
			t.Errorf("ListDirectory(%d,%d) returned %d, want %d", tt.from, tt.count, len(got), tt.want)
			continue
		}
		if tt.want > 0 && got[0].Filename != tt.first {
			t.Errorf("ListDirectory(%d,%d)[0] = %s, want %s", tt.from, tt.count, got[0].Filename, tt.first)
		}
	}
}

func testListOnlyDirectChildren(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)

	mustInsert(t, store, entry(1, "/docs", false))
	mustInsert(t, store, entry(2, "/docs/a.txt", true))
	mustInsert(t, store, entry(3, "/docs/sub", false))
	mustInsert(t, store, entry(4, "/docs/sub/b.txt", true))
	mustInsert(t, store, entry(5, "/docsx", true))

	root, err := store.ListDirectory(t.Context(), "/", 0, 10)
	if err != nil {
		t.Fatalf("ListDirectory(/) failed: %v", err)
	}
	if fmt.Sprint(names(root)) != "[docs docsx]" {
		t.Errorf("ListDirectory(/) = %v", names(root))
	}

	docs, err := store.ListDirectory(t.Context(), "/docs", 0, 10)
	if err != nil {
		t.Fatalf("ListDirectory(/docs) failed: %v", err)
	}
	if fmt.Sprint(names(docs)) != "[a.txt sub]" {
		t.Errorf("ListDirectory(/docs) = %v", names(docs))
	}

	empty, err := store.ListDirectory(t.Context(), "/nowhere", 0, 10)
	if err != nil || len(empty) != 0 {
		t.Errorf("ListDirectory(/nowhere) = %v, %v", names(empty), err)
	}
}

func testCountChildren(t *testing.T, factory StoreFactory) {
	store := newBootstrapped(t, factory)

	mustInsert(t, store, entry(1, "/d", false))
	mustInsert(t, store, entry(2, "/d/x", true))
	mustInsert(t, store, entry(3, "/d/y", true))

	for path, want := range map[string]int{"/": 1, "/d": 2, "/d/x": 0} {
		n, err := store.CountChildren(t.Context(), path)
		if err != nil {
			t.Fatalf("CountChildren(%s) failed: %v", path, err)
		}
		if n != want {
			t.Errorf("CountChildren(%s) = %d, want %d", path, n, want)
		}
	}
}
