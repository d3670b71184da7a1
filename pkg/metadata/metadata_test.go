package metadata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissions(t *testing.T) {
	t.Run("KindAndMode", func(t *testing.T) {
		p := NewPermissions(0o644, true)
		assert.True(t, p.IsFile())
		assert.False(t, p.IsDir())
		assert.Equal(t, uint32(0o644), p.Mode())
		assert.Equal(t, "-rw-r--r--", p.String())

		d := NewPermissions(0o7755, false)
		assert.True(t, d.IsDir())
		assert.Equal(t, uint32(0o755), d.Mode())
		assert.Equal(t, "drwxr-xr-x", d.String())
	})

	t.Run("WithModeKeepsKind", func(t *testing.T) {
		p := NewPermissions(0o600, true).WithMode(0o7444)
		assert.True(t, p.IsFile())
		assert.Equal(t, uint32(0o444), p.Mode())
	})

	t.Run("EncodeAllCombinations", func(t *testing.T) {
		for v := 0; v < 1024; v++ {
			p := Permissions(v)
			got, err := DecodePermissions(p.Encode())
			require.NoError(t, err)
			require.Equal(t, p, got)
		}
	})

	t.Run("AccessorsAllCombinations", func(t *testing.T) {
		for mode := uint32(0); mode <= 0o777; mode++ {
			for _, isFile := range []bool{false, true} {
				p := NewPermissions(mode, isFile)
				e := &FileEntry{Permissions: p}
				got := [9]bool{
					p.OwnerRead(), p.OwnerWrite(), p.OwnerExecute(),
					p.GroupRead(), p.GroupWrite(), p.GroupExecute(),
					p.OtherRead(), p.OtherWrite(), p.OtherExecute(),
				}
				viaEntry := [9]bool{
					e.OwnerRead(), e.OwnerWrite(), e.OwnerExecute(),
					e.GroupRead(), e.GroupWrite(), e.GroupExecute(),
					e.OtherRead(), e.OtherWrite(), e.OtherExecute(),
				}
				var want [9]bool
				for i := range want {
					want[i] = mode&(1<<(8-i)) != 0
				}
				require.Equal(t, want, got, "mode %o file=%v", mode, isFile)
				require.Equal(t, want, viaEntry, "mode %o file=%v", mode, isFile)
				require.Equal(t, isFile, p.IsFile())
				require.Equal(t, isFile, e.IsFile())
			}
		}
	})

	t.Run("DecodeRejectsBadInput", func(t *testing.T) {
		_, err := DecodePermissions([]byte{1})
		assert.Error(t, err)
		_, err = DecodePermissions([]byte{0x04, 0x00})
		assert.Error(t, err)
	})

	t.Run("BitLayout", func(t *testing.T) {
		assert.Equal(t, []byte{0x03, 0xa4}, NewPermissions(0o644, true).Encode())
		assert.Equal(t, Permissions(0o400), PermOwnerRead)
		assert.Equal(t, Permissions(0o001), PermOtherExec)
	})
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]uint32{"644": 0o644, "0755": 0o755, "0o600": 0o600, "0": 0} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "9", "1777", "rwx"} {
		_, err := ParseMode(bad)
		assert.Error(t, err, bad)
	}
}

func TestPaths(t *testing.T) {
	tests := []struct {
		full, dir, name string
	}{
		{"/", "", ""},
		{"/notes.txt", "/", "notes.txt"},
		{"/a/b", "/a", "b"},
		{"/a/b/c.txt", "/a/b", "c.txt"},
	}
	for _, tt := range tests {
		dir, name := SplitPath(tt.full)
		assert.Equal(t, tt.dir, dir, tt.full)
		assert.Equal(t, tt.name, name, tt.full)
		assert.Equal(t, tt.full, JoinPath(dir, name))
	}

	assert.Equal(t, "/a/b", CleanPath("a//b/"))
	assert.Equal(t, "/", CleanPath(""))
}

func TestRootEntry(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	root := NewRootEntry(now)

	assert.True(t, root.IsRoot())
	assert.True(t, root.IsDir())
	assert.Equal(t, "/", root.FullPath())
	assert.Equal(t, time.UTC, root.Timestamp.Location())
	assert.Equal(t, RootPermissions, root.Permissions)

	ts := TimeToStorage(now)
	assert.True(t, now.Equal(TimeFromStorage(ts)))
}

type fakeVersioned struct {
	v   uint32
	err error
}

func (f *fakeVersioned) SchemaVersion(context.Context) (uint32, error) { return f.v, f.err }
func (f *fakeVersioned) SetSchemaVersion(_ context.Context, v uint32) error {
	f.v = v
	return nil
}

func TestApplyUpgrades(t *testing.T) {
	ctx := context.Background()

	t.Run("Current", func(t *testing.T) {
		s := &fakeVersioned{v: 3}
		from, to, err := ApplyUpgrades(ctx, s, 3, nil)
		require.NoError(t, err)
		assert.Equal(t, uint32(3), from)
		assert.Equal(t, uint32(3), to)
	})

	t.Run("LaddersInOrder", func(t *testing.T) {
		s := &fakeVersioned{v: 1}
		var ran []uint32
		step := func(v uint32) UpgradeStep {
			return func(context.Context) error {
				ran = append(ran, v)
				return nil
			}
		}
		from, to, err := ApplyUpgrades(ctx, s, 3, map[uint32]UpgradeStep{1: step(1), 2: step(2)})
		require.NoError(t, err)
		assert.Equal(t, []uint32{1, 2}, ran)
		assert.Equal(t, uint32(1), from)
		assert.Equal(t, uint32(3), to)
		assert.Equal(t, uint32(3), s.v)
	})

	t.Run("TooNew", func(t *testing.T) {
		_, _, err := ApplyUpgrades(ctx, &fakeVersioned{v: 9}, 3, nil)
		assert.True(t, IsUnsupportedVersion(err))
	})

	t.Run("Uninitialized", func(t *testing.T) {
		_, _, err := ApplyUpgrades(ctx, &fakeVersioned{}, 3, nil)
		assert.True(t, IsUnsupportedVersion(err))
	})

	t.Run("MissingStep", func(t *testing.T) {
		s := &fakeVersioned{v: 1}
		_, to, err := ApplyUpgrades(ctx, s, 3, map[uint32]UpgradeStep{1: func(context.Context) error { return nil }})
		assert.True(t, IsUnsupportedVersion(err))
		assert.Equal(t, uint32(2), to)
		assert.Equal(t, uint32(2), s.v)
	})

	t.Run("StepFailure", func(t *testing.T) {
		boom := errors.New("boom")
		s := &fakeVersioned{v: 1}
		_, _, err := ApplyUpgrades(ctx, s, 2, map[uint32]UpgradeStep{1: func(context.Context) error { return boom }})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, uint32(1), s.v)
	})
}
