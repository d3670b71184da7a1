package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoshare/cmd/dittoshare/cmdutil"
	"github.com/marmos91/dittoshare/pkg/share"
)

// isolate points the config lookup at an empty directory so a developer's
// own config file cannot leak into the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DITTOSHARE_LOGGING_LEVEL", "ERROR")
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "dittoshare %v\n%s", args, out)
	return out
}

type entryJSON struct {
	Path      string `json:"path"`
	Type      string `json:"type"`
	Mode      string `json:"mode"`
	FileID    string `json:"file_id"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

func statJSON(t *testing.T, root, path string) entryJSON {
	t.Helper()
	var e entryJSON
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "stat", path, "--root", root, "-o", "json")), &e))
	return e
}

func lsJSON(t *testing.T, root string, args ...string) []entryJSON {
	t.Helper()
	var l []entryJSON
	out := mustRun(t, append([]string{"ls", "--root", root, "-o", "json"}, args...)...)
	require.NoError(t, json.Unmarshal([]byte(out), &l))
	return l
}

func newShareRoot(t *testing.T) string {
	t.Helper()
	isolate(t)
	root := filepath.Join(t.TempDir(), "share")
	out := mustRun(t, "init", "alpha", "--root", root)
	assert.Contains(t, out, `Share "alpha" created`)
	return root
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "dev\n", mustRun(t, "version", "--short"))
	assert.Contains(t, mustRun(t, "version"), "Go version")
}

func TestInit(t *testing.T) {
	root := newShareRoot(t)

	_, err := os.Stat(filepath.Join(root, share.AppDirName, share.StaticName))
	require.NoError(t, err)

	t.Run("ExistingShareKeepsName", func(t *testing.T) {
		out := mustRun(t, "init", "beta", "--root", root)
		assert.Contains(t, out, "already exists")
		assert.Contains(t, out, "alpha")
	})

	t.Run("InfoJSON", func(t *testing.T) {
		var info shareInfo
		require.NoError(t, json.Unmarshal([]byte(mustRun(t, "info", "--root", root, "-o", "json")), &info))
		assert.Equal(t, "alpha", info.Name)
		assert.Equal(t, "restored", info.Outcome)
		assert.Equal(t, "sqlite", info.MetadataStore)
		assert.Equal(t, "fs", info.BlobStore)
		assert.True(t, info.Healthy)
		assert.Equal(t, "alpha-", info.InstanceFilename[:6])
	})

	t.Run("MissingNameNonInteractive", func(t *testing.T) {
		_, err := run(t, "init", "--root", filepath.Join(t.TempDir(), "nameless"))
		require.Error(t, err)
		assert.Equal(t, cmdutil.ExitUserError, cmdutil.ExitCode(err))
	})
}

func TestMissingShare(t *testing.T) {
	isolate(t)
	missing := filepath.Join(t.TempDir(), "nope")

	_, err := run(t, "ls", "--root", missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no share at")

	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr), "ls must not create a share")
}

func TestFileWorkflow(t *testing.T) {
	root := newShareRoot(t)

	assert.Contains(t, mustRun(t, "touch", "/notes.txt", "--root", root), "Created file /notes.txt")
	mustRun(t, "mkdir", "-p", "/docs/2026", "--root", root)

	notes := statJSON(t, root, "/notes.txt")
	assert.Equal(t, "file", notes.Type)
	assert.Equal(t, "-rw-r--r--", notes.Mode)
	assert.Equal(t, "1:1", notes.FileID)
	assert.Equal(t, "1:1", notes.Version)

	list := lsJSON(t, root)
	require.Len(t, list, 2)
	assert.Equal(t, "/docs", list[0].Path)
	assert.Equal(t, "/notes.txt", list[1].Path)

	t.Run("Collision", func(t *testing.T) {
		_, err := run(t, "touch", "notes.txt", "--root", root)
		require.Error(t, err)
		assert.True(t, share.IsAlreadyExists(err))
	})

	t.Run("Chmod", func(t *testing.T) {
		mustRun(t, "chmod", "600", "/notes.txt", "--root", root)
		e := statJSON(t, root, "/notes.txt")
		assert.Equal(t, "-rw-------", e.Mode)
		assert.Equal(t, notes.FileID, e.FileID)
		assert.Equal(t, "1:4", e.Version)
	})

	t.Run("Settime", func(t *testing.T) {
		mustRun(t, "settime", "2026-03-01T13:00:00+01:00", "/docs", "--root", root)
		assert.Equal(t, "2026-03-01T12:00:00Z", statJSON(t, root, "/docs").Timestamp)

		_, err := run(t, "settime", "yesterday", "/docs", "--root", root)
		assert.Error(t, err)
	})

	t.Run("RemoveNonEmptyDirectory", func(t *testing.T) {
		_, err := run(t, "rm", "/docs", "--root", root)
		require.Error(t, err)
		assert.Equal(t, cmdutil.ExitUserError, cmdutil.ExitCode(err))
	})

	t.Run("Remove", func(t *testing.T) {
		assert.Contains(t, mustRun(t, "rm", "/notes.txt", "--root", root), "Deleted /notes.txt")
		_, err := run(t, "stat", "/notes.txt", "--root", root)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no such file")
	})

	t.Run("EmptyDirectory", func(t *testing.T) {
		l := lsJSON(t, root, "/docs/2026")
		assert.Empty(t, l)
		assert.Contains(t, mustRun(t, "ls", "/docs/2026", "--root", root), "Directory is empty.")
	})
}

func TestListPagination(t *testing.T) {
	root := newShareRoot(t)
	for _, name := range []string{"/a", "/b", "/c", "/d", "/e"} {
		mustRun(t, "touch", name, "--root", root)
	}

	page := lsJSON(t, root, "--from", "1", "--count", "2")
	require.Len(t, page, 2)
	assert.Equal(t, "/b", page[0].Path)
	assert.Equal(t, "/c", page[1].Path)

	assert.Len(t, lsJSON(t, root, "--from", "4"), 1)
	assert.Empty(t, lsJSON(t, root, "--from", "10"))

	_, err := run(t, "ls", "--root", root, "--from", "-1")
	assert.Error(t, err)
}

func TestMkdirParents(t *testing.T) {
	root := newShareRoot(t)
	mustRun(t, "touch", "/file", "--root", root)

	_, err := run(t, "mkdir", "/x/y", "--root", root)
	assert.True(t, share.IsNotFound(err))

	mustRun(t, "mkdir", "-p", "/x/y", "--mode", "700", "--root", root)
	mustRun(t, "mkdir", "-p", "/x/y", "--root", root)
	assert.Equal(t, "drwx------", statJSON(t, root, "/x/y").Mode)

	_, err = run(t, "mkdir", "-p", "/file/sub", "--root", root)
	assert.Error(t, err)
}

func TestConfigCommands(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	assert.Contains(t, mustRun(t, "config", "init", "--config", path), path)

	_, err := run(t, "config", "init", "--config", path)
	assert.Error(t, err)
	mustRun(t, "config", "init", "--config", path, "--force")

	out := mustRun(t, "config", "validate", "--config", path)
	assert.Contains(t, out, "Validation: OK")
	assert.Contains(t, out, "sqlite")

	t.Setenv("DITTOSHARE_BLOB_S3_SECRET_ACCESS_KEY", "hunter2")
	t.Setenv("DITTOSHARE_BLOB_S3_ACCESS_KEY_ID", "id")
	show := mustRun(t, "config", "show", "--config", path, "--root", "/srv/share")
	assert.Contains(t, show, "root: /srv/share")
	assert.NotContains(t, show, "hunter2")
}
