package cmdutil

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoshare/internal/cli/output"
	"github.com/marmos91/dittoshare/pkg/metadata"
	"github.com/marmos91/dittoshare/pkg/share"
)

func setFlags(t *testing.T, f GlobalFlags) {
	t.Helper()
	prev := *Flags
	*Flags = f
	t.Cleanup(func() { *Flags = prev })
}

func TestSharePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "/"},
		{"/", "/"},
		{"notes.txt", "/notes.txt"},
		{"/docs/a", "/docs/a"},
		{"docs/a/", "/docs/a/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SharePath(tt.in), "SharePath(%q)", tt.in)
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitUserError, ExitCode(errors.New("bad flag")))
	assert.Equal(t, ExitUserError, ExitCode(&share.UserError{Code: metadata.ErrNotFound}))
	assert.Equal(t, ExitSystemError, ExitCode(fmt.Errorf("open: %w", &share.SystemError{Err: errors.New("disk")})))
	assert.Equal(t, ExitSystemError, ExitCode(share.ErrClosed))
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := filepath.Join(t.TempDir(), "share")
	setFlags(t, GlobalFlags{Root: root, Verbose: true})

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, root, cfg.Share.Root)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "sqlite", cfg.Metadata.Type)
}

func TestNewPrinter(t *testing.T) {
	setFlags(t, GlobalFlags{Output: "yaml"})
	var buf bytes.Buffer
	p, err := NewPrinter(&buf)
	require.NoError(t, err)
	assert.Equal(t, output.FormatYAML, p.Format())
	assert.False(t, p.ColorEnabled())

	setFlags(t, GlobalFlags{Output: "csv"})
	_, err = NewPrinter(&buf)
	assert.Error(t, err)
}

func TestShareExists(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, ShareExists(filepath.Join(dir, "missing")))
	assert.False(t, ShareExists(dir))
}
