package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoshare/cmd/dittoshare/cmdutil"
	"github.com/marmos91/dittoshare/internal/cli/output"
	"github.com/marmos91/dittoshare/pkg/metadata"
	"github.com/marmos91/dittoshare/pkg/share"
)

var (
	mkdirMode    string
	mkdirParents bool
	touchMode    string
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir PATH",
	Short: "Create a directory",
	Long: `Create a directory in the share.

The parent must exist unless --parents is given, in which case missing
parents are created with the same mode and existing directories are
accepted.

Examples:
  dittoshare mkdir /docs
  dittoshare mkdir -p /docs/2026/march --mode 700`,
	Args: cobra.ExactArgs(1),
	RunE: runMkdir,
}

var touchCmd = &cobra.Command{
	Use:   "touch PATH",
	Short: "Create an empty file",
	Long: `Create an empty regular file in the share. The parent directory must
exist and the name must be free.

Examples:
  dittoshare touch /notes.txt
  dittoshare touch /docs/todo.md --mode 600`,
	Args: cobra.ExactArgs(1),
	RunE: runTouch,
}

func init() {
	mkdirCmd.Flags().StringVarP(&mkdirMode, "mode", "m", "755", "Permission bits in octal")
	mkdirCmd.Flags().BoolVarP(&mkdirParents, "parents", "p", false, "Create missing parent directories")
	touchCmd.Flags().StringVarP(&touchMode, "mode", "m", "644", "Permission bits in octal")
}

func runMkdir(cmd *cobra.Command, args []string) error {
	mode, err := metadata.ParseMode(mkdirMode)
	if err != nil {
		return err
	}
	perms := metadata.NewPermissions(mode, false)
	path := cmdutil.SharePath(args[0])

	return cmdutil.Run(cmd.Context(), cmd.OutOrStdout(), sessionOptions(), func(ctx context.Context, s *cmdutil.Session) error {
		if !mkdirParents {
			e, err := s.Share.Create(ctx, path, perms)
			if err != nil {
				return err
			}
			return reportEntry(s, fmt.Sprintf("Created directory %s", e.FullPath()), e)
		}

		e, err := mkdirAll(ctx, s.Share, path, perms)
		if err != nil {
			return err
		}
		return reportEntry(s, fmt.Sprintf("Directory %s ready", e.FullPath()), e)
	})
}

// mkdirAll creates every missing directory on the way to path and returns
// the final one.
func mkdirAll(ctx context.Context, core *share.Core, path string, perms metadata.Permissions) (*metadata.FileEntry, error) {
	var (
		cur   string
		entry *metadata.FileEntry
	)
	for _, name := range strings.Split(strings.Trim(metadata.CleanPath(path), "/"), "/") {
		if name == "" {
			continue
		}
		cur += "/" + name

		e, err := core.Create(ctx, cur, perms)
		if share.IsAlreadyExists(err) {
			existing, ok, gerr := core.Get(ctx, cur)
			if gerr != nil {
				return nil, gerr
			}
			if !ok || !existing.IsDir() {
				return nil, err
			}
			e, err = existing, nil
		}
		if err != nil {
			return nil, err
		}
		entry = e
	}
	if entry == nil {
		return nil, fmt.Errorf("%s: the root directory always exists", path)
	}
	return entry, nil
}

func runTouch(cmd *cobra.Command, args []string) error {
	mode, err := metadata.ParseMode(touchMode)
	if err != nil {
		return err
	}
	path := cmdutil.SharePath(args[0])

	return cmdutil.Run(cmd.Context(), cmd.OutOrStdout(), sessionOptions(), func(ctx context.Context, s *cmdutil.Session) error {
		e, err := s.Share.Create(ctx, path, metadata.NewPermissions(mode, true))
		if err != nil {
			return err
		}
		return reportEntry(s, fmt.Sprintf("Created file %s", e.FullPath()), e)
	})
}

// reportEntry prints msg for tables and the entry for JSON and YAML.
func reportEntry(s *cmdutil.Session, msg string, e *metadata.FileEntry) error {
	if s.Printer.Format() == output.FormatTable {
		s.Printer.Success(msg)
		return nil
	}
	return s.Printer.Print(output.NewEntry(e))
}
