package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoshare/cmd/dittoshare/cmdutil"
	"github.com/marmos91/dittoshare/internal/cli/prompt"
)

var rmInteractive bool

var rmCmd = &cobra.Command{
	Use:   "rm PATH",
	Short: "Delete a file or an empty directory",
	Long: `Delete an entry. Directories must be empty and the root cannot be
deleted. A file's content is removed with it.

Examples:
  dittoshare rm /notes.txt
  dittoshare rm -i /docs`,
	Args: cobra.ExactArgs(1),
	RunE: runRm,
}

func init() {
	rmCmd.Flags().BoolVarP(&rmInteractive, "interactive", "i", false, "Ask before deleting")
}

func runRm(cmd *cobra.Command, args []string) error {
	path := cmdutil.SharePath(args[0])

	return cmdutil.Run(cmd.Context(), cmd.OutOrStdout(), sessionOptions(), func(ctx context.Context, s *cmdutil.Session) error {
		e, err := s.Lookup(ctx, path)
		if err != nil {
			return err
		}

		ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete %s", e.FullPath()), !rmInteractive)
		if err != nil {
			return err
		}
		if !ok {
			s.Printer.Println("Aborted.")
			return nil
		}

		if err := s.Share.Delete(ctx, e); err != nil {
			return err
		}
		s.Printer.Success(fmt.Sprintf("Deleted %s", e.FullPath()))
		return nil
	})
}
