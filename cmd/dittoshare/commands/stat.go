package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoshare/cmd/dittoshare/cmdutil"
)

var statCmd = &cobra.Command{
	Use:   "stat PATH",
	Short: "Show one entry",
	Long: `Show the identity, version stamp, mode and timestamp of an entry.

Examples:
  dittoshare stat /notes.txt
  dittoshare stat / -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cmdutil.SharePath(args[0])
		return cmdutil.Run(cmd.Context(), cmd.OutOrStdout(), sessionOptions(), func(ctx context.Context, s *cmdutil.Session) error {
			e, err := s.Lookup(ctx, path)
			if err != nil {
				return err
			}
			return s.PrintEntry(e)
		})
	},
}
