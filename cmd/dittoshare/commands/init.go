package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoshare/cmd/dittoshare/cmdutil"
	"github.com/marmos91/dittoshare/internal/cli/prompt"
	"github.com/marmos91/dittoshare/pkg/share"
)

var initCmd = &cobra.Command{
	Use:   "init [NAME]",
	Short: "Create a new share",
	Long: `Create a new share at the configured root.

NAME becomes the instance name and is part of the instance filename that
identifies this copy of the share. It defaults to share.name from the
configuration; on a terminal you are asked for it when neither is set.

Running init on an existing share only opens it, replaying any
interrupted operation. The stored instance name is kept.

Examples:
  # Create a share named "laptop" under ~/dittoshare
  dittoshare init laptop --root ~/dittoshare

  # Use the root and name from the configuration file
  dittoshare init`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	opts := sessionOptions()
	opts.Create = true

	if len(args) == 1 {
		opts.Name = args[0]
	} else {
		cfg, err := cmdutil.LoadConfig()
		if err != nil {
			return err
		}
		if cfg.Share.Name == "" && cfg.Share.Root != "" && !cmdutil.ShareExists(cfg.Share.Root) {
			name, err := prompt.Input("Instance name", "", func(s string) error {
				if !share.ValidateFilename(s, cfg.Share.StrangePaths) {
					return fmt.Errorf("invalid instance name")
				}
				return nil
			})
			if err != nil && !errors.Is(err, prompt.ErrNotInteractive) {
				return err
			}
			opts.Name = name
		}
	}

	return cmdutil.Run(cmd.Context(), cmd.OutOrStdout(), opts, func(ctx context.Context, s *cmdutil.Session) error {
		core := s.Share
		if core.Outcome() == share.Restored {
			s.Printer.Warning(fmt.Sprintf("Share already exists at %s", core.GetRoot()))
		} else {
			s.Printer.Success(fmt.Sprintf("Share %q created at %s", core.Instance().Name, core.GetRoot()))
		}
		return printInfo(ctx, s)
	})
}
