package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoshare/cmd/dittoshare/cmdutil"
	"github.com/marmos91/dittoshare/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Write a configuration file with every default spelled out.

Examples:
  # Initialize with default location
  dittoshare config init

  # Initialize with custom path
  dittoshare config init --config /etc/dittoshare/config.yaml

  # Force overwrite existing config
  dittoshare config init --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := cmdutil.Flags.ConfigFile

	var err error
	if configPath != "" {
		err = config.InitConfigToPath(configPath, initForce)
	} else {
		configPath, err = config.InitConfig(initForce)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Set share.root and share.name, or pass --root and a NAME to init")
	_, _ = fmt.Fprintln(out, "  2. Create the share with: dittoshare init")
	return nil
}
