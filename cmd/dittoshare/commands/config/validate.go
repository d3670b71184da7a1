package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoshare/cmd/dittoshare/cmdutil"
	"github.com/marmos91/dittoshare/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the dittoshare configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  dittoshare config validate

  # Validate specific config file
  dittoshare config validate --config /etc/dittoshare/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}

	displayPath := cmdutil.Flags.ConfigFile
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string
	if cfg.Share.Root == "" {
		warnings = append(warnings, "share.root not set - every command needs --root")
	}
	if cfg.Share.Name == "" {
		warnings = append(warnings, "share.name not set - init needs a NAME argument")
	}
	if cfg.Metadata.Type == "memory" {
		warnings = append(warnings, "memory metadata store does not survive process exit")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Share root:      %s\n", cfg.Share.Root)
	_, _ = fmt.Fprintf(out, "  Metadata store:  %s\n", cfg.Metadata.Type)
	_, _ = fmt.Fprintf(out, "  Blob store:      %s\n", cfg.Blob.Type)
	_, _ = fmt.Fprintf(out, "  Log level:       %s\n", cfg.Logging.Level)
	return nil
}
