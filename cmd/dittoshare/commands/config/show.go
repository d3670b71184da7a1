package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/dittoshare/cmd/dittoshare/cmdutil"
	"github.com/marmos91/dittoshare/internal/cli/output"
	"github.com/marmos91/dittoshare/pkg/config"
)

const redacted = "********"

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, environment overrides and
--root are applied. Passwords and secret keys are redacted.

Examples:
  dittoshare config show
  DITTOSHARE_METADATA_TYPE=badger dittoshare config show -o json`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}
	redact(cfg)

	w := cmd.OutOrStdout()
	if cmdutil.Flags.Output == "" || cmdutil.Flags.Output == string(output.FormatTable) {
		return output.PrintYAML(w, cfg)
	}
	p, err := cmdutil.NewPrinter(w)
	if err != nil {
		return err
	}
	return p.Print(cfg)
}

func redact(cfg *config.Config) {
	if cfg.Metadata.Postgres.Password != "" {
		cfg.Metadata.Postgres.Password = redacted
	}
	if cfg.Blob.S3.SecretAccessKey != "" {
		cfg.Blob.S3.SecretAccessKey = redacted
	}
}
