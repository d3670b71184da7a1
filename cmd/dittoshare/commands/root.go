// Package commands implements the dittoshare command line.
package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoshare/cmd/dittoshare/cmdutil"
	configcmd "github.com/marmos91/dittoshare/cmd/dittoshare/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dittoshare",
	Short: "DittoShare - replicated file share metadata",
	Long: `dittoshare manages the metadata of a replicated file share.

A share is a directory holding the instance identity, a metadata database,
one blob per regular file and a transaction log that keeps them consistent
across crashes. Every command opens the share, replays any interrupted
operation and then runs.

Configuration is read from $XDG_CONFIG_HOME/dittoshare/config.yaml unless
--config is given. Every key can be overridden with DITTOSHARE_<SECTION>_<KEY>
environment variables, e.g. DITTOSHARE_LOGGING_LEVEL=DEBUG.

Use "dittoshare [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.Flags.ConfigFile, _ = cmd.Flags().GetString("config")
		cmdutil.Flags.Root, _ = cmd.Flags().GetString("root")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.NoColor, _ = cmd.Flags().GetBool("no-color")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, which is cancelled on
// interrupt by main.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file (default: $XDG_CONFIG_HOME/dittoshare/config.yaml)")
	rootCmd.PersistentFlags().StringP("root", "r", "", "Share root directory (overrides share.root)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(touchCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(statCmd)
	rootCmd.AddCommand(chmodCmd)
	rootCmd.AddCommand(settimeCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(configcmd.Cmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func sessionOptions() cmdutil.SessionOptions {
	return cmdutil.SessionOptions{Version: Version}
}
