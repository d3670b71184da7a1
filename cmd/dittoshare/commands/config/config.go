// Package config implements the config subcommands.
package config

import "github.com/spf13/cobra"

// Cmd is the parent of the config subcommands.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
	Long: `Create, inspect and validate the dittoshare configuration file.

The file lives at $XDG_CONFIG_HOME/dittoshare/config.yaml unless --config is
given. Environment variables named DITTOSHARE_<SECTION>_<KEY> override it.`,
}

func init() {
	Cmd.AddCommand(initCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(validateCmd)
	Cmd.AddCommand(schemaCmd)
}
