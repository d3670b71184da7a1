package commands

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoshare/cmd/dittoshare/cmdutil"
	"github.com/marmos91/dittoshare/internal/cli/output"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show share identity and backends",
	Long: `Show the identity of the share, the storage backends it uses and
whether they are reachable.

Examples:
  dittoshare info --root ~/dittoshare
  dittoshare info -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.Run(cmd.Context(), cmd.OutOrStdout(), sessionOptions(), printInfo)
	},
}

// shareInfo is the output of info and init.
type shareInfo struct {
	Name             string `json:"name" yaml:"name"`
	InstanceID       string `json:"instance_id" yaml:"instance_id"`
	InstanceFilename string `json:"instance_filename" yaml:"instance_filename"`
	Root             string `json:"root" yaml:"root"`
	Outcome          string `json:"outcome" yaml:"outcome"`
	MetadataStore    string `json:"metadata_store" yaml:"metadata_store"`
	BlobStore        string `json:"blob_store" yaml:"blob_store"`
	User             int    `json:"user" yaml:"user"`
	Group            int    `json:"group" yaml:"group"`
	Healthy          bool   `json:"healthy" yaml:"healthy"`
	HealthError      string `json:"health_error,omitempty" yaml:"health_error,omitempty"`
}

func printInfo(ctx context.Context, s *cmdutil.Session) error {
	core := s.Share
	inst := core.Instance()
	info := shareInfo{
		Name:             inst.Name,
		InstanceID:       inst.ID.String(),
		InstanceFilename: core.InstanceFilename(),
		Root:             core.GetRoot(),
		Outcome:          core.Outcome().String(),
		MetadataStore:    s.Config.Metadata.Type,
		BlobStore:        s.Config.Blob.Type,
		User:             core.GetUser(),
		Group:            core.GetGroup(),
		Healthy:          true,
	}
	if err := core.HealthCheck(ctx); err != nil {
		info.Healthy = false
		info.HealthError = err.Error()
	}

	if s.Printer.Format() != output.FormatTable {
		return s.Printer.Print(info)
	}

	health := "ok"
	if !info.Healthy {
		health = info.HealthError
	}
	kv := output.KeyValues{}.
		Add("Name", info.Name).
		Add("Instance ID", info.InstanceID).
		Add("Instance file", info.InstanceFilename).
		Add("Root", info.Root).
		Add("Metadata store", info.MetadataStore).
		Add("Blob store", info.BlobStore).
		Add("User", strconv.Itoa(info.User)).
		Add("Group", strconv.Itoa(info.Group)).
		Add("Health", health)
	return output.PrintKeyValues(s.Printer.Writer(), kv)
}
