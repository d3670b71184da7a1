package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoshare/cmd/dittoshare/cmdutil"
	"github.com/marmos91/dittoshare/pkg/metadata"
)

var chmodCmd = &cobra.Command{
	Use:   "chmod MODE PATH",
	Short: "Change permission bits",
	Long: `Replace the permission bits of an entry. MODE is octal. The entry keeps
its kind and gets a new version stamp.

Examples:
  dittoshare chmod 600 /notes.txt
  dittoshare chmod 0o750 /docs`,
	Args: cobra.ExactArgs(2),
	RunE: runChmod,
}

var settimeCmd = &cobra.Command{
	Use:   "settime TIME PATH",
	Short: "Change the timestamp",
	Long: `Set the timestamp of an entry. TIME is RFC 3339 (2026-03-01T12:00:00Z)
or "now". The entry gets a new version stamp.

Examples:
  dittoshare settime now /notes.txt
  dittoshare settime 2026-03-01T12:00:00+01:00 /docs`,
	Args: cobra.ExactArgs(2),
	RunE: runSettime,
}

func runChmod(cmd *cobra.Command, args []string) error {
	mode, err := metadata.ParseMode(args[0])
	if err != nil {
		return err
	}
	path := cmdutil.SharePath(args[1])

	return cmdutil.Run(cmd.Context(), cmd.OutOrStdout(), sessionOptions(), func(ctx context.Context, s *cmdutil.Session) error {
		e, err := s.Lookup(ctx, path)
		if err != nil {
			return err
		}
		next, err := s.Share.SetPermissions(ctx, e, e.Permissions.WithMode(mode))
		if err != nil {
			return err
		}
		return reportEntry(s, fmt.Sprintf("%s is now %s", next.FullPath(), next.Permissions), next)
	})
}

// parseTimestamp accepts RFC 3339 with optional fractional seconds, or "now".
func parseTimestamp(s string) (time.Time, error) {
	if strings.EqualFold(s, "now") {
		return time.Now(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: expected RFC 3339 or \"now\"", s)
	}
	return t, nil
}

func runSettime(cmd *cobra.Command, args []string) error {
	ts, err := parseTimestamp(args[0])
	if err != nil {
		return err
	}
	path := cmdutil.SharePath(args[1])

	return cmdutil.Run(cmd.Context(), cmd.OutOrStdout(), sessionOptions(), func(ctx context.Context, s *cmdutil.Session) error {
		e, err := s.Lookup(ctx, path)
		if err != nil {
			return err
		}
		next, err := s.Share.SetTimestamp(ctx, e, ts)
		if err != nil {
			return err
		}
		return reportEntry(s, fmt.Sprintf("%s timestamp set to %s", next.FullPath(), next.Timestamp.Format(time.RFC3339)), next)
	})
}
