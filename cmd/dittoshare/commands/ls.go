package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoshare/cmd/dittoshare/cmdutil"
	"github.com/marmos91/dittoshare/internal/cli/output"
	"github.com/marmos91/dittoshare/pkg/metadata"
)

// listPageSize bounds each GetDirectory call when listing everything.
const listPageSize = 256

var (
	lsFrom  int
	lsCount int
)

var lsCmd = &cobra.Command{
	Use:   "ls [PATH]",
	Short: "List a directory",
	Long: `List the entries of a directory, ordered by name. PATH defaults to the
share root. Listing a file shows the file itself.

--from skips that many entries and --count limits the result; without
--count the whole directory is listed.

Examples:
  dittoshare ls
  dittoshare ls /docs --from 100 --count 50
  dittoshare ls /docs -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

func init() {
	lsCmd.Flags().IntVar(&lsFrom, "from", 0, "Number of entries to skip")
	lsCmd.Flags().IntVar(&lsCount, "count", 0, "Maximum number of entries (0 lists all)")
}

func runLs(cmd *cobra.Command, args []string) error {
	path := "/"
	if len(args) == 1 {
		path = cmdutil.SharePath(args[0])
	}

	return cmdutil.Run(cmd.Context(), cmd.OutOrStdout(), sessionOptions(), func(ctx context.Context, s *cmdutil.Session) error {
		e, err := s.Lookup(ctx, path)
		if err != nil {
			return err
		}
		if e.IsFile() {
			return s.Printer.Print(output.NewEntryList([]*metadata.FileEntry{e}))
		}

		entries, err := listDirectory(ctx, s, e, lsFrom, lsCount)
		if err != nil {
			return err
		}
		list := output.NewEntryList(entries)
		return s.Printer.PrintList(list, len(list) == 0, "Directory is empty.")
	})
}

func listDirectory(ctx context.Context, s *cmdutil.Session, dir *metadata.FileEntry, from, count int) ([]*metadata.FileEntry, error) {
	if count > 0 {
		return s.Share.GetDirectory(ctx, dir, from, count)
	}

	var all []*metadata.FileEntry
	for {
		page, err := s.Share.GetDirectory(ctx, dir, from, listPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < listPageSize {
			return all, nil
		}
		from += len(page)
	}
}
