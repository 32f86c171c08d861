package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/abdul-hamid-achik/hitcall/packages/output"
	"github.com/spf13/cobra"
)

var (
	historyLimitFlag int
	historyJSONFlag  bool
	historyStatsFlag bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show calls recorded in the journal",
	Long: `Show the calls recorded in the journal, newest first.

The journal is the SQLite file given by --journal or the "journal" config key.

Examples:
  hitcall history --journal calls.db
  hitcall history --limit 50 --json
  hitcall history --stats`,
	Args: cobra.NoArgs,
	RunE: historyCommand,
}

func init() {
	flags := historyCmd.Flags()
	flags.IntVarP(&historyLimitFlag, "limit", "l", 20, "Number of calls to show (0 for all)")
	flags.BoolVar(&historyJSONFlag, "json", false, "Print entries as JSON")
	flags.BoolVar(&historyStatsFlag, "stats", false, "Print counts by outcome instead of entries")
	rootCmd.AddCommand(historyCmd)
}

func historyCommand(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.journal == nil {
		return newUsageError("no journal configured; pass --journal or set \"journal\" in the config file")
	}

	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	if historyStatsFlag {
		stats, err := s.journal.Stats(ctx)
		if err != nil {
			return withExitCode(ExitConfigError, err)
		}
		if historyJSONFlag {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}
		fmt.Fprintf(w, "Total:   %d\n", stats.Total)
		fmt.Fprintf(w, "Success: %d\n", stats.Success)
		fmt.Fprintf(w, "Failure: %d\n", stats.Failure)
		if stats.Total > 0 {
			fmt.Fprintf(w, "First:   %s\n", stats.Earliest.Local().Format("2006-01-02 15:04:05"))
			fmt.Fprintf(w, "Last:    %s\n", stats.Latest.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	}

	entries, err := s.journal.Recent(ctx, historyLimitFlag)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}
	if historyJSONFlag {
		f := output.NewJSONFormatter()
		f.SetWriter(w)
		return f.FormatHistory(entries)
	}
	s.out.FormatHistory(entries)
	return nil
}
