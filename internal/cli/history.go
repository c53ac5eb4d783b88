package cli

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanglvm/tool-preselect/internal/benchmark"
	"github.com/khanglvm/tool-preselect/internal/storage"
)

// NewHistoryCmd creates the 'history' command for recorded searches and benchmark runs.
func NewHistoryCmd(opts *GlobalOptions) *cobra.Command {
	var limit int
	var runs bool
	var cleanupDays int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent searches and benchmark runs",
		Long: `Show the searches recorded by 'repl', 'match' and 'serve', or with --runs
the saved benchmark runs. Queries are stored as SHA-256 hashes only.

History needs the sqlite storage backend.`,
		Example: `  tool-preselect history
  tool-preselect history --runs --limit 5
  tool-preselect history --cleanup-days 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx, opts, appNeeds{})
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			if app.DB == nil {
				fmt.Fprintln(out, "History is not kept with the memory backend.")
				return nil
			}

			if cleanupDays > 0 {
				if err := app.DB.Cleanup(ctx, time.Duration(cleanupDays)*24*time.Hour); err != nil {
					return err
				}
				fmt.Fprintf(out, "✓ Removed history older than %d days\n", cleanupDays)
				return nil
			}

			if runs {
				list, err := app.DB.ListBenchmarkRuns(ctx, limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(out, list)
				}
				printRuns(out, list)
				return nil
			}

			searches, err := app.DB.RecentSearches(ctx, limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(out, searches)
			}
			printSearches(out, searches)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries")
	cmd.Flags().BoolVar(&runs, "runs", false, "Show benchmark runs instead of searches")
	cmd.Flags().IntVar(&cleanupDays, "cleanup-days", 0, "Delete history older than this many days")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func printSearches(w io.Writer, searches []storage.SearchRecord) {
	if len(searches) == 0 {
		fmt.Fprintln(w, "No searches recorded.")
		return
	}

	fmt.Fprintf(w, "Recent searches (%d):\n\n", len(searches))
	for _, s := range searches {
		result := "no match"
		switch {
		case s.Error != "":
			result = "error: " + s.Error
		case s.TopTool != "":
			result = fmt.Sprintf("%s [%.3f], %d candidates", s.TopTool, s.TopScore, s.ResultsCount)
		}
		fmt.Fprintf(w, "  %s  %-6s  %s  %s\n",
			s.Timestamp.Local().Format("2006-01-02 15:04:05"), s.Pipeline, s.QueryHash[:min(12, len(s.QueryHash))], result)
	}
}

func printRuns(w io.Writer, runs []storage.BenchmarkRun) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No benchmark runs recorded.")
		return
	}

	fmt.Fprintf(w, "Benchmark runs (%d):\n\n", len(runs))
	for _, r := range runs {
		fmt.Fprintf(w, "  %s  %d cases  direct %s (%.2fms)  hyde %s (%.2fms)  keyword %s  [%s]\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Cases,
			formatAccuracyPtr(r.DirectAccuracy), r.DirectLatencyMs,
			formatAccuracyPtr(r.HyDEAccuracy), r.HyDELatencyMs,
			formatAccuracyPtr(r.KeywordAccuracy),
			r.EmbeddingModel,
		)
	}
}

func formatAccuracyPtr(v *float64) string {
	if v == nil {
		return benchmark.FormatAccuracy(math.NaN())
	}
	return benchmark.FormatAccuracy(*v)
}
