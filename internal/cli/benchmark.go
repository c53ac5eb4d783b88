package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanglvm/tool-preselect/internal/benchmark"
	"github.com/khanglvm/tool-preselect/internal/config"
	"github.com/khanglvm/tool-preselect/internal/search"
	"github.com/khanglvm/tool-preselect/internal/storage"
)

// benchmarkParams are the evaluator settings a run takes from flags.
type benchmarkParams struct {
	casesFile  string
	workers    int
	keyword    bool
	detail     int
	jsonOutput bool
}

// NewBenchmarkCmd creates the 'benchmark' command for retrieval accuracy testing.
func NewBenchmarkCmd(opts *GlobalOptions) *cobra.Command {
	var params benchmarkParams
	var yes bool

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Measure tool selection accuracy: direct query vs HyDE rewrite",
		Long: `Run every labeled case through both matching pipelines:

DIRECT:
  The request is embedded as typed and matched against tool descriptions.

HYDE:
  An LLM first rewrites the request into a hypothetical tool description,
  which is then embedded and matched.

A case is a hit when the expected tool is among the accepted candidates.
The report shows accuracy and mean latency per pipeline. With --keyword a
BM25 baseline over the same catalog is reported alongside.

Running the benchmark calls the embedding and chat APIs once or more per case.`,
		Example: `  # Run the built-in 60 cases
  tool-preselect benchmark

  # Custom cases, 8 workers, no confirmation prompt
  tool-preselect benchmark --cases cases.yaml --workers 8 --yes

  # Output as JSON
  tool-preselect benchmark --json --yes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := NewApp(ctx, opts, appNeeds{rewriter: true, metrics: true, autoIndex: true})
			if err != nil {
				return err
			}
			defer app.Close()

			if !yes && app.Config.Embedding.Provider == config.ProviderOpenAI {
				ok, err := confirmCost(cmd.InOrStdin(), cmd.ErrOrStderr())
				if err != nil || !ok {
					return err
				}
			}

			_, err = runEvaluation(ctx, app, params, cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().StringVar(&params.casesFile, "cases", "", "YAML file of {query, expectedTool} cases (default: built-in cases)")
	cmd.Flags().IntVarP(&params.workers, "workers", "w", 0, "Cases evaluated concurrently (default: benchmark.workers)")
	cmd.Flags().BoolVar(&params.keyword, "keyword", false, "Also report a BM25 keyword baseline")
	cmd.Flags().IntVar(&params.detail, "detail", 3, "Matches shown per case and pipeline (0 hides per-case detail)")
	cmd.Flags().BoolVarP(&params.jsonOutput, "json", "j", false, "Output as JSON")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the API cost confirmation")

	return cmd
}

// confirmCost asks the y/n question before a paid run.
func confirmCost(in io.Reader, out io.Writer) (bool, error) {
	fmt.Fprintln(out, "\nWarning: Running benchmarks will incur API costs. Do you want to continue? (y/n)")
	reader := bufio.NewReader(in)
	answer, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(answer), "y"), nil
}

// runEvaluation runs the evaluator with app's components, renders the report to w
// and stores its summary.
func runEvaluation(ctx context.Context, app *App, params benchmarkParams, w io.Writer) (*benchmark.Report, error) {
	cases, err := loadCases(params.casesFile, app.Config.Benchmark.CasesFile)
	if err != nil {
		return nil, err
	}

	workers := params.workers
	if workers <= 0 {
		workers = app.Config.Benchmark.Workers
	}
	evalOpts := []benchmark.Option{
		benchmark.WithWorkers(workers),
		benchmark.WithCaseTimeout(app.Config.CaseTimeout()),
		benchmark.WithLogger(app.Logger),
		benchmark.WithMetrics(app.Metrics),
	}

	records, err := app.Catalog.Records(ctx)
	if err != nil {
		return nil, err
	}

	if params.keyword {
		index, err := search.NewIndexer()
		if err != nil {
			return nil, fmt.Errorf("create keyword index: %w", err)
		}
		defer index.Close()
		index.SetLogger(app.Logger)
		if err := index.IndexRecords(records); err != nil {
			return nil, fmt.Errorf("build keyword index: %w", err)
		}
		if docs, err := index.Count(); err == nil {
			app.Logger.Debug("keyword index built", zap.Uint64("documents", docs))
		}
		evalOpts = append(evalOpts, benchmark.WithKeywordIndex(index, app.Config.Matcher.MaxResults))
	}

	var rewriter benchmark.Rewriter
	if app.Rewriter != nil {
		rewriter = app.Rewriter
	} else {
		app.Logger.Warn("no chat model configured, every HyDE case will be a miss")
	}

	evaluator := benchmark.NewEvaluator(app.Matcher, evalOpts...)
	report, runErr := evaluator.Run(ctx, cases, app.Catalog, rewriter)
	if report == nil {
		return nil, runErr
	}
	estimate := benchmark.EstimateContext(records, report.Direct)
	report.Context = &estimate

	if params.jsonOutput {
		data, err := report.JSON()
		if err != nil {
			return report, err
		}
		fmt.Fprintln(w, string(data))
	} else {
		fmt.Fprintln(w, benchmark.FormatReport(report, params.detail))
	}

	saveRun(app, report)
	return report, runErr
}

func loadCases(flagPath, configPath string) ([]benchmark.Case, error) {
	path := flagPath
	if path == "" {
		path = configPath
	}
	if path == "" {
		return benchmark.DefaultCases(), nil
	}
	return benchmark.LoadCases(path)
}

// saveRun stores the run summary. Failures are logged only.
func saveRun(app *App, report *benchmark.Report) {
	if app.DB == nil {
		return
	}

	data, err := report.JSON()
	if err != nil {
		app.Logger.Warn("failed to encode report", zap.Error(err))
		return
	}

	run := storage.BenchmarkRun{
		RunID:           uuid.NewString(),
		StartedAt:       report.Started,
		Cases:           report.Cases,
		DirectAccuracy:  accuracyPtr(report.Direct.Accuracy),
		HyDEAccuracy:    accuracyPtr(report.HyDE.Accuracy),
		DirectLatencyMs: millis(report.Direct.MeanLatency.Microseconds()),
		HyDELatencyMs:   millis(report.HyDE.MeanLatency.Microseconds()),
		EmbeddingModel:  app.Catalog.Model(),
		ChatModel:       app.ChatModelName(),
		Report:          string(data),
	}
	if report.Keyword != nil {
		run.KeywordAccuracy = accuracyPtr(report.Keyword.Accuracy)
	}

	// Detached so an interrupted run is still stored
	if err := app.DB.RecordBenchmarkRun(context.Background(), run); err != nil {
		app.Logger.Warn("failed to store benchmark run", zap.Error(err))
	}
}

func accuracyPtr(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func millis(us int64) float64 {
	return float64(us) / 1000
}
