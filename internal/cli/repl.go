package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanglvm/tool-preselect/internal/selector"
)

// turnSelector runs both pipelines for one interactive turn. *selector.Selector implements it.
type turnSelector interface {
	HyDE(ctx context.Context, query string) selector.Outcome
	Direct(ctx context.Context, query string) selector.Outcome
}

// NewReplCmd creates the 'repl' command for interactive matching.
func NewReplCmd(opts *GlobalOptions) *cobra.Command {
	var detail int
	var noExecute bool

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Match requests interactively, comparing HyDE and direct matching",
		Long: `Read requests line by line and show, for each, the latency and the tools
selected by the HyDE pipeline and by the direct pipeline. When a chat model
is configured, the request is then answered with only the selected tools
available, and the tool calls and the answer are printed.

Commands inside the loop:
  exit          quit (an empty line quits too)
  -benchmark    run the benchmark after a cost confirmation

Ctrl-C cancels the request in flight and returns to the prompt.`,
		Example: `  tool-preselect repl
  tool-preselect repl --config ./azure.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := NewApp(ctx, opts, appNeeds{rewriter: true, history: true, metrics: true, autoIndex: true})
			if err != nil {
				return err
			}
			defer app.Close()

			bench := func(ctx context.Context, w io.Writer) error {
				_, err := runEvaluation(ctx, app, benchmarkParams{detail: detail}, w)
				return err
			}
			var inv toolInvoker
			if !noExecute {
				inv = app.toolInvoker()
			}
			return runRepl(ctx, app.Selector, inv, bench, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&detail, "detail", 3, "Matches shown per case in '-benchmark' reports")
	cmd.Flags().BoolVar(&noExecute, "no-execute", false, "Only select tools, do not answer the request")

	return cmd
}

// runRepl is the interactive loop. It returns when input ends, on "exit" or an empty line.
// A nil inv only selects tools.
func runRepl(ctx context.Context, sel turnSelector, inv toolInvoker, bench func(context.Context, io.Writer) error, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprintln(out, "\nEnter your request (or 'exit' to quit):")
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.EqualFold(line, "exit") {
			return nil
		}

		if strings.EqualFold(line, "-benchmark") {
			fmt.Fprintln(out, "\nWarning: Running benchmarks will incur API costs. Do you want to continue? (y/n)")
			if !scanner.Scan() {
				return scanner.Err()
			}
			if strings.EqualFold(strings.TrimSpace(scanner.Text()), "y") {
				turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
				err := bench(turnCtx, out)
				stop()
				if err != nil {
					fmt.Fprintf(out, "Error: %v\n", err)
				}
			}
			continue
		}

		turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		hydeOut := sel.HyDE(turnCtx, line)
		directOut := sel.Direct(turnCtx, line)
		printComparison(out, hydeOut, directOut)
		if inv != nil {
			if _, err := executeTurn(turnCtx, inv, line, selectedCandidates(hydeOut, directOut), out); err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
			}
		}
		stop()

		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
