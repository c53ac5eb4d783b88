package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanglvm/tool-preselect/internal/invoke"
	"github.com/khanglvm/tool-preselect/internal/search"
)

// NewMatchCmd creates the 'match' command for a single request.
func NewMatchCmd(opts *GlobalOptions) *cobra.Command {
	var jsonOutput bool
	var directOnly bool
	var execute bool

	cmd := &cobra.Command{
		Use:   "match <request...>",
		Short: "Select the tools for one request",
		Long: `Run one request through the HyDE and direct pipelines and print the
selected tools, exactly like one turn of 'repl'. With --execute the request is
then answered by the chat model with only the selected tools available.`,
		Example: `  tool-preselect match "what's the weather in Paris?"
  tool-preselect match --direct extract all urls from this page
  tool-preselect match --json "convert 5 miles to km"
  tool-preselect match --execute "reverse the word stressed"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return fmt.Errorf("request is empty")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			app, err := NewApp(ctx, opts, appNeeds{
				rewriter:        !directOnly || execute,
				requireRewriter: execute,
				history:         true,
				autoIndex:       true,
			})
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			directOut := app.Selector.Direct(ctx, query)

			if directOnly {
				if jsonOutput && !execute {
					return writeJSON(out, toJSON(directOut))
				}
				if !jsonOutput {
					fmt.Fprintln(out, "Direct Matches:")
					printOutcome(out, directOut)
					fmt.Fprintln(out)
					fmt.Fprintln(out, verdict(directOut, directOut))
				}
				return answer(ctx, app, query, directOut.Candidates, execute, jsonOutput, map[string]any{
					"direct": toJSON(directOut),
				}, out)
			}

			hydeOut := app.Selector.HyDE(ctx, query)
			report := map[string]any{
				"query":  query,
				"hyde":   toJSON(hydeOut),
				"direct": toJSON(directOut),
			}
			if !jsonOutput {
				printComparison(out, hydeOut, directOut)
			}
			return answer(ctx, app, query, selectedCandidates(hydeOut, directOut), execute, jsonOutput, report, out)
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	cmd.Flags().BoolVar(&directOnly, "direct", false, "Skip the HyDE rewrite")
	cmd.Flags().BoolVarP(&execute, "execute", "x", false, "Answer the request with the selected tools (needs a chat model)")

	return cmd
}

// answer optionally runs the request with candidates and writes report as JSON
// when jsonOutput is set, adding the invocation under "result".
func answer(ctx context.Context, app *App, query string, candidates []search.Candidate, execute, jsonOutput bool, report map[string]any, out io.Writer) error {
	if !execute {
		if jsonOutput {
			return writeJSON(out, report)
		}
		return nil
	}

	if jsonOutput {
		result, err := app.Invoker.Invoke(ctx, query, candidates)
		if err != nil && !errors.Is(err, invoke.ErrNoCandidates) {
			report["error"] = err.Error()
		}
		report["result"] = result
		return writeJSON(out, report)
	}

	_, err := executeTurn(ctx, app.Invoker, query, candidates, out)
	return err
}
