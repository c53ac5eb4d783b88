package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/khanglvm/tool-preselect/internal/invoke"
	"github.com/khanglvm/tool-preselect/internal/search"
	"github.com/khanglvm/tool-preselect/internal/selector"
)

// toolInvoker answers a request with the selected tools bound. *invoke.Invoker implements it.
type toolInvoker interface {
	Invoke(ctx context.Context, request string, candidates []search.Candidate) (*invoke.Result, error)
}

// selectedCandidates returns the list the verdict is based on: HyDE's, or
// direct's when HyDE failed.
func selectedCandidates(hydeOut, directOut selector.Outcome) []search.Candidate {
	if hydeOut.Err != nil {
		return directOut.Candidates
	}
	return hydeOut.Candidates
}

// executeTurn hands request to the model with only the selected tools and
// prints the calls and the answer. Without candidates it does nothing.
func executeTurn(ctx context.Context, inv toolInvoker, request string, candidates []search.Candidate, w io.Writer) (*invoke.Result, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	result, err := inv.Invoke(ctx, request, candidates)
	if result != nil {
		printResult(w, result)
	}
	return result, err
}

func printResult(w io.Writer, r *invoke.Result) {
	for _, c := range r.Calls {
		if c.Err != "" {
			fmt.Fprintf(w, "\nCalled %s %s: error: %s", c.Tool, c.Arguments, c.Err)
			continue
		}
		fmt.Fprintf(w, "\nCalled %s %s -> %s", c.Tool, c.Arguments, c.Output)
	}
	if len(r.Calls) > 0 {
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "\nResult: %s\n", r.Answer)
}
