package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/khanglvm/tool-preselect/internal/search"
	"github.com/khanglvm/tool-preselect/internal/selector"
)

// printMatches writes one "- Name (Group): Description" line per candidate.
func printMatches(w io.Writer, candidates []search.Candidate) {
	if len(candidates) == 0 {
		fmt.Fprintln(w, "- No matches found")
		return
	}
	for _, c := range candidates {
		fmt.Fprintf(w, "- %s (%s): %s\n", c.Name, c.Group, c.Description)
	}
}

// printComparison renders one interactive turn: both timings, both match lists,
// then the verdict for the HyDE pipeline.
func printComparison(w io.Writer, hydeOut, directOut selector.Outcome) {
	fmt.Fprintln(w, "\nResults:")
	fmt.Fprintf(w, "HyDE Approach: %s\n", formatMillis(hydeOut))
	fmt.Fprintf(w, "Direct Approach: %s\n", formatMillis(directOut))

	if hydeOut.Rewritten != "" {
		fmt.Fprintf(w, "\nHypothetical description: %s\n", hydeOut.Rewritten)
	}
	if hydeOut.FellBack() {
		fmt.Fprintf(w, "\nHyDE unavailable (%v), showing direct-query matches.\n", hydeOut.RewriteErr)
	}

	fmt.Fprintln(w, "\nHyDE Matches:")
	printOutcome(w, hydeOut)

	fmt.Fprintln(w, "\nDirect Matches:")
	printOutcome(w, directOut)

	fmt.Fprintln(w)
	fmt.Fprintln(w, verdict(hydeOut, directOut))
}

func printOutcome(w io.Writer, out selector.Outcome) {
	if out.Err != nil {
		fmt.Fprintf(w, "Error: %v\n", out.Err)
		return
	}
	printMatches(w, out.Candidates)
}

func formatMillis(out selector.Outcome) string {
	return fmt.Sprintf("%.2fms", float64(out.Latency.Microseconds())/1000)
}

// verdict separates "nothing matched" from "could not search".
func verdict(hydeOut, directOut selector.Outcome) string {
	best := hydeOut
	if best.Err != nil {
		best = directOut
	}
	switch {
	case best.Err != nil:
		return fmt.Sprintf("Error: %v", best.Err)
	case len(best.Candidates) == 0:
		return "No matching tool found."
	default:
		names := make([]string, 0, len(best.Candidates))
		for _, c := range best.Candidates {
			names = append(names, c.Group+"."+c.Name)
		}
		return "Selected tools: " + strings.Join(names, ", ")
	}
}

type outcomeJSON struct {
	Pipeline   string             `json:"pipeline"`
	Rewritten  string             `json:"rewritten,omitempty"`
	Candidates []search.Candidate `json:"candidates"`
	LatencyMs  float64            `json:"latencyMs"`
	Error      string             `json:"error,omitempty"`
	Fallback   string             `json:"fallback,omitempty"`
}

func toJSON(out selector.Outcome) outcomeJSON {
	j := outcomeJSON{
		Pipeline:   out.Pipeline,
		Rewritten:  out.Rewritten,
		Candidates: out.Candidates,
		LatencyMs:  float64(out.Latency.Microseconds()) / 1000,
	}
	if j.Candidates == nil {
		j.Candidates = []search.Candidate{}
	}
	if out.Err != nil {
		j.Error = out.Err.Error()
	}
	if out.RewriteErr != nil {
		j.Fallback = out.RewriteErr.Error()
	}
	return j
}

// writeJSON writes v indented, followed by a newline.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
