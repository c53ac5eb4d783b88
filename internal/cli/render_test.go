package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/khanglvm/tool-preselect/internal/search"
	"github.com/khanglvm/tool-preselect/internal/selector"
)

var (
	emailCandidate = search.Candidate{Name: "ValidateEmail", Group: "ValidationPlugin", Description: "Validates email addresses", Score: 0.93}
	urlCandidate   = search.Candidate{Name: "ExtractUrls", Group: "TextAnalysisPlugin", Description: "Extracts URLs from text", Score: 0.81}
)

func TestPrintMatches(t *testing.T) {
	var buf bytes.Buffer
	printMatches(&buf, []search.Candidate{emailCandidate, urlCandidate})

	want := "- ValidateEmail (ValidationPlugin): Validates email addresses\n" +
		"- ExtractUrls (TextAnalysisPlugin): Extracts URLs from text\n"
	if buf.String() != want {
		t.Errorf("printMatches() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestPrintMatchesEmpty(t *testing.T) {
	var buf bytes.Buffer
	printMatches(&buf, nil)

	if buf.String() != "- No matches found\n" {
		t.Errorf("printMatches(nil) = %q", buf.String())
	}
}

func TestVerdict(t *testing.T) {
	storageErr := errors.New("storage down")
	tests := []struct {
		name   string
		hyde   selector.Outcome
		direct selector.Outcome
		want   string
	}{
		{
			name: "hyde candidates",
			hyde: selector.Outcome{Candidates: []search.Candidate{emailCandidate, urlCandidate}},
			want: "Selected tools: ValidationPlugin.ValidateEmail, TextAnalysisPlugin.ExtractUrls",
		},
		{
			name:   "no match",
			hyde:   selector.Outcome{Candidates: []search.Candidate{}},
			direct: selector.Outcome{Candidates: []search.Candidate{emailCandidate}},
			want:   "No matching tool found.",
		},
		{
			name:   "hyde error uses direct",
			hyde:   selector.Outcome{Err: storageErr},
			direct: selector.Outcome{Candidates: []search.Candidate{urlCandidate}},
			want:   "Selected tools: TextAnalysisPlugin.ExtractUrls",
		},
		{
			name:   "both failed",
			hyde:   selector.Outcome{Err: storageErr},
			direct: selector.Outcome{Err: storageErr},
			want:   "Error: storage down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := verdict(tt.hyde, tt.direct); got != tt.want {
				t.Errorf("verdict() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintComparison(t *testing.T) {
	hydeOut := selector.Outcome{
		Pipeline:   "hyde",
		Rewritten:  "Validates email address format",
		Candidates: []search.Candidate{emailCandidate},
		Latency:    1500 * time.Microsecond,
	}
	directOut := selector.Outcome{
		Pipeline:   "direct",
		Candidates: []search.Candidate{},
		Latency:    250 * time.Microsecond,
	}

	var buf bytes.Buffer
	printComparison(&buf, hydeOut, directOut)
	out := buf.String()

	for _, want := range []string{
		"HyDE Approach: 1.50ms",
		"Direct Approach: 0.25ms",
		"Hypothetical description: Validates email address format",
		"HyDE Matches:\n- ValidateEmail (ValidationPlugin): Validates email addresses",
		"Direct Matches:\n- No matches found",
		"Selected tools: ValidationPlugin.ValidateEmail",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "HyDE unavailable") {
		t.Errorf("unexpected fallback note:\n%s", out)
	}
}

func TestPrintComparisonFallbackAndError(t *testing.T) {
	hydeOut := selector.Outcome{
		Candidates: []search.Candidate{emailCandidate},
		RewriteErr: selector.ErrNoRewriter,
	}
	directOut := selector.Outcome{Err: errors.New("embedding unavailable")}

	var buf bytes.Buffer
	printComparison(&buf, hydeOut, directOut)
	out := buf.String()

	if !strings.Contains(out, "HyDE unavailable (query rewriting is not configured)") {
		t.Errorf("missing fallback note:\n%s", out)
	}
	if !strings.Contains(out, "Direct Matches:\nError: embedding unavailable") {
		t.Errorf("missing direct error:\n%s", out)
	}
}

func TestToJSON(t *testing.T) {
	j := toJSON(selector.Outcome{
		Pipeline:   "hyde",
		Latency:    2 * time.Millisecond,
		Err:        errors.New("boom"),
		RewriteErr: selector.ErrNoRewriter,
	})

	if j.Candidates == nil {
		t.Error("Candidates should be an empty slice, not nil")
	}
	if j.LatencyMs != 2 || j.Error != "boom" || j.Fallback == "" {
		t.Errorf("unexpected JSON outcome: %+v", j)
	}
}
