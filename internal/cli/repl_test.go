package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/khanglvm/tool-preselect/internal/search"
	"github.com/khanglvm/tool-preselect/internal/selector"
)

type fakeTurns struct {
	queries []string
}

func (f *fakeTurns) HyDE(_ context.Context, query string) selector.Outcome {
	f.queries = append(f.queries, "hyde:"+query)
	return selector.Outcome{Pipeline: "hyde", Query: query, Candidates: []search.Candidate{emailCandidate}}
}

func (f *fakeTurns) Direct(_ context.Context, query string) selector.Outcome {
	f.queries = append(f.queries, "direct:"+query)
	return selector.Outcome{Pipeline: "direct", Query: query, Candidates: []search.Candidate{}}
}

type benchSpy struct {
	calls int
	err   error
}

func (b *benchSpy) run(_ context.Context, w io.Writer) error {
	b.calls++
	io.WriteString(w, "BENCHMARK REPORT\n")
	return b.err
}

func TestRunRepl_Turns(t *testing.T) {
	sel := &fakeTurns{}
	bench := &benchSpy{}
	var out bytes.Buffer

	err := runRepl(context.Background(), sel, nil, bench.run, strings.NewReader("check my email\n  \n"), &out)
	if err != nil {
		t.Fatalf("runRepl() failed: %v", err)
	}

	want := []string{"hyde:check my email", "direct:check my email"}
	if strings.Join(sel.queries, ",") != strings.Join(want, ",") {
		t.Errorf("queries = %v, want %v", sel.queries, want)
	}
	if got := strings.Count(out.String(), "Enter your request (or 'exit' to quit):"); got != 2 {
		t.Errorf("prompt shown %d times, want 2", got)
	}
	if !strings.Contains(out.String(), "HyDE Matches:\n- ValidateEmail") {
		t.Errorf("missing HyDE matches:\n%s", out.String())
	}
}

func TestRunRepl_Exit(t *testing.T) {
	for _, input := range []string{"exit\nnever\n", "EXIT\n", "\n", ""} {
		sel := &fakeTurns{}
		var out bytes.Buffer

		if err := runRepl(context.Background(), sel, nil, (&benchSpy{}).run, strings.NewReader(input), &out); err != nil {
			t.Fatalf("runRepl(%q) failed: %v", input, err)
		}
		if len(sel.queries) != 0 {
			t.Errorf("runRepl(%q) ran queries %v", input, sel.queries)
		}
	}
}

func TestRunRepl_Benchmark(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCalls int
		wantText  string
	}{
		{"confirmed", "-benchmark\ny\nexit\n", 1, "BENCHMARK REPORT"},
		{"declined", "-benchmark\nn\nexit\n", 0, ""},
		{"case insensitive", "-BENCHMARK\nY\n", 1, "BENCHMARK REPORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := &fakeTurns{}
			bench := &benchSpy{}
			var out bytes.Buffer

			if err := runRepl(context.Background(), sel, nil, bench.run, strings.NewReader(tt.input), &out); err != nil {
				t.Fatalf("runRepl() failed: %v", err)
			}
			if bench.calls != tt.wantCalls {
				t.Errorf("benchmark ran %d times, want %d", bench.calls, tt.wantCalls)
			}
			if !strings.Contains(out.String(), "Warning: Running benchmarks will incur API costs.") {
				t.Errorf("missing cost warning:\n%s", out.String())
			}
			if tt.wantText != "" && !strings.Contains(out.String(), tt.wantText) {
				t.Errorf("output missing %q", tt.wantText)
			}
			if len(sel.queries) != 0 {
				t.Errorf("-benchmark was matched as a request: %v", sel.queries)
			}
		})
	}
}

func TestRunRepl_BenchmarkError(t *testing.T) {
	bench := &benchSpy{err: errors.New("no cases")}
	var out bytes.Buffer

	err := runRepl(context.Background(), &fakeTurns{}, nil, bench.run, strings.NewReader("-benchmark\ny\nexit\n"), &out)
	if err != nil {
		t.Fatalf("benchmark errors should not end the loop: %v", err)
	}
	if !strings.Contains(out.String(), "Error: no cases") {
		t.Errorf("missing error line:\n%s", out.String())
	}
}

func TestRunRepl_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runRepl(ctx, &fakeTurns{}, nil, (&benchSpy{}).run, strings.NewReader("one\ntwo\n"), io.Discard)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("runRepl() = %v, want context.Canceled", err)
	}
}
