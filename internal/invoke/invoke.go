/*
Package invoke answers a request with only the pre-selected tools bound to the
chat model. The model decides which candidate (if any) to call; calls run
against local functions and their output is fed back until the model answers.
*/
package invoke

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/khanglvm/tool-preselect/internal/hyde"
	"github.com/khanglvm/tool-preselect/internal/metrics"
	"github.com/khanglvm/tool-preselect/internal/search"
)

// DefaultMaxRounds bounds the model turns of one request.
const DefaultMaxRounds = 5

var (
	// ErrNoCandidates is returned when there is no tool to offer.
	ErrNoCandidates = errors.New("no matching tool found")

	// ErrTooManyRounds is returned when the model keeps calling tools.
	ErrTooManyRounds = errors.New("model did not answer")
)

// Call is one tool call the model made.
type Call struct {
	Tool      string `json:"tool"`
	Arguments string `json:"arguments"`
	Output    string `json:"output,omitempty"`
	Err       string `json:"error,omitempty"`
}

// Result is the model's answer and the calls that led to it.
type Result struct {
	Answer  string        `json:"answer"`
	Calls   []Call        `json:"calls"`
	Rounds  int           `json:"rounds"`
	Latency time.Duration `json:"latency"`
}

// Invoker runs requests against a tool-calling chat model. It holds no per-call state.
type Invoker struct {
	chat      model.ToolCallingChatModel
	name      string
	registry  *Registry
	maxRounds int
	timeout   time.Duration
	logger    *zap.Logger
	metrics   metrics.Metrics
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithRegistry replaces the built-in local functions.
func WithRegistry(r *Registry) Option {
	return func(i *Invoker) {
		if r != nil {
			i.registry = r
		}
	}
}

// WithMaxRounds bounds the model turns. Non-positive keeps the default.
func WithMaxRounds(n int) Option {
	return func(i *Invoker) {
		if n > 0 {
			i.maxRounds = n
		}
	}
}

// WithTimeout bounds a whole Invoke call. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(i *Invoker) { i.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(i *Invoker) {
		if l != nil {
			i.logger = l.Named("invoke")
		}
	}
}

// WithMetrics sets the metrics sink for model calls.
func WithMetrics(m metrics.Metrics) Option {
	return func(i *Invoker) { i.metrics = metrics.OrNop(m) }
}

// New creates an invoker over chat. name labels metrics.
func New(chat model.ToolCallingChatModel, name string, opts ...Option) *Invoker {
	i := &Invoker{
		chat:      chat,
		name:      name,
		registry:  Builtin(),
		maxRounds: DefaultMaxRounds,
		logger:    zap.NewNop(),
		metrics:   metrics.Nop{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Invoke sends request to the model with candidates as its only tools.
// Tool failures are reported back to the model and recorded in the result;
// only model failures (wrapping hyde.ErrGenerationUnavailable) abort the call.
func (i *Invoker) Invoke(ctx context.Context, request string, candidates []search.Candidate) (*Result, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	start := time.Now()
	infos, tools := i.registry.Bind(candidates)
	chat, err := i.chat.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("bind tools: %w", err)
	}

	messages := []*schema.Message{schema.UserMessage(request)}
	result := &Result{Calls: []Call{}}

	for round := 1; round <= i.maxRounds; round++ {
		genStart := time.Now()
		resp, err := chat.Generate(ctx, messages)
		i.metrics.ObserveGenerate(i.name, time.Since(genStart), err)
		if err != nil {
			if errors.Is(err, hyde.ErrGenerationUnavailable) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", hyde.ErrGenerationUnavailable, err)
		}
		result.Rounds = round

		if resp == nil || len(resp.ToolCalls) == 0 {
			if resp != nil {
				result.Answer = resp.Content
			}
			result.Latency = time.Since(start)
			i.logger.Debug("request answered",
				zap.Int("rounds", round),
				zap.Int("calls", len(result.Calls)),
				zap.Duration("latency", result.Latency),
			)
			return result, nil
		}

		messages = append(messages, resp)
		for _, tc := range resp.ToolCalls {
			call := i.run(ctx, tools, tc)
			result.Calls = append(result.Calls, call)

			content := call.Output
			if call.Err != "" {
				content = "error: " + call.Err
			}
			messages = append(messages, schema.ToolMessage(content, tc.ID, schema.WithToolName(tc.Function.Name)))
		}
	}

	result.Latency = time.Since(start)
	return result, fmt.Errorf("%w after %d rounds", ErrTooManyRounds, i.maxRounds)
}

func (i *Invoker) run(ctx context.Context, tools map[string]tool.InvokableTool, tc schema.ToolCall) Call {
	call := Call{Tool: displayName(tc.Function.Name), Arguments: tc.Function.Arguments}

	t, ok := tools[tc.Function.Name]
	if !ok {
		call.Err = fmt.Sprintf("unknown tool %q", tc.Function.Name)
		i.logger.Warn("model called a tool it was not offered", zap.String("tool", tc.Function.Name))
		return call
	}

	args := tc.Function.Arguments
	if strings.TrimSpace(args) == "" {
		args = "{}"
	}
	output, err := t.InvokableRun(ctx, args)
	if err != nil {
		call.Err = err.Error()
		i.logger.Warn("tool call failed", zap.String("tool", call.Tool), zap.Error(err))
		return call
	}
	call.Output = output
	return call
}

// displayName turns a function name back into Group/Name.
func displayName(fnName string) string {
	group, name, ok := strings.Cut(fnName, "-")
	if !ok {
		return fnName
	}
	return group + "/" + name
}
