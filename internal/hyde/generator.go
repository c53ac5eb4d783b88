package hyde

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/khanglvm/tool-preselect/internal/metrics"
)

// Generator renders a prompt template and returns the generated text.
// Backend failures wrap ErrGenerationUnavailable.
type Generator interface {
	Generate(ctx context.Context, template string, vars map[string]any, maxTokens int, temperature float32) (string, error)
}

// ChatGenerator adapts an eino chat model to Generator. The rendered template is
// sent as a single user message.
type ChatGenerator struct {
	chat    model.BaseChatModel
	name    string
	metrics metrics.Metrics
}

// NewChatGenerator wraps chat. name labels metrics; m may be nil.
func NewChatGenerator(chat model.BaseChatModel, name string, m metrics.Metrics) *ChatGenerator {
	return &ChatGenerator{chat: chat, name: name, metrics: metrics.OrNop(m)}
}

// Generate formats template with vars and calls the chat model.
// A response without content yields "".
func (g *ChatGenerator) Generate(ctx context.Context, template string, vars map[string]any, maxTokens int, temperature float32) (string, error) {
	messages, err := prompt.FromMessages(schema.FString, schema.UserMessage(template)).Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	opts := []model.Option{model.WithTemperature(temperature)}
	if maxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(maxTokens))
	}

	start := time.Now()
	resp, err := g.chat.Generate(ctx, messages, opts...)
	g.metrics.ObserveGenerate(g.name, time.Since(start), err)
	if err != nil {
		return "", unavailable(err)
	}
	if resp == nil {
		return "", nil
	}
	return resp.Content, nil
}

var _ Generator = (*ChatGenerator)(nil)
