/*
Package hyde rewrites a user request into a hypothetical tool description
(Hypothetical Document Embeddings) before it is matched against the catalog.

Descriptions registered in the catalog are written in capability style
("Extracts numbers from text"); requests are conversational. Embedding a
generated description instead of the raw request narrows that gap.
*/
package hyde

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrGenerationUnavailable is returned (wrapped) when the text-generation backend
// is unreachable, errors, or times out.
var ErrGenerationUnavailable = errors.New("text generation unavailable")

const (
	// DefaultMaxTokens bounds the generated description.
	DefaultMaxTokens = 100

	// DefaultTemperature keeps sampling near-deterministic.
	DefaultTemperature float32 = 0.2
)

// Rewriter produces hypothetical tool descriptions. It holds no per-call state.
type Rewriter struct {
	generator   Generator
	template    string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithMaxTokens sets the output token bound.
func WithMaxTokens(n int) Option {
	return func(r *Rewriter) {
		if n > 0 {
			r.maxTokens = n
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(r *Rewriter) { r.temperature = t }
}

// WithTimeout bounds each generation call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Rewriter) { r.timeout = d }
}

// WithTemplate replaces the prompt template. It must contain {input}.
func WithTemplate(template string) Option {
	return func(r *Rewriter) { r.template = template }
}

// NewRewriter creates a rewriter over generator.
func NewRewriter(generator Generator, opts ...Option) *Rewriter {
	r := &Rewriter{
		generator:   generator,
		template:    DefaultTemplate,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rewrite returns the generated description for request, trimmed and without a
// leading "Description:" label. Empty output is returned as "" without error.
func (r *Rewriter) Rewrite(ctx context.Context, request string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	text, err := r.generator.Generate(ctx, r.template, map[string]any{InputVar: request}, r.maxTokens, r.temperature)
	if err != nil {
		return "", unavailable(err)
	}
	return cleanDescription(text), nil
}

func cleanDescription(text string) string {
	text = strings.TrimSpace(text)
	if len(text) >= len("description:") && strings.EqualFold(text[:len("description:")], "description:") {
		text = strings.TrimSpace(text[len("description:"):])
	}
	return text
}

// unavailable wraps err with ErrGenerationUnavailable unless it already carries it.
func unavailable(err error) error {
	if err == nil || errors.Is(err, ErrGenerationUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
}
