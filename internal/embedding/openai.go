package embedding

import (
	"context"
	"fmt"
	"strings"

	einoembedding "github.com/cloudwego/eino/components/embedding"
	aclopenai "github.com/cloudwego/eino-ext/libs/acl/openai"
)

// DefaultOpenAIModel matches the 1536-dimension model the catalog defaults to.
const DefaultOpenAIModel = "text-embedding-ada-002"

// OpenAIConfig configures an OpenAI or Azure OpenAI embedding deployment.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	ByAzure    bool
	APIVersion string
	Model      string
	// Dimensions is only sent when > 0 (text-embedding-3 models support shortening).
	Dimensions int
}

// EinoEmbedder adapts an eino embedding component to Embedder.
type EinoEmbedder struct {
	embedder einoembedding.Embedder
	model    string
}

// NewEinoEmbedder wraps an existing eino embedder.
func NewEinoEmbedder(embedder einoembedding.Embedder, model string) *EinoEmbedder {
	return &EinoEmbedder{embedder: embedder, model: model}
}

// NewOpenAIEmbedder builds an EinoEmbedder backed by the OpenAI embeddings API.
func NewOpenAIEmbedder(ctx context.Context, cfg OpenAIConfig) (*EinoEmbedder, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("embedding API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	clientCfg := &aclopenai.EmbeddingConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		ByAzure:    cfg.ByAzure,
		APIVersion: cfg.APIVersion,
		Model:      model,
	}
	if cfg.Dimensions > 0 {
		dims := cfg.Dimensions
		clientCfg.Dimensions = &dims
	}

	client, err := aclopenai.NewEmbeddingClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}

	return NewEinoEmbedder(client, ModelName(model, cfg.Dimensions)), nil
}

// ModelName qualifies model with a shortened dimension so vectors of different
// lengths never share a cache key or a catalog stamp.
func ModelName(model string, dimensions int) string {
	if dimensions <= 0 {
		return model
	}
	return fmt.Sprintf("%s@%d", model, dimensions)
}

// Embed calls the underlying component with a single-element batch.
func (e *EinoEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, unavailable(err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, unavailable(fmt.Errorf("expected 1 vector, got %d", len(vectors)))
	}

	out := make([]float32, len(vectors[0]))
	for i, v := range vectors[0] {
		out[i] = float32(v)
	}
	return out, nil
}

// Model returns the configured model name, including any shortened dimension.
func (e *EinoEmbedder) Model() string {
	return e.model
}

var _ Embedder = (*EinoEmbedder)(nil)
