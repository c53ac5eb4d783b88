package hyde

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// DefaultChatModel is used when ModelConfig.Model is empty.
const DefaultChatModel = "gpt-4o-mini"

// ModelConfig configures the OpenAI (or Azure OpenAI) chat deployment.
type ModelConfig struct {
	APIKey       string
	APIKeyEnvVar string
	BaseURL      string
	ByAzure      bool
	APIVersion   string
	Model        string
}

// ResolveAPIKey returns APIKey, or the value of APIKeyEnvVar when APIKey is empty.
func (c ModelConfig) ResolveAPIKey() (string, error) {
	apiKey := strings.TrimSpace(c.APIKey)
	if apiKey != "" {
		return apiKey, nil
	}
	envVar := strings.TrimSpace(c.APIKeyEnvVar)
	if envVar == "" {
		return "", fmt.Errorf("API key is required: set openai.apiKey or openai.apiKeyEnvVar")
	}
	apiKey = os.Getenv(envVar)
	if apiKey == "" {
		return "", fmt.Errorf("API key not found in env var %s", envVar)
	}
	return apiKey, nil
}

// NewOpenAIChatModel creates the eino OpenAI chat model.
func NewOpenAIChatModel(ctx context.Context, config ModelConfig) (model.ToolCallingChatModel, error) {
	apiKey, err := config.ResolveAPIKey()
	if err != nil {
		return nil, err
	}

	name := config.Model
	if name == "" {
		name = DefaultChatModel
	}

	cfg := &openai.ChatModelConfig{
		Model:  name,
		APIKey: apiKey,
	}
	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}
	if config.ByAzure {
		cfg.ByAzure = true
		cfg.APIVersion = config.APIVersion
	}
	return openai.NewChatModel(ctx, cfg)
}
