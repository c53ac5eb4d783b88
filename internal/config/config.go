/*
Package config handles loading and saving tool-preselect configuration.

Configuration is stored in ~/.tool-preselect.json. Every field has a default, so
the file is optional; any field can be overridden from the environment with the
TOOL_PRESELECT_ prefix (e.g. TOOL_PRESELECT_OPENAI_APIKEY, TOOL_PRESELECT_MATCHER_THRESHOLD).

Schema:
  {
    "openai": {
      "apiKeyEnvVar": "OPENAI_API_KEY",
      "chatModel": "gpt-4o-mini",
      "embeddingModel": "text-embedding-ada-002"
    },
    "embedding": {"provider": "openai", "localDimension": 256},
    "matcher": {"threshold": 0.75, "maxResults": 5},
    "hyde": {"maxTokens": 100, "temperature": 0.2},
    "benchmark": {"workers": 4, "caseTimeoutSeconds": 30},
    "storage": {"backend": "sqlite", "path": "~/.tool-preselect/catalog.db"},
    "settings": {"timeoutSeconds": 30, "logLevel": "info"}
  }
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config represents the root configuration structure.
type Config struct {
	OpenAI    OpenAIConfig    `mapstructure:"openai" json:"openai"`
	Embedding EmbeddingConfig `mapstructure:"embedding" json:"embedding"`
	Matcher   MatcherConfig   `mapstructure:"matcher" json:"matcher"`
	HyDE      HyDEConfig      `mapstructure:"hyde" json:"hyde"`
	Benchmark BenchmarkConfig `mapstructure:"benchmark" json:"benchmark"`
	Storage   StorageConfig   `mapstructure:"storage" json:"storage"`
	Settings  Settings        `mapstructure:"settings" json:"settings"`
}

// OpenAIConfig configures the OpenAI (or Azure OpenAI) deployment used for both
// embeddings and HyDE generation.
type OpenAIConfig struct {
	// APIKey takes precedence over APIKeyEnvVar.
	APIKey       string `mapstructure:"apiKey" json:"apiKey,omitempty"`
	APIKeyEnvVar string `mapstructure:"apiKeyEnvVar" json:"apiKeyEnvVar,omitempty"`
	BaseURL      string `mapstructure:"baseURL" json:"baseURL,omitempty"`
	ByAzure      bool   `mapstructure:"byAzure" json:"byAzure,omitempty"`
	APIVersion   string `mapstructure:"apiVersion" json:"apiVersion,omitempty"`

	ChatModel      string `mapstructure:"chatModel" json:"chatModel"`
	EmbeddingModel string `mapstructure:"embeddingModel" json:"embeddingModel"`

	// Dimensions is sent to the embeddings API only when > 0.
	Dimensions int `mapstructure:"dimensions" json:"dimensions,omitempty"`
}

// EmbeddingConfig selects the embedding backend.
type EmbeddingConfig struct {
	// Provider is "openai" or "local" (offline feature hashing).
	Provider string `mapstructure:"provider" json:"provider"`

	// LocalDimension is the vector size of the local provider.
	LocalDimension int `mapstructure:"localDimension" json:"localDimension"`
}

// MatcherConfig holds the acceptance rule for candidates.
type MatcherConfig struct {
	Threshold  float64 `mapstructure:"threshold" json:"threshold"`
	MaxResults int     `mapstructure:"maxResults" json:"maxResults"`
}

// HyDEConfig holds the rewrite generation parameters.
type HyDEConfig struct {
	MaxTokens   int     `mapstructure:"maxTokens" json:"maxTokens"`
	Temperature float64 `mapstructure:"temperature" json:"temperature"`
}

// BenchmarkConfig holds evaluator defaults.
type BenchmarkConfig struct {
	Workers            int    `mapstructure:"workers" json:"workers"`
	CaseTimeoutSeconds int    `mapstructure:"caseTimeoutSeconds" json:"caseTimeoutSeconds"`
	CasesFile          string `mapstructure:"casesFile" json:"casesFile,omitempty"`
}

// StorageConfig locates persistent state.
type StorageConfig struct {
	// Backend is "sqlite" or "memory".
	Backend            string `mapstructure:"backend" json:"backend"`
	Path               string `mapstructure:"path" json:"path"`
	EmbeddingCachePath string `mapstructure:"embeddingCachePath" json:"embeddingCachePath,omitempty"`
}

// Settings contains global options.
type Settings struct {
	// TimeoutSeconds bounds every embedding or generation call.
	TimeoutSeconds int    `mapstructure:"timeoutSeconds" json:"timeoutSeconds"`
	LogLevel       string `mapstructure:"logLevel" json:"logLevel"`
	MetricsAddr    string `mapstructure:"metricsAddr" json:"metricsAddr,omitempty"`
}

// NewConfig returns a configuration populated with defaults.
func NewConfig() *Config {
	return &Config{
		OpenAI: OpenAIConfig{
			APIKeyEnvVar:   "OPENAI_API_KEY",
			ChatModel:      "gpt-4o-mini",
			EmbeddingModel: "text-embedding-ada-002",
		},
		Embedding: EmbeddingConfig{
			Provider:       ProviderOpenAI,
			LocalDimension: 256,
		},
		Matcher: MatcherConfig{
			Threshold:  0.75,
			MaxResults: 5,
		},
		HyDE: HyDEConfig{
			MaxTokens:   100,
			Temperature: 0.2,
		},
		Benchmark: BenchmarkConfig{
			Workers:            4,
			CaseTimeoutSeconds: 30,
		},
		Storage: StorageConfig{
			Backend:            BackendSQLite,
			Path:               "~/.tool-preselect/catalog.db",
			EmbeddingCachePath: "~/.tool-preselect/embeddings.bolt",
		},
		Settings: Settings{
			TimeoutSeconds: 30,
			LogLevel:       "info",
		},
	}
}

// GetDefaultConfigPath returns the path to ~/.tool-preselect.json
func GetDefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".tool-preselect.json"), nil
}

// Timeout returns the per-call backend timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Settings.TimeoutSeconds) * time.Second
}

// CaseTimeout returns the per-case benchmark timeout.
func (c *Config) CaseTimeout() time.Duration {
	return time.Duration(c.Benchmark.CaseTimeoutSeconds) * time.Second
}

// ExpandPath resolves a leading "~" to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
