package config

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Validate checks every field range and returns an *InvalidConfigError listing all problems.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI, ProviderLocal:
	default:
		add("embedding.provider must be %q or %q, got %q", ProviderOpenAI, ProviderLocal, c.Embedding.Provider)
	}
	if c.Embedding.Provider == ProviderLocal && c.Embedding.LocalDimension <= 0 {
		add("embedding.localDimension must be > 0, got %d", c.Embedding.LocalDimension)
	}
	if c.OpenAI.Dimensions < 0 {
		add("openai.dimensions must be >= 0, got %d", c.OpenAI.Dimensions)
	}
	if c.OpenAI.ByAzure && c.OpenAI.BaseURL == "" {
		add("openai.baseURL is required when openai.byAzure is set")
	}

	if c.Matcher.Threshold < 0 || c.Matcher.Threshold > 1 {
		add("matcher.threshold must be in [0, 1], got %g", c.Matcher.Threshold)
	}
	if c.Matcher.MaxResults <= 0 {
		add("matcher.maxResults must be > 0, got %d", c.Matcher.MaxResults)
	}

	if c.HyDE.MaxTokens <= 0 {
		add("hyde.maxTokens must be > 0, got %d", c.HyDE.MaxTokens)
	}
	if c.HyDE.Temperature < 0 || c.HyDE.Temperature > 2 {
		add("hyde.temperature must be in [0, 2], got %g", c.HyDE.Temperature)
	}

	if c.Benchmark.Workers <= 0 {
		add("benchmark.workers must be > 0, got %d", c.Benchmark.Workers)
	}
	if c.Benchmark.CaseTimeoutSeconds <= 0 {
		add("benchmark.caseTimeoutSeconds must be > 0, got %d", c.Benchmark.CaseTimeoutSeconds)
	}

	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.Path == "" {
			add("storage.path is required for the sqlite backend")
		}
	case BackendMemory:
	default:
		add("storage.backend must be %q or %q, got %q", BackendSQLite, BackendMemory, c.Storage.Backend)
	}

	if c.Settings.TimeoutSeconds <= 0 {
		add("settings.timeoutSeconds must be > 0, got %d", c.Settings.TimeoutSeconds)
	}
	if _, err := zapcore.ParseLevel(c.Settings.LogLevel); err != nil {
		add("settings.logLevel: %v", err)
	}

	if len(problems) == 0 {
		return nil
	}
	return &InvalidConfigError{
		Message: strings.Join(problems, "\n"),
		Hint:    "Fix the listed fields or remove them to use defaults",
	}
}

// LogLevel returns the parsed log level, defaulting to info.
func (c *Config) LogLevel() zapcore.Level {
	level, err := zapcore.ParseLevel(c.Settings.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}
