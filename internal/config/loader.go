package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TOOL_PRESELECT"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	d := NewConfig()
	v.SetDefault("openai.apiKey", d.OpenAI.APIKey)
	v.SetDefault("openai.apiKeyEnvVar", d.OpenAI.APIKeyEnvVar)
	v.SetDefault("openai.baseURL", d.OpenAI.BaseURL)
	v.SetDefault("openai.byAzure", d.OpenAI.ByAzure)
	v.SetDefault("openai.apiVersion", d.OpenAI.APIVersion)
	v.SetDefault("openai.chatModel", d.OpenAI.ChatModel)
	v.SetDefault("openai.embeddingModel", d.OpenAI.EmbeddingModel)
	v.SetDefault("openai.dimensions", d.OpenAI.Dimensions)
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.localDimension", d.Embedding.LocalDimension)
	v.SetDefault("matcher.threshold", d.Matcher.Threshold)
	v.SetDefault("matcher.maxResults", d.Matcher.MaxResults)
	v.SetDefault("hyde.maxTokens", d.HyDE.MaxTokens)
	v.SetDefault("hyde.temperature", d.HyDE.Temperature)
	v.SetDefault("benchmark.workers", d.Benchmark.Workers)
	v.SetDefault("benchmark.caseTimeoutSeconds", d.Benchmark.CaseTimeoutSeconds)
	v.SetDefault("benchmark.casesFile", d.Benchmark.CasesFile)
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.embeddingCachePath", d.Storage.EmbeddingCachePath)
	v.SetDefault("settings.timeoutSeconds", d.Settings.TimeoutSeconds)
	v.SetDefault("settings.logLevel", d.Settings.LogLevel)
	v.SetDefault("settings.metricsAddr", d.Settings.MetricsAddr)
}

// Load reads the configuration from path, or from the default path when path is empty.
// A missing file at the default path is not an error: defaults and environment apply.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFrom(path)
	}

	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return nil, err
	}

	cfg, err := LoadFrom(defaultPath)
	var notFound *ConfigNotFoundError
	if errors.As(err, &notFound) {
		return decode(newViper(), "")
	}
	return cfg, err
}

// LoadFrom reads config from a specific path with enhanced error handling.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &ConfigNotFoundError{
				Path: path,
				Hint: "Run 'tool-preselect init' to create configuration",
			}
		}
		return nil, fmt.Errorf("failed to access config: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, &PermissionError{
				Path:    path,
				Op:      "read",
				Fix:     getReadPermissionFix(path),
				Details: getPermissionDetails(path),
			}
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, &InvalidConfigError{
			Path:    path,
			Message: fmt.Sprintf("JSON parse error: %v", err),
			Hint:    "Restore from .bak file if available",
		}
	}

	return decode(v, path)
}

func decode(v *viper.Viper, path string) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &InvalidConfigError{
			Path:    path,
			Message: fmt.Sprintf("decode error: %v", err),
			Hint:    "Check field types against 'tool-preselect init' output",
		}
	}

	if err := cfg.Validate(); err != nil {
		var invalid *InvalidConfigError
		if errors.As(err, &invalid) {
			invalid.Path = path
		}
		return nil, err
	}

	return &cfg, nil
}

// LoadDotEnv loads variables from .env files (default ".env") without
// overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// getReadPermissionFix returns platform-specific fix command
func getReadPermissionFix(path string) string {
	switch runtime.GOOS {
	case "windows":
		return fmt.Sprintf("Right-click %s → Properties → Security → Edit permissions", path)
	default:
		return fmt.Sprintf("Run: chmod 644 %s", path)
	}
}

// getPermissionDetails reports the current file mode
func getPermissionDetails(path string) string {
	if runtime.GOOS == "windows" {
		return ""
	}

	info, err := os.Stat(path)
	if err != nil {
		return ""
	}

	return fmt.Sprintf("Current permissions: %04o", info.Mode().Perm())
}
