package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/khanglvm/tool-preselect/internal/catalog"
	"github.com/khanglvm/tool-preselect/internal/config"
	"github.com/khanglvm/tool-preselect/internal/embedding"
	"github.com/khanglvm/tool-preselect/internal/history"
	"github.com/khanglvm/tool-preselect/internal/hyde"
	"github.com/khanglvm/tool-preselect/internal/invoke"
	"github.com/khanglvm/tool-preselect/internal/metrics"
	"github.com/khanglvm/tool-preselect/internal/search"
	"github.com/khanglvm/tool-preselect/internal/selector"
	"github.com/khanglvm/tool-preselect/internal/storage"
	"github.com/khanglvm/tool-preselect/internal/toolset"
)

// appNeeds lists the optional components a command uses.
type appNeeds struct {
	// rewriter builds the HyDE rewriter; requireRewriter fails when it cannot be built.
	rewriter        bool
	requireRewriter bool

	// history starts the search history recorder.
	history bool

	// metrics registers Prometheus collectors.
	metrics bool

	// autoIndex registers the toolset when the catalog is empty.
	autoIndex bool
}

// App is the set of wired components a command runs against.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  metrics.Metrics
	Registry *prometheus.Registry

	Embedder embedding.Embedder
	DB       *storage.SQLiteStorage
	Catalog  *catalog.Catalog
	Matcher  *search.Matcher
	Rewriter *hyde.Rewriter
	Invoker  *invoke.Invoker
	Recorder *history.Recorder
	Selector *selector.Selector

	closers []func() error
}

// NewApp loads configuration and wires the components named in needs.
func NewApp(ctx context.Context, opts *GlobalOptions, needs appNeeds) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg, opts.LogLevel)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.Nop{},
		Matcher: search.NewMatcher(
			search.WithThreshold(cfg.Matcher.Threshold),
			search.WithMaxResults(cfg.Matcher.MaxResults),
		),
	}
	app.closers = append(app.closers, func() error {
		_ = logger.Sync()
		return nil
	})

	if needs.metrics {
		app.Registry = prometheus.NewRegistry()
		app.Metrics = metrics.NewPrometheus(app.Registry)
	}

	if err := app.initEmbedder(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.initCatalog(); err != nil {
		app.Close()
		return nil, err
	}
	if needs.autoIndex {
		if err := app.ensureIndexed(ctx, opts.ToolsFile); err != nil {
			app.Close()
			return nil, err
		}
	}
	if needs.rewriter {
		if err := app.initRewriter(ctx); err != nil {
			if needs.requireRewriter {
				app.Close()
				return nil, err
			}
			logger.Warn("HyDE rewriting disabled", zap.Error(err))
		}
	}
	if needs.history && app.DB != nil {
		app.Recorder = history.NewRecorder(app.DB, logger)
		if opts.NoHistory {
			app.Recorder.Disable()
		}
		app.closers = append(app.closers, func() error {
			logger.Debug("stopping history recorder", zap.Int("pending", app.Recorder.QueueSize()))
			app.Recorder.Stop()
			return nil
		})
	}

	selectorOpts := []selector.Option{
		selector.WithLogger(logger),
		selector.WithMetrics(app.Metrics),
	}
	if app.Rewriter != nil {
		selectorOpts = append(selectorOpts, selector.WithRewriter(app.Rewriter))
	}
	if app.Recorder != nil {
		selectorOpts = append(selectorOpts, selector.WithRecorder(app.Recorder))
	}
	app.Selector = selector.New(app.Catalog, app.Matcher, selectorOpts...)

	return app, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// ChatModelName returns the configured chat model, or "" when HyDE is disabled.
func (a *App) ChatModelName() string {
	if a.Rewriter == nil {
		return ""
	}
	return a.Config.OpenAI.ChatModel
}

func newLogger(cfg *config.Config, override string) (*zap.Logger, error) {
	level := cfg.LogLevel()
	if override != "" {
		parsed, err := zapcore.ParseLevel(override)
		if err != nil {
			return nil, fmt.Errorf("invalid --log-level: %w", err)
		}
		level = parsed
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.Encoding = "console"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	// stdout carries reports and MCP traffic
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}
	return zapCfg.Build()
}

func (a *App) modelConfig() hyde.ModelConfig {
	o := a.Config.OpenAI
	return hyde.ModelConfig{
		APIKey:       o.APIKey,
		APIKeyEnvVar: o.APIKeyEnvVar,
		BaseURL:      o.BaseURL,
		ByAzure:      o.ByAzure,
		APIVersion:   o.APIVersion,
		Model:        o.ChatModel,
	}
}

func (a *App) initEmbedder(ctx context.Context) error {
	cfg := a.Config
	if cfg.Embedding.Provider == config.ProviderLocal {
		a.Embedder = embedding.NewHashingEmbedder(cfg.Embedding.LocalDimension)
		return nil
	}

	apiKey, err := a.modelConfig().ResolveAPIKey()
	if err != nil {
		return fmt.Errorf("%w (or set embedding.provider to %q for offline use)", err, config.ProviderLocal)
	}

	openAI, err := embedding.NewOpenAIEmbedder(ctx, embedding.OpenAIConfig{
		APIKey:     apiKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		ByAzure:    cfg.OpenAI.ByAzure,
		APIVersion: cfg.OpenAI.APIVersion,
		Model:      cfg.OpenAI.EmbeddingModel,
		Dimensions: cfg.OpenAI.Dimensions,
	})
	if err != nil {
		return err
	}
	a.Embedder = openAI

	if cfg.Storage.EmbeddingCachePath == "" {
		return nil
	}
	path, err := config.ExpandPath(cfg.Storage.EmbeddingCachePath)
	if err != nil {
		return err
	}
	cached, err := embedding.OpenCache(path, openAI, a.Logger)
	if err != nil {
		a.Logger.Warn("embedding cache disabled", zap.Error(err))
		return nil
	}
	a.Embedder = cached
	a.closers = append(a.closers, func() error {
		hits, misses := cached.Stats()
		a.Logger.Debug("embedding cache", zap.Int("hits", hits), zap.Int("misses", misses))
		return cached.Close()
	})
	return nil
}

func (a *App) initCatalog() error {
	cfg := a.Config
	opts := []catalog.Option{
		catalog.WithLogger(a.Logger),
		catalog.WithMetrics(a.Metrics),
		catalog.WithTimeout(cfg.Timeout()),
	}

	if cfg.Storage.Backend == config.BackendMemory {
		a.Catalog = catalog.New(a.Embedder, catalog.NewMemoryStore(), opts...)
		return nil
	}

	path, err := config.ExpandPath(cfg.Storage.Path)
	if err != nil {
		return err
	}
	db := storage.NewStorage(path, a.Logger)
	if err := db.Init(); err != nil {
		return err
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)
	a.Catalog = catalog.New(a.Embedder, db, opts...)
	return nil
}

func (a *App) initRewriter(ctx context.Context) error {
	chat, err := hyde.NewOpenAIChatModel(ctx, a.modelConfig())
	if err != nil {
		return fmt.Errorf("%w: %w", hyde.ErrGenerationUnavailable, err)
	}
	generator := hyde.NewChatGenerator(chat, a.Config.OpenAI.ChatModel, a.Metrics)
	a.Rewriter = hyde.NewRewriter(generator,
		hyde.WithMaxTokens(a.Config.HyDE.MaxTokens),
		hyde.WithTemperature(float32(a.Config.HyDE.Temperature)),
		hyde.WithTimeout(a.Config.Timeout()),
	)
	a.Invoker = invoke.New(chat, a.Config.OpenAI.ChatModel,
		invoke.WithLogger(a.Logger),
		invoke.WithMetrics(a.Metrics),
		invoke.WithTimeout(a.Config.Timeout()),
	)
	return nil
}

// toolInvoker returns the invoker, or nil when no chat model is configured.
func (a *App) toolInvoker() toolInvoker {
	if a.Invoker == nil {
		return nil
	}
	return a.Invoker
}

// loadDefinitions returns the tools from path, or the built-in toolset when path is empty.
func loadDefinitions(path string) ([]toolset.Definition, error) {
	if path == "" {
		return toolset.Builtin(), nil
	}
	return toolset.LoadFile(path)
}

// ensureIndexed registers the toolset when the catalog is empty and warns when
// the stored vectors come from another embedding model.
func (a *App) ensureIndexed(ctx context.Context, toolsFile string) error {
	records, err := a.Catalog.Records(ctx)
	if err != nil {
		return err
	}

	if len(records) > 0 {
		if model := records[0].Model; model != a.Catalog.Model() {
			a.Logger.Warn("catalog was indexed with a different embedding model, run 'tool-preselect index --reset'",
				zap.String("indexed", model),
				zap.String("current", a.Catalog.Model()),
			)
		}
		return nil
	}

	defs, err := loadDefinitions(toolsFile)
	if err != nil {
		return err
	}
	n, err := a.Catalog.RegisterAll(ctx, defs)
	if err != nil {
		return fmt.Errorf("index toolset: %w", err)
	}
	a.Logger.Info("indexed toolset", zap.Int("tools", n), zap.String("model", a.Catalog.Model()))
	return nil
}
