/*
Package catalog owns the set of registered tools and answers similarity searches.

Only descriptions are embedded, at two call sites: Register and Search. The
embedding model and the vector backend are injected, so either can be swapped
without touching the catalog structure.

A Catalog is constructed once at startup, filled with Register/RegisterAll, and
then read concurrently. Registration is expected to happen before searches.
*/
package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khanglvm/tool-preselect/internal/embedding"
	"github.com/khanglvm/tool-preselect/internal/metrics"
	"github.com/khanglvm/tool-preselect/internal/toolset"
)

// DefaultTopK is the number of hits returned when a search does not specify one.
const DefaultTopK = 5

// Catalog registers tools and searches them by description similarity.
type Catalog struct {
	embedder  embedding.Embedder
	store     VectorStore
	logger    *zap.Logger
	metrics   metrics.Metrics
	model     string
	dimension atomic.Int64
	seeded    atomic.Bool
	timeout   time.Duration
	now       func() time.Time
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithDimension fixes the expected embedding length. Zero (the default) adopts
// the length of the stored records, or of the first vector when the store is empty.
func WithDimension(n int) Option {
	return func(c *Catalog) { c.dimension.Store(int64(n)) }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.Metrics) Option {
	return func(c *Catalog) { c.metrics = metrics.OrNop(m) }
}

// WithModel overrides the model name stamped on records.
func WithModel(name string) Option {
	return func(c *Catalog) { c.model = name }
}

// WithTimeout bounds every embedding and store call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Catalog) { c.timeout = d }
}

// New creates a catalog over embedder and store.
func New(embedder embedding.Embedder, store VectorStore, opts ...Option) *Catalog {
	c := &Catalog{
		embedder: embedder,
		store:    store,
		logger:   zap.NewNop(),
		metrics:  metrics.Nop{},
		model:    embedder.Model(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("catalog")
	return c
}

// Register embeds description and stores a new record under a fresh ID.
// Registering the same (group, name) twice yields two records.
func (c *Catalog) Register(ctx context.Context, name, group, description string) (ToolRecord, error) {
	vector, err := c.embed(ctx, description)
	if err != nil {
		return ToolRecord{}, fmt.Errorf("register %s/%s: %w", group, name, err)
	}

	record := ToolRecord{
		ID:          uuid.NewString(),
		Name:        name,
		Group:       group,
		Description: description,
		Embedding:   vector,
		Model:       c.model,
		CreatedAt:   c.now().UTC(),
	}

	callCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err = c.store.Upsert(callCtx, record)
	c.metrics.ObserveStore("upsert", time.Since(start), err)
	if err != nil {
		return ToolRecord{}, fmt.Errorf("register %s/%s: %w", group, name, classify(ErrStorageUnavailable, err))
	}

	c.logger.Debug("registered tool",
		zap.String("id", record.ID),
		zap.String("tool", record.Key()),
		zap.Int("dimension", len(vector)),
	)
	return record, nil
}

// RegisterAll registers every definition in order and stops at the first failure.
// It returns how many were registered.
func (c *Catalog) RegisterAll(ctx context.Context, defs []toolset.Definition) (int, error) {
	for i, def := range defs {
		if _, err := c.Register(ctx, def.Name, def.Group, def.Description); err != nil {
			return i, err
		}
	}
	c.logger.Info("catalog registered", zap.Int("tools", len(defs)))
	return len(defs), nil
}

// Search returns up to topK records nearest to query, best first.
// A blank query or an empty catalog yields an empty result.
func (c *Catalog) Search(ctx context.Context, query string, topK int) ([]SearchHit, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if strings.TrimSpace(query) == "" {
		return []SearchHit{}, nil
	}

	count, err := c.Len(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return []SearchHit{}, nil
	}

	vector, err := c.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	neighbors, err := c.store.NearestNeighbors(callCtx, vector, topK)
	c.metrics.ObserveStore("search", time.Since(start), err)
	if err != nil {
		return nil, classify(ErrStorageUnavailable, err)
	}

	hits := make([]SearchHit, 0, len(neighbors))
	for _, n := range neighbors {
		record, ok, err := c.store.Get(callCtx, n.ID)
		if err != nil {
			return nil, classify(ErrStorageUnavailable, err)
		}
		if !ok {
			c.logger.Warn("neighbor without record", zap.String("id", n.ID))
			continue
		}
		hits = append(hits, SearchHit{Record: record, Score: n.Score})
	}
	return hits, nil
}

// Len returns the number of registered records.
func (c *Catalog) Len(ctx context.Context) (int, error) {
	callCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	count, err := c.store.Count(callCtx)
	if err != nil {
		return 0, classify(ErrStorageUnavailable, err)
	}
	return count, nil
}

// Records returns every registered record.
func (c *Catalog) Records(ctx context.Context) ([]ToolRecord, error) {
	callCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	records, err := c.store.All(callCtx)
	if err != nil {
		return nil, classify(ErrStorageUnavailable, err)
	}
	return records, nil
}

// Dimension returns the expected embedding length, or 0 before the first vector.
func (c *Catalog) Dimension() int {
	return int(c.dimension.Load())
}

// Model returns the embedding model name stamped on records.
func (c *Catalog) Model() string {
	return c.model
}

func (c *Catalog) embed(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	vector, err := c.embedder.Embed(callCtx, text)
	c.metrics.ObserveEmbed(c.model, time.Since(start), err)
	if err != nil {
		return nil, classify(ErrEmbeddingUnavailable, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrEmbeddingUnavailable)
	}

	if c.dimension.Load() == 0 {
		if err := c.seedDimension(ctx); err != nil {
			return nil, err
		}
	}
	c.dimension.CompareAndSwap(0, int64(len(vector)))
	if want := c.dimension.Load(); int64(len(vector)) != want {
		return nil, fmt.Errorf("%w: got %d dimensions, catalog expects %d",
			ErrEmbeddingUnavailable, len(vector), want)
	}
	return vector, nil
}

// seedDimension adopts the length of the first stored record, once.
func (c *Catalog) seedDimension(ctx context.Context) error {
	if c.seeded.Load() {
		return nil
	}

	records, err := c.Records(ctx)
	if err != nil {
		return err
	}
	for _, r := range records {
		if len(r.Embedding) > 0 {
			c.dimension.CompareAndSwap(0, int64(len(r.Embedding)))
			break
		}
	}
	c.seeded.Store(true)
	return nil
}

func (c *Catalog) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
