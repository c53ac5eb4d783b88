package embedding

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var cacheBucket = []byte("embeddings")

// cachedVector is the CBOR value stored per key.
type cachedVector struct {
	Model     string    `cbor:"1,keyasint"`
	Vector    []float32 `cbor:"2,keyasint"`
	CreatedAt int64     `cbor:"3,keyasint"`
}

// CachedEmbedder memoizes an Embedder in a bbolt file keyed by BLAKE3(model, text).
// Registering the same catalog on every start then costs no embedding calls.
// Cache read/write failures are logged and bypassed; they never fail Embed.
type CachedEmbedder struct {
	next   Embedder
	db     *bolt.DB
	logger *zap.Logger

	mu     sync.Mutex
	hits   int
	misses int
}

// OpenCache opens (or creates) the cache file at path in front of next.
func OpenCache(path string, next Embedder, logger *zap.Logger) (*CachedEmbedder, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("embedding cache path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache dir: %w", err)
	}

	db, err := bolt.Open(trimmed, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cacheBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init embedding cache: %w", err)
	}

	return &CachedEmbedder{next: next, db: db, logger: logger.Named("embedcache")}, nil
}

// Embed returns the cached vector for text or computes and stores it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	if vector, ok := c.lookup(key); ok {
		c.count(true)
		return vector, nil
	}
	c.count(false)

	vector, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.store(key, vector)
	return vector, nil
}

// Model delegates to the wrapped embedder.
func (c *CachedEmbedder) Model() string {
	return c.next.Model()
}

// Stats returns cache hit and miss counts since open.
func (c *CachedEmbedder) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Close closes the cache file.
func (c *CachedEmbedder) Close() error {
	return c.db.Close()
}

func (c *CachedEmbedder) key(text string) []byte {
	h := blake3.New()
	_, _ = h.Write([]byte(c.next.Model()))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(text))
	return h.Sum(nil)
}

func (c *CachedEmbedder) lookup(key []byte) ([]float32, bool) {
	var entry cachedVector
	found := false

	err := c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(cacheBucket).Get(key)
		if raw == nil {
			return nil
		}
		// raw is only valid inside the transaction; Unmarshal copies.
		if err := cbor.Unmarshal(raw, &entry); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		c.logger.Warn("embedding cache read failed", zap.Error(err))
		return nil, false
	}
	if !found || entry.Model != c.next.Model() || len(entry.Vector) == 0 {
		return nil, false
	}
	return entry.Vector, true
}

func (c *CachedEmbedder) store(key []byte, vector []float32) {
	raw, err := cbor.Marshal(cachedVector{
		Model:     c.next.Model(),
		Vector:    vector,
		CreatedAt: time.Now().Unix(),
	})
	if err != nil {
		c.logger.Warn("embedding cache encode failed", zap.Error(err))
		return
	}
	if err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cacheBucket).Put(key, raw)
	}); err != nil {
		c.logger.Warn("embedding cache write failed", zap.Error(err))
	}
}

func (c *CachedEmbedder) count(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

var _ Embedder = (*CachedEmbedder)(nil)
