package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheSize = 256
	defaultBatchSize = 256
)

// Store persists vectors keyed by model and text hash.
type Store interface {
	GetEmbeddings(model string, hashes []string) (map[string][]float32, error)
	PutEmbeddings(model string, vecs map[string][]float32) error
}

// CachedParams configures NewCached.
type CachedParams struct {
	Inner     Embedder
	Store     Store // may be nil
	CacheSize int
	BatchSize int
	Logger    *slog.Logger
}

// Cached wraps an Embedder with an in-memory LRU for single queries and an
// optional persistent store for batches.
type Cached struct {
	inner     Embedder
	store     Store
	cache     *lru.Cache[string, []float32]
	group     singleflight.Group
	batchSize int
	logger    *slog.Logger
}

var _ Embedder = (*Cached)(nil)

// NewCached creates a caching embedder.
func NewCached(p CachedParams) (*Cached, error) {
	if p.Inner == nil {
		return nil, fmt.Errorf("embedding: inner embedder is required")
	}
	if p.CacheSize <= 0 {
		p.CacheSize = defaultCacheSize
	}
	if p.BatchSize <= 0 {
		p.BatchSize = defaultBatchSize
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	cache, err := lru.New[string, []float32](p.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create query cache: %w", err)
	}
	return &Cached{
		inner:     p.Inner,
		store:     p.Store,
		cache:     cache,
		batchSize: p.BatchSize,
		logger:    p.Logger,
	}, nil
}

// TextHash returns the key under which a text's vector is cached.
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Model implements Embedder.
func (c *Cached) Model() string { return c.inner.Model() }

// Embed implements Embedder. Concurrent calls for the same text share one
// backend request.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := TextHash(text)
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.cache.Get(key); ok {
			return v, nil
		}
		vec, err := c.inner.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, vec)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// EmbedBatch implements Embedder. Vectors already in the store are reused;
// misses are embedded in chunks of BatchSize and written back.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	model := c.inner.Model()
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = TextHash(t)
	}

	found := map[string][]float32{}
	if c.store != nil {
		got, err := c.store.GetEmbeddings(model, keys)
		if err != nil {
			c.logger.Warn("embedding store read failed", "model", model, "error", err)
		} else {
			found = got
		}
	}

	var missIdx []int
	seen := map[string]bool{}
	for i, k := range keys {
		if _, ok := found[k]; ok || seen[k] {
			continue
		}
		seen[k] = true
		missIdx = append(missIdx, i)
	}
	c.logger.Debug("embedding batch", "model", model, "texts", len(texts), "cached", len(texts)-len(missIdx))

	fresh := make(map[string][]float32, len(missIdx))
	for start := 0; start < len(missIdx); start += c.batchSize {
		end := min(start+c.batchSize, len(missIdx))
		chunk := make([]string, 0, end-start)
		for _, i := range missIdx[start:end] {
			chunk = append(chunk, texts[i])
		}
		vecs, err := c.inner.EmbedBatch(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("embed batch at %d: %w", start, err)
		}
		if len(vecs) != len(chunk) {
			return nil, fmt.Errorf("embed batch at %d: got %d vectors, want %d", start, len(vecs), len(chunk))
		}
		for j, i := range missIdx[start:end] {
			fresh[keys[i]] = vecs[j]
			found[keys[i]] = vecs[j]
		}
	}

	if c.store != nil && len(fresh) > 0 {
		if err := c.store.PutEmbeddings(model, fresh); err != nil {
			c.logger.Warn("embedding store write failed", "model", model, "error", err)
		}
	}

	out := make([][]float32, len(texts))
	for i, k := range keys {
		out[i] = found[k]
	}
	return out, nil
}
