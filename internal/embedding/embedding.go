// Package embedding maps text to fixed-length vectors.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrEmptyInput is returned when asked to embed empty text.
	ErrEmptyInput = errors.New("embedding: input text is empty")
	// ErrDimensionMismatch is returned when a backend returns vectors of the wrong size.
	ErrDimensionMismatch = errors.New("embedding: dimension mismatch")
	// ErrUnknownBackend is returned by New for an unsupported backend name.
	ErrUnknownBackend = errors.New("embedding: unknown backend")
)

// Embedder is the boundary to an embedding model. Implementations must be
// deterministic for a fixed Model() and return vectors of a fixed size.
type Embedder interface {
	// Model identifies the model; vectors from different models are not comparable.
	Model() string
	// Embed returns the vector for one text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Backend names accepted by New.
const (
	BackendHash   = "hash"
	BackendOpenAI = "openai"
)

// Config selects and configures a backend.
type Config struct {
	Backend    string
	Model      string
	Dimensions int
	BatchSize  int
	CacheSize  int
	APIKey     string
	BaseURL    string
	Store      Store // optional persistent cache
	Logger     *slog.Logger
}

// New builds the configured backend wrapped in a Cached embedder.
func New(cfg Config) (*Cached, error) {
	var inner Embedder
	switch cfg.Backend {
	case BackendHash, "":
		inner = NewHash(cfg.Dimensions)
	case BackendOpenAI:
		c, err := NewOpenAI(cfg.APIKey, cfg.Model, cfg.Dimensions, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		inner = c
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}

	return NewCached(CachedParams{
		Inner:     inner,
		Store:     cfg.Store,
		CacheSize: cfg.CacheSize,
		BatchSize: cfg.BatchSize,
		Logger:    cfg.Logger,
	})
}
