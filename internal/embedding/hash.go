package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const defaultHashDimensions = 384

// Hash is an offline embedder. Each word token and each character bigram is
// hashed into one of dims buckets with a hashed sign, and the result is
// L2-normalised. Texts sharing vocabulary get a positive cosine; identical
// texts get identical vectors.
type Hash struct {
	dims int
}

var _ Embedder = (*Hash)(nil)

// NewHash returns a hash embedder. dims <= 0 selects 384.
func NewHash(dims int) *Hash {
	if dims <= 0 {
		dims = defaultHashDimensions
	}
	return &Hash{dims: dims}
}

// Model implements Embedder.
func (h *Hash) Model() string { return fmt.Sprintf("hash-%d", h.dims) }

// Dimensions returns the vector size.
func (h *Hash) Dimensions() int { return h.dims }

// Embed implements Embedder.
func (h *Hash) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	return h.vector(text), nil
}

// EmbedBatch implements Embedder.
func (h *Hash) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := h.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (h *Hash) vector(text string) []float32 {
	vec := make([]float64, h.dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h.add(vec, "w:"+w, 1.0)
		runes := []rune(w)
		for i := 0; i+1 < len(runes); i++ {
			h.add(vec, "b:"+string(runes[i:i+2]), 0.5)
		}
	}

	var norm float64
	for _, x := range vec {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	out := make([]float32, h.dims)
	if norm == 0 {
		return out
	}
	for i, x := range vec {
		out[i] = float32(x / norm)
	}
	return out
}

func (h *Hash) add(vec []float64, feature string, weight float64) {
	f := fnv.New64a()
	f.Write([]byte(feature))
	sum := f.Sum64()
	idx := int(sum % uint64(h.dims))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}
