// Package search ranks transcript segments against a query.
package search

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

var (
	// ErrNotInitialized is returned when ranking before Build.
	ErrNotInitialized = errors.New("search: index not built")
	// ErrEmptyCorpus is returned when ranking or grouping over zero segments.
	ErrEmptyCorpus = errors.New("search: corpus is empty")
	// ErrInvalidWeight is returned for non-numeric, negative or non-finite weights.
	ErrInvalidWeight = errors.New("search: invalid weight")
	// ErrEmptyQuery is returned for a blank query.
	ErrEmptyQuery = errors.New("search: query is empty")
	// ErrLengthMismatch is returned when similarities and segments differ in length.
	ErrLengthMismatch = errors.New("search: similarities and segments differ in length")
)

const (
	fuzzyThreshold = 0.6
	fuzzyScale     = 0.8
	spacelessScore = 0.9
)

// Cosine returns the cosine similarity of a and b, or 0 when either is a zero
// vector or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// DirectScore scores literal containment of query in text:
// 1.0 for a case-insensitive substring, 0.9 if it only matches once all
// whitespace is removed, 0.8*ratio when the fuzzy ratio exceeds 0.6, else 0.
func DirectScore(query, text string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	t := strings.ToLower(text)
	if q == "" {
		return 0
	}
	if strings.Contains(t, q) {
		return 1.0
	}
	if strings.Contains(stripSpace(t), stripSpace(q)) {
		return spacelessScore
	}
	if r := ratio(q, t); r > fuzzyThreshold {
		return r * fuzzyScale
	}
	return 0
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// ratio is difflib's SequenceMatcher ratio computed over runes.
func ratio(a, b string) float64 {
	return difflib.NewMatcher(runeStrings(a), runeStrings(b)).Ratio()
}

func runeStrings(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// ProductScore normalises a keyword count against the corpus maximum.
func ProductScore(count, maxCount int) float64 {
	return float64(count) / float64(max(maxCount, 1))
}

// Weights blends the three per-segment scores. They need not sum to 1.
type Weights struct {
	Semantic float64
	Direct   float64
	Product  float64
}

// DefaultWeights favours direct matches slightly over semantic and product.
func DefaultWeights() Weights { return Weights{Semantic: 0.3, Direct: 0.4, Product: 0.3} }

// SemanticOnly ranks by cosine similarity alone.
func SemanticOnly() Weights { return Weights{Semantic: 1} }

// ProductBlend returns (1-p)*semantic + p*product.
func ProductBlend(p float64) Weights { return Weights{Semantic: 1 - p, Product: p} }

// Validate rejects negative, NaN and infinite weights.
func (w Weights) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"semantic", w.Semantic}, {"direct", w.Direct}, {"product", w.Product}} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidWeight, f.name, f.v)
		}
	}
	return nil
}

// Normalized rescales the weights to sum to 1. All-zero weights become
// SemanticOnly.
func (w Weights) Normalized() Weights {
	sum := w.Semantic + w.Direct + w.Product
	if sum <= 0 {
		return SemanticOnly()
	}
	return Weights{Semantic: w.Semantic / sum, Direct: w.Direct / sum, Product: w.Product / sum}
}

// Final returns the weighted sum. No clamping is applied.
func (w Weights) Final(semantic, direct, product float64) float64 {
	return w.Semantic*semantic + w.Direct*direct + w.Product*product
}

// String formats the weights as semantic/direct/product.
func (w Weights) String() string {
	return fmt.Sprintf("semantic=%.2f direct=%.2f product=%.2f", w.Semantic, w.Direct, w.Product)
}

// ParseWeight parses one user-supplied weight.
func ParseWeight(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeight, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeight, s)
	}
	return v, nil
}
