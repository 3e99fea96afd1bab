package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/pable/go-subchurn/internal/embedding"
	"github.com/pable/go-subchurn/internal/keywords"
	"github.com/pable/go-subchurn/internal/model"
	"github.com/pable/go-subchurn/internal/preprocess"
)

// IndexParams configures NewIndex.
type IndexParams struct {
	Embedder embedding.Embedder
	Matcher  *keywords.Matcher // nil disables product scoring
	Logger   *slog.Logger
}

// Index holds an embedded corpus snapshot. Build replaces the snapshot;
// scoring must not run concurrently with Build.
type Index struct {
	embedder embedding.Embedder
	matcher  *keywords.Matcher
	logger   *slog.Logger

	built    bool
	segments []model.Segment
	counts   []int
	maxCount int
}

// NewIndex creates an empty index.
func NewIndex(p IndexParams) *Index {
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	return &Index{embedder: p.Embedder, matcher: p.Matcher, logger: p.Logger}
}

// Build embeds the segments and makes them the current corpus. Index handles
// are reassigned to slice positions.
func (x *Index) Build(ctx context.Context, segments []model.Segment) error {
	if x.embedder == nil {
		return fmt.Errorf("build index: no embedder configured")
	}
	segs := make([]model.Segment, len(segments))
	copy(segs, segments)

	texts := make([]string, len(segs))
	for i := range segs {
		segs[i].Index = i
		texts[i] = segs[i].ProcessedText
	}
	if len(segs) > 0 {
		vecs, err := x.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed corpus: %w", err)
		}
		if len(vecs) != len(segs) {
			return fmt.Errorf("embed corpus: got %d vectors for %d segments", len(vecs), len(segs))
		}
		for i := range segs {
			segs[i].Embedding = vecs[i]
		}
	}

	counts := make([]int, len(segs))
	maxCount := 0
	for i := range segs {
		counts[i] = x.matcher.Count(segs[i].ProcessedText)
		maxCount = max(maxCount, counts[i])
	}

	x.segments, x.counts, x.maxCount, x.built = segs, counts, maxCount, true
	x.logger.Info("index built", "segments", len(segs), "model", x.embedder.Model(), "max_keyword_count", maxCount)
	return nil
}

// Len returns the number of segments in the corpus.
func (x *Index) Len() int { return len(x.segments) }

// Segments returns the corpus in order. The slice must not be modified.
func (x *Index) Segments() []model.Segment { return x.segments }

// MaxKeywordCount returns the batch maximum used to normalise product scores.
func (x *Index) MaxKeywordCount() int { return x.maxCount }

func (x *Index) ready() error {
	if !x.built {
		return ErrNotInitialized
	}
	if len(x.segments) == 0 {
		return ErrEmptyCorpus
	}
	return nil
}

// Score scores every segment against query, in corpus order. The cleaned
// query is embedded; the direct score compares the query as typed against
// each segment's original text.
func (x *Index) Score(ctx context.Context, query string, w Weights) ([]model.ScoredSegment, error) {
	if err := x.ready(); err != nil {
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	q := preprocess.Clean(query)
	if strings.TrimSpace(q) == "" {
		return nil, ErrEmptyQuery
	}
	qv, err := x.embedder.Embed(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	out := make([]model.ScoredSegment, len(x.segments))
	for i, seg := range x.segments {
		sem := Cosine(qv, seg.Embedding)
		direct := DirectScore(query, seg.OriginalText)
		product := ProductScore(x.counts[i], x.maxCount)
		out[i] = model.ScoredSegment{
			Segment:             seg,
			SemanticSimilarity:  sem,
			DirectScore:         direct,
			ProductScore:        product,
			FinalSimilarity:     w.Final(sem, direct, product),
			ProductKeywordCount: x.counts[i],
		}
	}
	return out, nil
}

// Rank returns the top k segments by final score. Ties keep corpus order.
func (x *Index) Rank(ctx context.Context, query string, w Weights, k int) ([]model.ScoredSegment, error) {
	scored, err := x.Score(ctx, query, w)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return []model.ScoredSegment{}, nil
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].FinalSimilarity > scored[j].FinalSimilarity
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// WithContext ranks and attaches up to window neighbours on each side of every
// result.
func (x *Index) WithContext(ctx context.Context, query string, w Weights, k, window int) ([]model.ContextWindow, error) {
	ranked, err := x.Rank(ctx, query, w, k)
	if err != nil {
		return nil, err
	}
	window = max(window, 0)

	out := make([]model.ContextWindow, 0, len(ranked))
	for _, r := range ranked {
		i := r.Index
		if i < 0 || i >= len(x.segments) {
			x.logger.Warn("context lookup skipped", "index", i, "start", r.Start)
			continue
		}
		lo := max(0, i-window)
		hi := min(len(x.segments), i+window+1)
		out = append(out, model.ContextWindow{
			Main:   r,
			Before: append([]model.Segment(nil), x.segments[lo:i]...),
			After:  append([]model.Segment(nil), x.segments[i+1:hi]...),
		})
	}
	return out, nil
}

// BestSpan groups the segments around the best final score.
func (x *Index) BestSpan(ctx context.Context, query string, w Weights, threshold, maxGap float64) (model.Span, error) {
	scored, err := x.Score(ctx, query, w)
	if err != nil {
		return model.Span{}, err
	}
	sims := make([]float64, len(scored))
	for i, s := range scored {
		sims[i] = s.FinalSimilarity
	}
	return Group(x.segments, sims, threshold, maxGap)
}
