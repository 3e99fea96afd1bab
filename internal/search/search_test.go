package search

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-subchurn/internal/embedding"
	"github.com/pable/go-subchurn/internal/keywords"
	"github.com/pable/go-subchurn/internal/model"
)

func seg(text string, start, dur float64) model.Segment {
	return model.Segment{OriginalText: text, ProcessedText: text, Start: start, Duration: dur}
}

func buildIndex(t *testing.T, m *keywords.Matcher, segs ...model.Segment) *Index {
	t.Helper()
	x := NewIndex(IndexParams{Embedder: embedding.NewHash(128), Matcher: m})
	require.NoError(t, x.Build(context.Background(), segs))
	return x
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 1}))
}

func TestDirectScoreLadder(t *testing.T) {
	assert.Equal(t, 1.0, DirectScore("Stroller", "buy a stroller"))
	assert.Equal(t, 0.9, DirectScore("buy astroller", "buy a stroller"))
	assert.InDelta(t, 12.0/14.0*0.8, DirectScore("strolr", "stroller"), 1e-9)
	assert.Equal(t, 0.0, DirectScore("xyz", "stroller"))
	assert.Equal(t, 0.0, DirectScore("  ", "stroller"))
}

func TestDirectScoreSubstringAlwaysOne(t *testing.T) {
	texts := []string{"유모차 추천 영상입니다", "The TV is on", "a b c"}
	for _, text := range texts {
		runes := []rune(text)
		for i := 0; i < len(runes); i++ {
			for j := i + 1; j <= len(runes); j++ {
				q := string(runes[i:j])
				if q == " " {
					continue
				}
				assert.Equal(t, 1.0, DirectScore(q, text), "query %q in %q", q, text)
			}
		}
	}
}

func TestProductScore(t *testing.T) {
	assert.Equal(t, 0.0, ProductScore(0, 0))
	assert.Equal(t, 1.0, ProductScore(1, 0))
	assert.Equal(t, 0.5, ProductScore(2, 4))
	assert.Equal(t, 1.0, ProductScore(4, 4))
}

func TestWeights(t *testing.T) {
	w := DefaultWeights()
	require.NoError(t, w.Validate())
	assert.InDelta(t, 0.3*0.5+0.4*1+0.3*0.2, w.Final(0.5, 1, 0.2), 1e-9)

	unbounded := Weights{Semantic: 1, Direct: 1, Product: 1}
	assert.InDelta(t, 3.0, unbounded.Final(1, 1, 1), 1e-9, "no clamping")
	n := unbounded.Normalized()
	assert.InDelta(t, 1.0, n.Final(1, 1, 1), 1e-9)
	assert.Equal(t, SemanticOnly(), Weights{}.Normalized())

	assert.Equal(t, Weights{Semantic: 0.7, Product: 0.3}, ProductBlend(0.3))

	assert.ErrorIs(t, Weights{Semantic: -1}.Validate(), ErrInvalidWeight)
	assert.ErrorIs(t, Weights{Direct: math.NaN()}.Validate(), ErrInvalidWeight)
	assert.ErrorIs(t, Weights{Product: math.Inf(1)}.Validate(), ErrInvalidWeight)
}

func TestParseWeight(t *testing.T) {
	v, err := ParseWeight(" 0.25 ")
	require.NoError(t, err)
	assert.Equal(t, 0.25, v)

	for _, in := range []string{"abc", "", "-1", "NaN", "inf"} {
		_, err := ParseWeight(in)
		assert.ErrorIs(t, err, ErrInvalidWeight, in)
	}
}

func TestIndex_NotInitializedAndEmpty(t *testing.T) {
	ctx := context.Background()
	x := NewIndex(IndexParams{Embedder: embedding.NewHash(16)})
	_, err := x.Rank(ctx, "q", DefaultWeights(), 3)
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, x.Build(ctx, nil))
	_, err = x.Rank(ctx, "q", DefaultWeights(), 3)
	assert.ErrorIs(t, err, ErrEmptyCorpus)
}

func TestIndex_RankStrollerExample(t *testing.T) {
	x := buildIndex(t, nil,
		seg("buy a stroller", 0, 2),
		seg("nice weather today", 2, 2),
	)
	got, err := x.Rank(context.Background(), "stroller", DefaultWeights(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, 1.0, got[0].DirectScore)
	assert.Equal(t, "buy a stroller", got[0].OriginalText)
}

func TestIndex_DirectScoreKeepsQuerySymbols(t *testing.T) {
	x := buildIndex(t, nil,
		model.Segment{OriginalText: "cat food", ProcessedText: "cat food", Start: 0, Duration: 1},
		model.Segment{OriginalText: "dog", ProcessedText: "dog", Start: 1, Duration: 1},
		model.Segment{OriginalText: "I write C++ daily", ProcessedText: "i write c daily", Start: 2, Duration: 1},
	)
	scored, err := x.Score(context.Background(), "c++", SemanticOnly())
	require.NoError(t, err)
	require.Len(t, scored, 3)
	assert.Equal(t, 0.0, scored[0].DirectScore, "c++ is not a substring of %q", scored[0].OriginalText)
	assert.Equal(t, 0.0, scored[1].DirectScore)
	assert.Equal(t, 1.0, scored[2].DirectScore)

	x = buildIndex(t, nil, seg("top 10 strollers", 0, 1), seg("#1 stroller", 1, 1))
	scored, err = x.Score(context.Background(), "#1", SemanticOnly())
	require.NoError(t, err)
	assert.Less(t, scored[0].DirectScore, 1.0)
	assert.Equal(t, 1.0, scored[1].DirectScore)
}

func TestIndex_RankSortedAndTruncated(t *testing.T) {
	x := buildIndex(t, nil,
		seg("alpha", 0, 1),
		seg("beta gamma", 1, 1),
		seg("alpha beta", 2, 1),
		seg("delta", 3, 1),
		seg("alpha", 4, 1),
	)
	ctx := context.Background()
	for k := 0; k <= 6; k++ {
		got, err := x.Rank(ctx, "alpha", DefaultWeights(), k)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(got), k)
		for i := 1; i < len(got); i++ {
			assert.GreaterOrEqual(t, got[i-1].FinalSimilarity, got[i].FinalSimilarity)
		}
	}

	got, err := x.Rank(ctx, "alpha", DefaultWeights(), 2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4}, []int{got[0].Index, got[1].Index}, "ties keep corpus order")
}

func TestIndex_RankRejectsBadInput(t *testing.T) {
	x := buildIndex(t, nil, seg("alpha", 0, 1))
	ctx := context.Background()
	_, err := x.Rank(ctx, "  ★ ", DefaultWeights(), 1)
	assert.ErrorIs(t, err, ErrEmptyQuery)
	_, err = x.Rank(ctx, "alpha", Weights{Semantic: -1}, 1)
	assert.ErrorIs(t, err, ErrInvalidWeight)
}

func TestIndex_ProductScoresNormalisedPerBatch(t *testing.T) {
	m, err := keywords.NewMatcher(keywords.Dictionary{Terms: []string{"stroller", "crib"}})
	require.NoError(t, err)
	x := buildIndex(t, m,
		seg("a stroller and a crib", 0, 1),
		seg("just a stroller", 1, 1),
		seg("nothing here", 2, 1),
	)
	assert.Equal(t, 2, x.MaxKeywordCount())

	scored, err := x.Score(context.Background(), "anything", ProductBlend(1))
	require.NoError(t, err)
	ones := 0
	for _, s := range scored {
		assert.GreaterOrEqual(t, s.ProductScore, 0.0)
		assert.LessOrEqual(t, s.ProductScore, 1.0)
		if s.ProductScore == 1.0 {
			ones++
		}
	}
	assert.Equal(t, 1, ones)
	assert.Equal(t, 0.5, scored[1].ProductScore)

	// Rebuilding recomputes the maximum.
	require.NoError(t, x.Build(context.Background(), []model.Segment{seg("just a stroller", 0, 1)}))
	assert.Equal(t, 1, x.MaxKeywordCount())
}

func TestIndex_WithContext(t *testing.T) {
	x := buildIndex(t, nil,
		seg("one", 0, 1),
		seg("two", 1, 1),
		seg("target phrase", 2, 1),
		seg("three", 3, 1),
		seg("four", 4, 1),
	)
	got, err := x.WithContext(context.Background(), "target phrase", directOnly(), 1, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Main.Index)
	require.Len(t, got[0].Before, 1)
	require.Len(t, got[0].After, 1)
	assert.Equal(t, "two", got[0].Before[0].OriginalText)
	assert.Equal(t, "three", got[0].After[0].OriginalText)

	got, err = x.WithContext(context.Background(), "one", directOnly(), 1, 3)
	require.NoError(t, err)
	assert.Empty(t, got[0].Before)
	assert.Len(t, got[0].After, 3)
}

// directOnly ranks by literal match alone.
func directOnly() Weights { return Weights{Direct: 1} }

func TestGroup(t *testing.T) {
	segs := []model.Segment{
		seg("a", 0, 2),
		seg("b", 2, 2),
		seg("c", 4.5, 1),
		seg("d", 10, 2),
	}
	span, err := Group(segs, []float64{0.5, 0.9, 0.8, 0.95}, 0.4, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, span.FirstIndex, "grows around the global maximum")
	assert.Equal(t, 3, span.LastIndex)

	span, err = Group(segs, []float64{0.5, 0.9, 0.8, 0.1}, 0.4, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, span.FirstIndex)
	assert.Equal(t, 2, span.LastIndex)
	assert.Equal(t, "a b c", span.Text)
	assert.Equal(t, 0.0, span.Start)
	assert.Equal(t, 5.5, span.End())
	assert.Equal(t, 0.9, span.Similarity)

	span, err = Group(segs, []float64{0.3, 0.9, 0.8, 0.1}, 0.4, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, span.FirstIndex, "stops at a segment below threshold")

	span, err = Group(segs, []float64{0.5, 0.9, 0.8, 0.1}, 0.4, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 0, span.FirstIndex)
	assert.Equal(t, 1, span.LastIndex, "gap of 0.5 exceeds max gap")
}

func TestGroupErrors(t *testing.T) {
	_, err := Group(nil, nil, 0, 0)
	assert.ErrorIs(t, err, ErrEmptyCorpus)
	_, err = Group([]model.Segment{seg("a", 0, 1)}, []float64{1, 2}, 0, 0)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestIndex_BestSpan(t *testing.T) {
	x := buildIndex(t, nil,
		seg("intro music", 0, 2),
		seg("the stroller folds", 2, 2),
		seg("the stroller is light", 4, 2),
		seg("goodbye", 20, 2),
	)
	span, err := x.BestSpan(context.Background(), "stroller", directOnly(), 0.5, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, span.FirstIndex)
	assert.Equal(t, 2, span.LastIndex)
	assert.Equal(t, 1.0, span.Similarity)
}
