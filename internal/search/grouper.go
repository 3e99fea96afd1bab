package search

import (
	"fmt"
	"strings"

	"github.com/pable/go-subchurn/internal/model"
)

// Group grows a single span around the highest similarity. It extends to a
// neighbour while that neighbour's similarity is at least threshold and its
// time gap to the span is at most maxGap, stopping at the first failure on
// each side. Ties for the maximum pick the earliest segment.
func Group(segments []model.Segment, sims []float64, threshold, maxGap float64) (model.Span, error) {
	if len(sims) != len(segments) {
		return model.Span{}, fmt.Errorf("%w: %d similarities, %d segments", ErrLengthMismatch, len(sims), len(segments))
	}
	if len(segments) == 0 {
		return model.Span{}, ErrEmptyCorpus
	}

	best := 0
	for i := 1; i < len(sims); i++ {
		if sims[i] > sims[best] {
			best = i
		}
	}

	first, last := best, best
	start, end := segments[best].Start, segments[best].End()
	for first > 0 {
		prev := segments[first-1]
		if sims[first-1] < threshold || start-prev.End() > maxGap {
			break
		}
		first--
		start = min(start, prev.Start)
	}
	for last < len(segments)-1 {
		next := segments[last+1]
		if sims[last+1] < threshold || next.Start-end > maxGap {
			break
		}
		last++
		end = max(end, next.End())
	}

	texts := make([]string, 0, last-first+1)
	sim := sims[first]
	for i := first; i <= last; i++ {
		texts = append(texts, segments[i].OriginalText)
		sim = max(sim, sims[i])
	}
	for i := first; i <= last; i++ {
		end = max(end, segments[i].End())
	}
	return model.Span{
		FirstIndex: first,
		LastIndex:  last,
		Text:       strings.Join(texts, " "),
		Start:      start,
		Duration:   end - start,
		Similarity: sim,
	}, nil
}
