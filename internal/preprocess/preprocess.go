// Package preprocess normalises subtitle text and turns a transcript into
// searchable segments.
package preprocess

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/pable/go-subchurn/internal/model"
)

// allowedPunct is kept by Clean; every other symbol is stripped.
const allowedPunct = ".,!?:;'\"()-"

// Normalize applies NFKC, collapses whitespace runs to one space and trims.
func Normalize(text string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(text)), " ")
}

// Clean normalises text, lower-cases it and removes every rune that is not a
// letter (any script), combining mark, digit, underscore, whitespace or one of
// the allowed punctuation marks.
func Clean(text string) string {
	text = strings.ToLower(Normalize(text))
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsMark(r), unicode.IsDigit(r), unicode.IsSpace(r):
			return r
		case r == '_' || strings.ContainsRune(allowedPunct, r):
			return r
		}
		return -1
	}, text)
}

// SplitSentences splits text on sentence-terminal punctuation.
//
// A boundary is placed after '.', '!' or '?' when whitespace follows and the
// next word starts with an upper-case letter or a Hangul syllable, and
// directly after the Korean endings "다.", "요." and "까?". Decimal numbers
// such as "3.5" never split because no whitespace follows the point.
// This is a heuristic; abbreviations like "Dr. Kim" will still split. The
// upper-case rule needs cased input, so split before Clean lower-cases.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0
	emit := func(end int) {
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			out = append(out, s)
		}
		start = end
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i > 0 && koreanEnding(runes[i-1], r) {
			emit(i + 1)
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j > i+1 && j < len(runes) && opensSentence(runes[j]) {
			emit(i + 1)
		}
	}
	emit(len(runes))
	return out
}

func koreanEnding(prev, punct rune) bool {
	switch punct {
	case '.':
		return prev == '다' || prev == '요'
	case '?':
		return prev == '까'
	}
	return false
}

func opensSentence(r rune) bool {
	return unicode.IsUpper(r) || (r >= '가' && r <= '힣')
}

// MergeAdjacent coalesces consecutive entries whose gap
// (next.Start - current.End) is at most maxGap. Overlapping entries always
// merge. Text is joined with a space and the duration extends to cover the
// furthest end seen. Merging an already merged slice with the same maxGap
// returns it unchanged.
func MergeAdjacent(entries []model.SubtitleEntry, maxGap float64) []model.SubtitleEntry {
	if len(entries) == 0 {
		return nil
	}
	merged := make([]model.SubtitleEntry, 0, len(entries))
	cur := entries[0]
	for _, next := range entries[1:] {
		if next.Start-cur.End() <= maxGap {
			cur.Text = joinText(cur.Text, next.Text)
			if end := next.End(); end > cur.End() {
				cur.Duration = end - cur.Start
			}
			continue
		}
		merged = append(merged, cur)
		cur = next
	}
	return append(merged, cur)
}

func joinText(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}

// Options controls how a transcript becomes segments.
type Options struct {
	Merge  bool    // merge temporally adjacent entries first
	MaxGap float64 // seconds; used when Merge is set
	Split  bool    // one segment per sentence, split before lower-casing
}

// DefaultOptions keeps one segment per subtitle entry.
func DefaultOptions() Options {
	return Options{MaxGap: 1.0}
}

// Segments converts a transcript into corpus segments. Segments whose cleaned
// text is empty are dropped; Index is assigned in output order. With Split,
// the normalised text is split first and each sentence is cleaned afterwards,
// so the upper-case boundary rule still sees the original casing.
func Segments(doc model.SubtitleDoc, opts Options) []model.Segment {
	entries := doc.Entries
	if opts.Merge {
		entries = MergeAdjacent(entries, opts.MaxGap)
	}

	var segs []model.Segment
	for _, e := range entries {
		pieces := []string{e.Text}
		if opts.Split {
			pieces = SplitSentences(Normalize(e.Text))
		}
		for _, p := range pieces {
			p = strings.TrimSpace(Clean(p))
			if p == "" {
				continue
			}
			segs = append(segs, model.Segment{
				Index:         len(segs),
				OriginalText:  e.Text,
				ProcessedText: p,
				Start:         e.Start,
				Duration:      e.Duration,
			})
		}
	}
	return segs
}
