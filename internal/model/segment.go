package model

// ---- Pipeline A: subtitle search ----

// SubtitleEntry is one raw subtitle line as delivered by the transcript source.
type SubtitleEntry struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// End returns the time (seconds) at which the entry stops being displayed.
func (e SubtitleEntry) End() float64 { return e.Start + e.Duration }

// SubtitleDoc is a decoded transcript file.
type SubtitleDoc struct {
	VideoID string          `json:"video_id"`
	Entries []SubtitleEntry `json:"subtitles"`
}

// Segment is one searchable unit of time-stamped text.
// Index is the stable handle assigned when the corpus is built; it is the
// segment's position in corpus order and is carried through scoring.
type Segment struct {
	Index         int
	OriginalText  string
	ProcessedText string
	Start         float64
	Duration      float64
	Embedding     []float32
}

// End returns Start+Duration.
func (s Segment) End() float64 { return s.Start + s.Duration }

// ScoredSegment is a Segment with the scores computed for one query.
type ScoredSegment struct {
	Segment
	SemanticSimilarity  float64
	DirectScore         float64
	ProductScore        float64
	FinalSimilarity     float64
	ProductKeywordCount int
}

// ContextWindow is a ranked result with its chronological neighbours.
type ContextWindow struct {
	Main   ScoredSegment
	Before []Segment
	After  []Segment
}

// Span is a contiguous run of segments grown around the best match.
type Span struct {
	FirstIndex int
	LastIndex  int
	Text       string
	Start      float64
	Duration   float64
	Similarity float64
}

// End returns Start+Duration.
func (s Span) End() float64 { return s.Start + s.Duration }
