package domain

import "math"

type SearchMode string

const (
	ModeVector  SearchMode = "vector"
	ModeKeyword SearchMode = "keyword"
	ModeHybrid  SearchMode = "hybrid"
)

func ParseSearchMode(raw string) (SearchMode, bool) {
	switch SearchMode(raw) {
	case ModeVector, ModeKeyword, ModeHybrid:
		return SearchMode(raw), true
	}
	return "", false
}

// ScoreKind tags which metric the raw score value carries. The three kinds
// live on different scales and must never be compared with each other.
type ScoreKind string

const (
	// ScoreDistance is a vector-space distance, lower is better.
	ScoreDistance ScoreKind = "distance"
	// ScoreRelevance is a lexical (BM25-style) relevance, >= 0, higher is better.
	ScoreRelevance ScoreKind = "relevance"
	// ScoreBlended is the store's own vector+lexical blend, store-defined scale.
	ScoreBlended ScoreKind = "blended"
)

func (m SearchMode) ScoreKind() ScoreKind {
	switch m {
	case ModeVector:
		return ScoreDistance
	case ModeKeyword:
		return ScoreRelevance
	default:
		return ScoreBlended
	}
}

type Score struct {
	Kind  ScoreKind `json:"kind"`
	Value float64   `json:"value"`
}

// Confidence folds the mode-dependent raw metric into a single [0,1] display
// value. The mapping is a heuristic, not a calibrated probability: negative
// values are treated as distance-like (1-|v|, floored at 0), everything else
// is clamped at 1.
func (s Score) Confidence() float64 {
	switch s.Kind {
	case ScoreDistance:
		if s.Value < 0 {
			return math.Max(0.0, 1.0-math.Abs(s.Value))
		}
		return math.Min(s.Value, 1.0)
	case ScoreRelevance:
		return math.Min(math.Max(s.Value, 0.0), 1.0)
	default:
		if s.Value < 0 {
			return math.Max(0.0, 1.0-math.Abs(s.Value))
		}
		return math.Min(s.Value, 1.0)
	}
}

// Hit is one raw match as the index returned it: no rank, no mode, just the
// store's own metric. The retrieval engine turns hits into SearchResults.
type Hit struct {
	Content  string
	DocID    int
	RawScore float64
}

type SearchResult struct {
	Content string     `json:"content"`
	Score   Score      `json:"score"`
	Rank    int        `json:"rank"`
	DocID   int        `json:"doc_id"`
	Mode    SearchMode `json:"search_mode"`
}
