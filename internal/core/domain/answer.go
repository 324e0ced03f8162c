package domain

// PreviewRunes caps how much of a source chunk is echoed back in an answer.
const PreviewRunes = 200

// Source is the citation view of one retrieved chunk: a truncated preview
// plus enough metadata to find the chunk again.
type Source struct {
	ContentPreview string     `json:"content_preview"`
	Score          float64    `json:"score"`
	DocID          int        `json:"doc_id"`
	Rank           int        `json:"rank"`
	Mode           SearchMode `json:"search_type"`
}

// Answer is the final product of one chat or explain cycle. It is always
// well-formed: degraded outcomes carry apology text and confidence 0 instead
// of an error, with the cause kept in Err for logging only.
type Answer struct {
	Response    string     `json:"response"`
	Sources     []Source   `json:"sources"`
	Confidence  float64    `json:"confidence"`
	TookSeconds float64    `json:"total_time"`
	ResultCount int        `json:"search_results_count"`
	Mode        SearchMode `json:"search_type"`
	Message     string     `json:"message,omitempty"`
	Concept     string     `json:"concept,omitempty"`

	Err error `json:"-"`
}

// Preview truncates text to PreviewRunes runes, marking the cut with an
// ellipsis. Shorter text passes through unchanged.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewRunes {
		return text
	}
	return string(runes[:PreviewRunes]) + "..."
}

// SourcesFromResults builds the citation list from the best results, at most
// limit entries.
func SourcesFromResults(results []SearchResult, limit int) []Source {
	if limit > len(results) {
		limit = len(results)
	}
	out := make([]Source, 0, limit)
	for _, r := range results[:limit] {
		out = append(out, Source{
			ContentPreview: Preview(r.Content),
			Score:          r.Score.Value,
			DocID:          r.DocID,
			Rank:           r.Rank,
			Mode:           r.Mode,
		})
	}
	return out
}
