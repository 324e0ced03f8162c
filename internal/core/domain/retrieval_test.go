package domain

import (
	"strings"
	"testing"
)

func TestScoreConfidenceStaysInUnitInterval(t *testing.T) {
	cases := []struct {
		name string
		s    Score
		want float64
	}{
		{"distance negative", Score{ScoreDistance, -0.3}, 0.7},
		{"distance strongly negative", Score{ScoreDistance, -4.0}, 0.0},
		{"distance small positive", Score{ScoreDistance, 0.12}, 0.12},
		{"distance above one", Score{ScoreDistance, 1.8}, 1.0},
		{"relevance zero", Score{ScoreRelevance, 0.0}, 0.0},
		{"relevance mid", Score{ScoreRelevance, 0.55}, 0.55},
		{"relevance above one", Score{ScoreRelevance, 7.3}, 1.0},
		{"relevance negative clamps", Score{ScoreRelevance, -2.0}, 0.0},
		{"blended mid", Score{ScoreBlended, 0.42}, 0.42},
		{"blended above one", Score{ScoreBlended, 1.2}, 1.0},
		{"blended negative", Score{ScoreBlended, -0.25}, 0.75},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.s.Confidence()
			if got < 0 || got > 1 {
				t.Fatalf("Confidence() = %v, outside [0,1]", got)
			}
			if got != tc.want {
				t.Fatalf("Confidence() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSearchModeScoreKinds(t *testing.T) {
	if ModeVector.ScoreKind() != ScoreDistance {
		t.Fatalf("vector mode should score by distance")
	}
	if ModeKeyword.ScoreKind() != ScoreRelevance {
		t.Fatalf("keyword mode should score by relevance")
	}
	if ModeHybrid.ScoreKind() != ScoreBlended {
		t.Fatalf("hybrid mode should score by blended metric")
	}
}

func TestParseSearchModeRejectsUnknown(t *testing.T) {
	if _, ok := ParseSearchMode("semantic"); ok {
		t.Fatalf("expected unknown mode to be rejected")
	}
	mode, ok := ParseSearchMode("keyword")
	if !ok || mode != ModeKeyword {
		t.Fatalf("expected keyword mode, got %q ok=%v", mode, ok)
	}
}

func TestPreviewTruncatesLongContent(t *testing.T) {
	long := strings.Repeat("ক", 250)
	got := Preview(long)
	if gotRunes := []rune(got); len(gotRunes) != PreviewRunes+3 {
		t.Fatalf("expected %d runes, got %d", PreviewRunes+3, len(gotRunes))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis suffix, got %q", got[len(got)-9:])
	}
	if !strings.HasPrefix(got, strings.Repeat("ক", 10)) {
		t.Fatalf("expected preview to keep leading content")
	}
}

func TestPreviewKeepsShortContent(t *testing.T) {
	short := strings.Repeat("ক", 150)
	if got := Preview(short); got != short {
		t.Fatalf("expected short content unchanged, got %d runes", len([]rune(got)))
	}
}

func TestSourcesFromResultsCapsAtLimit(t *testing.T) {
	results := []SearchResult{
		{Content: "a", Score: Score{ScoreBlended, 0.9}, Rank: 1, DocID: 4, Mode: ModeHybrid},
		{Content: "b", Score: Score{ScoreBlended, 0.8}, Rank: 2, DocID: 7, Mode: ModeHybrid},
		{Content: "c", Score: Score{ScoreBlended, 0.7}, Rank: 3, DocID: 1, Mode: ModeHybrid},
		{Content: "d", Score: Score{ScoreBlended, 0.6}, Rank: 4, DocID: 9, Mode: ModeHybrid},
	}
	sources := SourcesFromResults(results, 3)
	if len(sources) != 3 {
		t.Fatalf("expected 3 sources, got %d", len(sources))
	}
	if sources[0].DocID != 4 || sources[0].Rank != 1 {
		t.Fatalf("expected best result first, got %+v", sources[0])
	}
	if sources[2].Score != 0.7 {
		t.Fatalf("expected raw score carried over, got %v", sources[2].Score)
	}
}
