package usecase

import (
	"context"
	"fmt"

	"github.com/mahirlabib/physics-rag/internal/core/domain"
	"github.com/mahirlabib/physics-rag/internal/core/ports"
)

// RetrievalEngine turns a query into a ranked result sequence using one of
// the three search modes. It fails hard: index and provider errors propagate
// unmodified to the caller.
type RetrievalEngine struct {
	embedder ports.Embedder
	index    ports.Index

	defaultTopK  int
	defaultAlpha float64
}

func NewRetrievalEngine(embedder ports.Embedder, index ports.Index, defaultTopK int, defaultAlpha float64) *RetrievalEngine {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	if defaultAlpha < 0 || defaultAlpha > 1 {
		defaultAlpha = 0.5
	}
	return &RetrievalEngine{
		embedder:     embedder,
		index:        index,
		defaultTopK:  defaultTopK,
		defaultAlpha: defaultAlpha,
	}
}

func (e *RetrievalEngine) Search(ctx context.Context, query string, mode domain.SearchMode, topK int, alpha float64) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = e.defaultTopK
	}
	if alpha < 0 || alpha > 1 {
		alpha = e.defaultAlpha
	}

	var (
		hits []domain.Hit
		err  error
	)
	switch mode {
	case domain.ModeVector:
		var vector []float32
		vector, err = e.embedder.EmbedQuery(ctx, query)
		if err != nil {
			return nil, domain.WrapError(domain.ErrProvider, "embed query", err)
		}
		hits, err = e.index.QueryVector(ctx, vector, topK)
	case domain.ModeKeyword:
		hits, err = e.index.QueryKeyword(ctx, query, topK)
	case domain.ModeHybrid:
		var vector []float32
		vector, err = e.embedder.EmbedQuery(ctx, query)
		if err != nil {
			return nil, domain.WrapError(domain.ErrProvider, "embed query", err)
		}
		hits, err = e.index.QueryHybrid(ctx, query, vector, alpha, topK)
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("unsupported search mode: %s", mode))
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrieval, fmt.Sprintf("%s search", mode), err)
	}

	return rankHits(hits, mode, topK), nil
}

// rankHits tags each hit with the requested mode and assigns 1-based ranks in
// the order the index returned them. The index is trusted to have sorted by
// its own relevance definition; rank ignores the raw score entirely.
func rankHits(hits []domain.Hit, mode domain.SearchMode, topK int) []domain.SearchResult {
	if len(hits) > topK {
		hits = hits[:topK]
	}
	kind := mode.ScoreKind()
	results := make([]domain.SearchResult, 0, len(hits))
	for i, hit := range hits {
		results = append(results, domain.SearchResult{
			Content: hit.Content,
			Score:   domain.Score{Kind: kind, Value: hit.RawScore},
			Rank:    i + 1,
			DocID:   hit.DocID,
			Mode:    mode,
		})
	}
	return results
}
