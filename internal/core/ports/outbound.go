package ports

import (
	"context"

	"github.com/mahirlabib/physics-rag/internal/core/domain"
)

// Embedder builds vectors for chunks and query text. Every call is a live
// upstream request: no caching, no internal retries.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator produces answer text from a fully assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Index is the chunk store. Query methods return hits in the store's own
// relevance order carrying its raw metric; rank and mode tagging happen in
// the retrieval engine.
type Index interface {
	EnsureReady(ctx context.Context) error
	Reset(ctx context.Context) error
	Insert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	Count(ctx context.Context) (int, error)
	QueryVector(ctx context.Context, vector []float32, limit int) ([]domain.Hit, error)
	QueryKeyword(ctx context.Context, query string, limit int) ([]domain.Hit, error)
	QueryHybrid(ctx context.Context, query string, vector []float32, alpha float64, limit int) ([]domain.Hit, error)
	Collection() string
	Close() error
}

// CorpusSource loads the raw textbook text that ingestion will split.
type CorpusSource interface {
	Load(ctx context.Context) (string, error)
}

// ExchangeStore keeps the question/answer audit trail. Saving is best-effort
// from the caller's point of view and must never block answering.
type ExchangeStore interface {
	Save(ctx context.Context, exchange domain.Exchange) error
	Recent(ctx context.Context, limit int) ([]domain.Exchange, error)
}
