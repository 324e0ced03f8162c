package ports

import (
	"context"

	"github.com/mahirlabib/physics-rag/internal/core/domain"
)

// SearchQuery is a validated search request. Bounds are enforced at the
// boundary before the core sees it.
type SearchQuery struct {
	Query string
	Mode  domain.SearchMode
	TopK  int
	Alpha float64
}

// AskQuery is a validated chat request.
type AskQuery struct {
	Message        string
	Mode           domain.SearchMode
	TopK           int
	IncludeSources bool
}

// Searcher is the hard-failure retrieval surface: errors propagate.
type Searcher interface {
	Search(ctx context.Context, q SearchQuery) ([]domain.SearchResult, error)
	Similar(ctx context.Context, text string, topK int) ([]domain.SearchResult, error)
}

// Asker is the grace-contract surface: it always returns a well-formed
// Answer, degrading to apology text instead of failing.
type Asker interface {
	Ask(ctx context.Context, q AskQuery) domain.Answer
	Explain(ctx context.Context, concept string, topK int) domain.Answer
}

// Ingestor runs the one-time corpus load. Failure is reported, not raised.
type Ingestor interface {
	Ingest(ctx context.Context, forceReset bool) domain.IngestReport
}

// Historian reads back the persisted question/answer trail, newest first.
type Historian interface {
	History(ctx context.Context, limit int) ([]domain.Exchange, error)
}

type ServiceHealth struct {
	Status    string                 `json:"status"`
	Services  map[string]ProbeResult `json:"services"`
	Timestamp float64                `json:"timestamp"`
}

type ProbeResult struct {
	Status     string `json:"status"`
	Detail     string `json:"detail,omitempty"`
	Dimension  int    `json:"dimension,omitempty"`
	Documents  int    `json:"document_count,omitempty"`
	Collection string `json:"collection_name,omitempty"`
}

type ServiceStats struct {
	Status         string             `json:"service_status"`
	Initialized    bool               `json:"initialized"`
	TotalDocuments int                `json:"total_documents"`
	Collection     string             `json:"collection_name"`
	IndexURL       string             `json:"index_url"`
	Models         map[string]string  `json:"models"`
	Configuration  map[string]float64 `json:"configuration"`
}

// SystemProber serves the health and stats read endpoints.
type SystemProber interface {
	Health(ctx context.Context) ServiceHealth
	Stats(ctx context.Context) (ServiceStats, error)
}
