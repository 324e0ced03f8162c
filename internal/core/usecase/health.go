package usecase

import (
	"context"
	"time"

	"github.com/mahirlabib/physics-rag/internal/core/domain"
	"github.com/mahirlabib/physics-rag/internal/core/ports"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// Health probes each collaborator with a minimal live call. Any failing
// probe downgrades the aggregate status to degraded; the endpoint itself
// never errors.
func (o *Orchestrator) Health(ctx context.Context) ports.ServiceHealth {
	health := ports.ServiceHealth{
		Status:    statusHealthy,
		Services:  make(map[string]ports.ProbeResult, 3),
		Timestamp: float64(time.Now().UnixMilli()) / 1000,
	}

	if vector, err := o.embedder.EmbedQuery(ctx, "test"); err != nil {
		health.Services["embedding"] = ports.ProbeResult{Status: statusUnhealthy, Detail: err.Error()}
		health.Status = statusDegraded
	} else if len(vector) == 0 {
		health.Services["embedding"] = ports.ProbeResult{Status: statusUnhealthy, Detail: "empty embedding"}
		health.Status = statusDegraded
	} else {
		health.Services["embedding"] = ports.ProbeResult{Status: statusHealthy, Dimension: len(vector)}
	}

	if count, err := o.index.Count(ctx); err != nil {
		health.Services["index"] = ports.ProbeResult{Status: statusUnhealthy, Detail: err.Error()}
		health.Status = statusDegraded
	} else {
		health.Services["index"] = ports.ProbeResult{
			Status:     statusHealthy,
			Documents:  count,
			Collection: o.index.Collection(),
		}
	}

	if text, err := o.generator.Generate(ctx, simplePrompt("test", "test context"), 0); err != nil {
		health.Services["generation"] = ports.ProbeResult{Status: statusUnhealthy, Detail: err.Error()}
		health.Status = statusDegraded
	} else if text == "" {
		health.Services["generation"] = ports.ProbeResult{Status: statusUnhealthy, Detail: "empty completion"}
		health.Status = statusDegraded
	} else {
		health.Services["generation"] = ports.ProbeResult{Status: statusHealthy}
	}

	return health
}

// Stats reports collection size and the effective configuration.
func (o *Orchestrator) Stats(ctx context.Context) (ports.ServiceStats, error) {
	count, err := o.index.Count(ctx)
	if err != nil {
		return ports.ServiceStats{}, domain.WrapError(domain.ErrRetrieval, "collection stats", err)
	}

	o.mu.Lock()
	ready := o.ready
	o.mu.Unlock()

	return ports.ServiceStats{
		Status:         statusHealthy,
		Initialized:    ready,
		TotalDocuments: count,
		Collection:     o.index.Collection(),
		IndexURL:       o.cfg.IndexURL,
		Models: map[string]string{
			"embedding":  o.cfg.EmbeddingModel,
			"generation": o.cfg.GenerationModel,
		},
		Configuration: map[string]float64{
			"default_top_k":       float64(o.cfg.DefaultTopK),
			"hybrid_alpha":        o.cfg.DefaultAlpha,
			"max_response_tokens": float64(o.cfg.MaxAnswerTokens),
		},
	}, nil
}
