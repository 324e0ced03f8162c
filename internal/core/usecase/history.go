package usecase

import (
	"context"

	"github.com/mahirlabib/physics-rag/internal/core/domain"
)

// History returns the most recent exchanges, newest first. Running without
// a configured store means there is no history to report, not an error.
func (o *Orchestrator) History(ctx context.Context, limit int) ([]domain.Exchange, error) {
	if limit <= 0 {
		limit = 10
	}
	if o.exchanges == nil {
		return []domain.Exchange{}, nil
	}

	exchanges, err := o.exchanges.Recent(ctx, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrRetrieval, "load exchange history", err)
	}
	if exchanges == nil {
		exchanges = []domain.Exchange{}
	}
	return exchanges, nil
}
