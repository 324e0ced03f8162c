package httpadapter

import (
	"net/http"

	"github.com/mahirlabib/physics-rag/internal/core/domain"
	"github.com/mahirlabib/physics-rag/internal/infrastructure/resilience"
)

// mapErrorToHTTPStatus folds domain error kinds into response codes. An open
// circuit maps to 503 before the upstream kinds are considered, because the
// engine wraps breaker errors in a retrieval kind on the way out.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case resilience.IsCircuitOpen(err):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrProvider), domain.IsKind(err, domain.ErrRetrieval):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
