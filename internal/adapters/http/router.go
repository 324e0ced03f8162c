package httpadapter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mahirlabib/physics-rag/internal/config"
	"github.com/mahirlabib/physics-rag/internal/core/domain"
	"github.com/mahirlabib/physics-rag/internal/core/ports"
	"github.com/mahirlabib/physics-rag/internal/observability/metrics"
)

const (
	serviceVersion          = "1.0.0"
	defaultBackpressureWait = 500 * time.Millisecond
)

// Router serves the question-answering API over the core ports. Handlers
// hold the two failure postures apart: search and similar map core errors to
// HTTP statuses, chat and explain always answer 200 once validation passes.
type Router struct {
	cfg       config.Config
	searcher  ports.Searcher
	asker     ports.Asker
	ingestor  ports.Ingestor
	historian ports.Historian
	prober    ports.SystemProber
	metrics   *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	searcher ports.Searcher,
	asker ports.Asker,
	ingestor ports.Ingestor,
	historian ports.Historian,
	prober ports.SystemProber,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:       cfg,
		searcher:  searcher,
		asker:     asker,
		ingestor:  ingestor,
		historian: historian,
		prober:    prober,
		metrics:   httpMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", rt.root)
	mux.HandleFunc("/health", rt.health)
	mux.HandleFunc("/stats", rt.stats)
	mux.HandleFunc("/initialize", rt.initialize)
	mux.HandleFunc("/search", rt.search)
	mux.HandleFunc("/chat", rt.chat)
	mux.HandleFunc("/explain", rt.explain)
	mux.HandleFunc("/similar", rt.similar)
	mux.HandleFunc("/history", rt.history)
	mux.HandleFunc("/debug/config", rt.debugConfig)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.cfg.ServiceName, handler)
	}
	if rt.cfg.MaxConcurrentRequests > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.MaxConcurrentRequests, defaultBackpressureWait)
	}
	if rt.cfg.APIRateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	}
	handler = corsMiddleware(handler, rt.cfg.AllowedOrigins)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

type searchResponse struct {
	Results      []domain.SearchResult `json:"results"`
	Query        string                `json:"query"`
	Mode         domain.SearchMode     `json:"mode"`
	TotalResults int                   `json:"total_results"`
	TookSeconds  float64               `json:"took_seconds"`
}

type similarItem struct {
	Content         string  `json:"content"`
	SimilarityScore float64 `json:"similarity_score"`
	DocID           int     `json:"doc_id"`
}

type similarResponse struct {
	SimilarContent []similarItem `json:"similar_content"`
	ReferenceText  string        `json:"reference_text"`
	TotalResults   int           `json:"total_results"`
}

type historyResponse struct {
	Exchanges []domain.Exchange `json:"exchanges"`
	Total     int               `json:"total"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (rt *Router) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, r, http.StatusNotFound, "no such endpoint")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":     rt.cfg.ServiceName,
		"version":     serviceVersion,
		"description": "Bengali physics question answering over a chunked textbook",
		"endpoints": []string{
			"/health", "/stats", "/initialize", "/search", "/chat",
			"/explain", "/similar", "/history", "/metrics",
		},
	})
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	health := rt.prober.Health(r.Context())
	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (rt *Router) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := rt.prober.Stats(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) initialize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req initializeRequest
	if err := decodeRequest(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	report := rt.ingestor.Ingest(r.Context(), req.ForceReset)
	if rt.metrics != nil {
		rt.metrics.RecordIngestRun(rt.cfg.ServiceName, report.Success, report.Documents)
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req searchRequest
	if err := decodeRequest(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	query := req.toQuery()
	started := time.Now()
	results, err := rt.searcher.Search(r.Context(), query)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	took := time.Since(started)
	rt.observeRetrieval("search", string(query.Mode), len(results), took)
	writeJSON(w, http.StatusOK, searchResponse{
		Results:      results,
		Query:        query.Query,
		Mode:         query.Mode,
		TotalResults: len(results),
		TookSeconds:  took.Seconds(),
	})
}

func (rt *Router) chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req chatRequest
	if err := decodeRequest(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	answer := rt.asker.Ask(r.Context(), req.toQuery())
	rt.recordAnswer(r, "chat", answer)
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) explain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req explainRequest
	if err := decodeRequest(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	answer := rt.asker.Explain(r.Context(), req.Concept, req.topK())
	rt.recordAnswer(r, "explain", answer)
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) similar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req similarRequest
	if err := decodeRequest(r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	started := time.Now()
	results, err := rt.searcher.Similar(r.Context(), req.Text, req.topK())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	rt.observeRetrieval("similar", string(domain.ModeVector), len(results), time.Since(started))
	items := make([]similarItem, 0, len(results))
	for _, result := range results {
		items = append(items, similarItem{
			Content:         result.Content,
			SimilarityScore: result.Score.Value,
			DocID:           result.DocID,
		})
	}
	writeJSON(w, http.StatusOK, similarResponse{
		SimilarContent: items,
		ReferenceText:  req.Text,
		TotalResults:   len(items),
	})
}

func (rt *Router) history(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := defaultHistory
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxHistory {
			writeError(w, r, http.StatusBadRequest,
				fmt.Sprintf("limit must be an integer between 1 and %d", maxHistory))
			return
		}
		limit = parsed
	}

	exchanges, err := rt.historian.History(r.Context(), limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Exchanges: exchanges, Total: len(exchanges)})
}

func (rt *Router) debugConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, rt.cfg.Redacted())
}

// recordAnswer logs the degradation cause, if any, and feeds the answer
// metrics. The answer itself still goes out as a 200 regardless.
func (rt *Router) recordAnswer(r *http.Request, endpoint string, answer domain.Answer) {
	if answer.Err != nil {
		slog.Warn("degraded_answer",
			"request_id", requestIDFromContext(r.Context()),
			"endpoint", endpoint,
			"search_mode", string(answer.Mode),
			"error", answer.Err.Error(),
		)
	}

	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordRAGModeRequest(rt.cfg.ServiceName, endpoint, string(answer.Mode))
	rt.metrics.RecordRAGObservation(rt.cfg.ServiceName, endpoint, answer.ResultCount,
		time.Duration(answer.TookSeconds*float64(time.Second)))
	rt.metrics.RecordConfidence(rt.cfg.ServiceName, endpoint, answer.Confidence)
	if answer.Err != nil {
		rt.metrics.RecordDegradedAnswer(rt.cfg.ServiceName, endpoint)
	}
}

func (rt *Router) observeRetrieval(endpoint, mode string, resultCount int, took time.Duration) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordRAGModeRequest(rt.cfg.ServiceName, endpoint, mode)
	rt.metrics.RecordRAGObservation(rt.cfg.ServiceName, endpoint, resultCount, took)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, detail string) {
	writeJSON(w, status, errorResponse{
		Error:     http.StatusText(status),
		Detail:    detail,
		RequestID: requestIDFromContext(r.Context()),
	})
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, mapErrorToHTTPStatus(err), err.Error())
}
