package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mahirlabib/physics-rag/internal/core/domain"
	"github.com/mahirlabib/physics-rag/internal/core/ports"
)

// Fixed user-facing fallback texts. Chat and explain degrade to these
// instead of failing; see the posture note on Orchestrator.
const (
	msgNoContext      = "দুঃখিত, এই প্রশ্নের জন্য কোনো প্রাসঙ্গিক তথ্য পাওয়া যায়নি।"
	msgAnswerFailed   = "দুঃখিত, উত্তর তৈরি করতে সমস্যা হয়েছে। অনুগ্রহ করে আবার চেষ্টা করুন।"
	msgExplainNoInfo  = "'%s' সম্পর্কে কোনো তথ্য পাওয়া যায়নি।"
	msgExplainFailed  = "'%s' সম্পর্কে ব্যাখ্যা তৈরি করতে সমস্যা হয়েছে।"
	msgMultiCtxFailed = "একাধিক প্রসঙ্গ ব্যবহার করে উত্তর তৈরি করতে সমস্যা হয়েছে।"
)

const (
	endpointChat    = "chat"
	endpointExplain = "explain"

	answerSourceLimit  = 3
	explainSourceLimit = 2
)

// AssistantConfig carries the tunables the orchestrator needs beyond its
// collaborators. Zero values fall back to the service defaults.
type AssistantConfig struct {
	DefaultTopK     int
	DefaultAlpha    float64
	MaxAnswerTokens int
	ExplainTopK     int
	EmbeddingModel  string
	GenerationModel string
	IndexURL        string
}

// Orchestrator ties retrieval and generation into the question-answering
// flows. It has two failure postures: Search and Similar propagate errors to
// the caller, while Ask and Explain always return a well-formed Answer and
// embed failures as degraded apology text. Readiness is instance state: the
// first request through any flow lazily ingests the corpus when the index
// is empty.
type Orchestrator struct {
	engine    *RetrievalEngine
	embedder  ports.Embedder
	generator ports.Generator
	index     ports.Index
	corpus    ports.CorpusSource
	exchanges ports.ExchangeStore
	cfg       AssistantConfig

	mu    sync.Mutex
	ready bool
}

func NewOrchestrator(
	embedder ports.Embedder,
	generator ports.Generator,
	index ports.Index,
	corpus ports.CorpusSource,
	exchanges ports.ExchangeStore,
	cfg AssistantConfig,
) *Orchestrator {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 5
	}
	if cfg.DefaultAlpha < 0 || cfg.DefaultAlpha > 1 {
		cfg.DefaultAlpha = 0.5
	}
	if cfg.MaxAnswerTokens <= 0 {
		cfg.MaxAnswerTokens = 1000
	}
	if cfg.ExplainTopK <= 0 {
		cfg.ExplainTopK = 3
	}

	return &Orchestrator{
		engine:    NewRetrievalEngine(embedder, index, cfg.DefaultTopK, cfg.DefaultAlpha),
		embedder:  embedder,
		generator: generator,
		index:     index,
		corpus:    corpus,
		exchanges: exchanges,
		cfg:       cfg,
	}
}

// Search runs one retrieval pass and propagates failures unmodified.
func (o *Orchestrator) Search(ctx context.Context, q ports.SearchQuery) ([]domain.SearchResult, error) {
	mode := q.Mode
	if mode == "" {
		mode = domain.ModeHybrid
	}

	o.ensureReady(ctx)

	return o.engine.Search(ctx, q.Query, mode, q.TopK, q.Alpha)
}

// Similar finds content close to the given text using vector search only.
func (o *Orchestrator) Similar(ctx context.Context, text string, topK int) ([]domain.SearchResult, error) {
	o.ensureReady(ctx)

	return o.engine.Search(ctx, text, domain.ModeVector, topK, o.cfg.DefaultAlpha)
}

// Ask retrieves context for the message and generates a teacher-style
// answer. It never returns an error: retrieval and generation failures
// degrade to an apology Answer with confidence 0 and the cause in Err.
func (o *Orchestrator) Ask(ctx context.Context, q ports.AskQuery) domain.Answer {
	started := time.Now()
	mode := q.Mode
	if mode == "" {
		mode = domain.ModeHybrid
	}

	o.ensureReady(ctx)

	results, err := o.engine.Search(ctx, q.Message, mode, q.TopK, o.cfg.DefaultAlpha)
	if err != nil {
		answer := degradedAnswer(msgAnswerFailed, mode, started, err)
		answer.Message = q.Message
		o.recordExchange(ctx, endpointChat, q.Message, answer)
		return answer
	}

	if len(results) == 0 {
		answer := domain.Answer{
			Response:    msgNoContext,
			Sources:     []domain.Source{},
			Confidence:  0,
			TookSeconds: time.Since(started).Seconds(),
			Mode:        mode,
			Message:     q.Message,
		}
		o.recordExchange(ctx, endpointChat, q.Message, answer)
		return answer
	}

	prompt := physicsPrompt(q.Message, results[0].Content, true)
	text, err := o.generator.Generate(ctx, prompt, o.cfg.MaxAnswerTokens)
	if err != nil {
		answer := degradedAnswer(msgAnswerFailed, mode, started, err)
		answer.Message = q.Message
		o.recordExchange(ctx, endpointChat, q.Message, answer)
		return answer
	}

	answer := domain.Answer{
		Response:    text,
		Sources:     []domain.Source{},
		Confidence:  results[0].Score.Confidence(),
		TookSeconds: time.Since(started).Seconds(),
		ResultCount: len(results),
		Mode:        mode,
		Message:     q.Message,
	}
	if q.IncludeSources {
		answer.Sources = domain.SourcesFromResults(results, answerSourceLimit)
	}
	o.recordExchange(ctx, endpointChat, q.Message, answer)
	return answer
}

// Explain builds a detailed walkthrough of a physics concept from the two
// best-matching chunks. Same grace contract as Ask.
func (o *Orchestrator) Explain(ctx context.Context, concept string, topK int) domain.Answer {
	started := time.Now()
	if topK <= 0 {
		topK = o.cfg.ExplainTopK
	}

	o.ensureReady(ctx)

	results, err := o.engine.Search(ctx, concept, domain.ModeHybrid, topK, o.cfg.DefaultAlpha)
	if err != nil {
		answer := degradedAnswer(fmt.Sprintf(msgExplainFailed, concept), domain.ModeHybrid, started, err)
		answer.Concept = concept
		o.recordExchange(ctx, endpointExplain, concept, answer)
		return answer
	}

	if len(results) == 0 {
		answer := domain.Answer{
			Response:    fmt.Sprintf(msgExplainNoInfo, concept),
			Sources:     []domain.Source{},
			Confidence:  0,
			TookSeconds: time.Since(started).Seconds(),
			Mode:        domain.ModeHybrid,
			Concept:     concept,
		}
		o.recordExchange(ctx, endpointExplain, concept, answer)
		return answer
	}

	contextLimit := explainSourceLimit
	if len(results) < contextLimit {
		contextLimit = len(results)
	}
	contexts := make([]string, 0, contextLimit)
	for _, result := range results[:contextLimit] {
		contexts = append(contexts, result.Content)
	}

	text, err := o.generator.Generate(ctx, multiContextPrompt(concept, contexts), o.cfg.MaxAnswerTokens)
	if err != nil {
		answer := degradedAnswer(msgMultiCtxFailed, domain.ModeHybrid, started, err)
		answer.Concept = concept
		o.recordExchange(ctx, endpointExplain, concept, answer)
		return answer
	}

	answer := domain.Answer{
		Response:    text,
		Sources:     domain.SourcesFromResults(results, explainSourceLimit),
		Confidence:  results[0].Score.Confidence(),
		TookSeconds: time.Since(started).Seconds(),
		ResultCount: len(results),
		Mode:        domain.ModeHybrid,
		Concept:     concept,
	}
	o.recordExchange(ctx, endpointExplain, concept, answer)
	return answer
}

// ensureReady lazily ingests the corpus before the first retrieval. The
// mutex makes startup ingestion run at most once per process; a failed
// attempt leaves ready unset so the next request tries again, and the
// request itself proceeds to surface the real store error.
func (o *Orchestrator) ensureReady(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ready {
		return
	}
	o.ingestLocked(ctx, false)
}

func degradedAnswer(text string, mode domain.SearchMode, started time.Time, err error) domain.Answer {
	return domain.Answer{
		Response:    text,
		Sources:     []domain.Source{},
		Confidence:  0,
		TookSeconds: time.Since(started).Seconds(),
		Mode:        mode,
		Err:         err,
	}
}

// recordExchange appends the question/answer pair to the audit trail.
// History is best-effort: a store failure never affects the answer.
func (o *Orchestrator) recordExchange(ctx context.Context, endpoint, question string, answer domain.Answer) {
	if o.exchanges == nil {
		return
	}
	_ = o.exchanges.Save(ctx, domain.Exchange{
		ID:         uuid.NewString(),
		Endpoint:   endpoint,
		Question:   question,
		Answer:     answer.Response,
		Mode:       answer.Mode,
		Confidence: answer.Confidence,
		Sources:    len(answer.Sources),
		TookMS:     int64(answer.TookSeconds * 1000),
		CreatedAt:  time.Now().UTC(),
	})
}
