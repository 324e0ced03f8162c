package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/mahirlabib/physics-rag/internal/config"
	"github.com/mahirlabib/physics-rag/internal/core/ports"
	"github.com/mahirlabib/physics-rag/internal/core/usecase"
	"github.com/mahirlabib/physics-rag/internal/infrastructure/corpus/localfile"
	"github.com/mahirlabib/physics-rag/internal/infrastructure/llm/gemini"
	"github.com/mahirlabib/physics-rag/internal/infrastructure/llm/openaicompat"
	"github.com/mahirlabib/physics-rag/internal/infrastructure/repository/postgres"
	"github.com/mahirlabib/physics-rag/internal/infrastructure/resilience"
	"github.com/mahirlabib/physics-rag/internal/infrastructure/vector/memindex"
	"github.com/mahirlabib/physics-rag/internal/infrastructure/vector/weaviate"
	"github.com/mahirlabib/physics-rag/internal/observability/logging"
	"github.com/mahirlabib/physics-rag/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Searcher  ports.Searcher
	Asker     ports.Asker
	Ingestor  ports.Ingestor
	Historian ports.Historian
	Prober    ports.SystemProber
	Metrics   *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := logging.NewLogger(cfg.ServiceName, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	executor := resilience.NewExecutor(resilience.Config{
		BreakerEnabled:          cfg.BreakerEnabled,
		BreakerMinRequests:      uint32(cfg.BreakerMinRequests),
		BreakerFailureRatio:     cfg.BreakerFailureRatio,
		BreakerOpenTimeout:      time.Duration(cfg.BreakerOpenSeconds) * time.Second,
		BreakerHalfOpenMaxCalls: uint32(cfg.BreakerHalfOpenCalls),
	})

	var (
		embedder  ports.Embedder
		generator ports.Generator
	)
	switch cfg.Provider {
	case "openai":
		provider := openaicompat.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.GenerationModel, cfg.Temperature)
		embedder = provider
		generator = provider
	default:
		client := gemini.NewWithOptions("", cfg.GeminiAPIKey, cfg.EmbeddingModel, cfg.GenerationModel, cfg.Temperature, gemini.Options{
			ResilienceExecutor: executor,
		})
		embedder = gemini.NewEmbedder(client)
		generator = gemini.NewGenerator(client)
	}

	var index ports.Index
	switch cfg.IndexDriver {
	case "memory":
		index = memindex.New(cfg.CollectionName)
	default:
		index = weaviate.NewWithOptions(cfg.WeaviateURL, cfg.WeaviateAPIKey, cfg.CollectionName, weaviate.Options{
			ResilienceExecutor: executor,
		})
	}

	corpus := localfile.New(cfg.CorpusPath)

	var (
		db        *sql.DB
		exchanges ports.ExchangeStore
	)
	if cfg.PostgresDSN != "" {
		var err error
		db, err = postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewExchangeRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		exchanges = repo
	}

	orch := usecase.NewOrchestrator(embedder, generator, index, corpus, exchanges, usecase.AssistantConfig{
		DefaultTopK:     cfg.DefaultTopK,
		DefaultAlpha:    cfg.HybridAlpha,
		MaxAnswerTokens: cfg.MaxResponseTokens,
		ExplainTopK:     cfg.ExplainTopK,
		EmbeddingModel:  cfg.EmbeddingModel,
		GenerationModel: cfg.GenerationModel,
		IndexURL:        cfg.WeaviateURL,
	})

	return &App{
		Config: cfg,
		Logger: logger,

		Searcher:  orch,
		Asker:     orch,
		Ingestor:  orch,
		Historian: orch,
		Prober:    orch,
		Metrics:   metrics.NewHTTPServerMetrics(cfg.ServiceName),

		closeFn: func() {
			_ = index.Close()
			if db != nil {
				_ = db.Close()
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
