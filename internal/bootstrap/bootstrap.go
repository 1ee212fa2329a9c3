package bootstrap

import (
	"context"
	"fmt"

	"github.com/kirillkom/retrieval-fusion/internal/config"
	"github.com/kirillkom/retrieval-fusion/internal/core/ports"
	"github.com/kirillkom/retrieval-fusion/internal/core/usecase"
	"github.com/kirillkom/retrieval-fusion/internal/infrastructure/cache"
	"github.com/kirillkom/retrieval-fusion/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/retrieval-fusion/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/retrieval-fusion/internal/infrastructure/resilience"
	pgvectorindex "github.com/kirillkom/retrieval-fusion/internal/infrastructure/vector/pgvector"
	"github.com/kirillkom/retrieval-fusion/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/retrieval-fusion/internal/observability/metrics"
)

// App wires the retrieval pipeline together. All dependencies are injected
// here so handlers and usecases stay constructible in tests.
type App struct {
	Config config.Config

	Builder ports.ContextBuilder
	Metrics *metrics.ServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	store := postgres.NewChunkStore(db)

	var index ports.VectorIndex
	switch cfg.VectorBackend {
	case "pgvector":
		pgIndex := pgvectorindex.New(db)
		if err := pgIndex.EnsureSchema(ctx, cfg.EmbeddingDim); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure pgvector schema: %w", err)
		}
		index = pgIndex
	default:
		index = qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	}

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:         cfg.RetryMaxAttempts,
		RetryInitialBackoff:      cfg.RetryInitialBackoff,
		RetryMaxBackoff:          cfg.RetryMaxBackoff,
		BreakerEnabled:           cfg.BreakerEnabled,
		BreakerFailureThreshold:  uint32(cfg.BreakerFailureThreshold),
		BreakerOpenTimeout:       cfg.BreakerOpenTimeout,
		BreakerHalfOpenSuccesses: uint32(cfg.BreakerHalfOpenSuccesses),
	})

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, exec)
	embedder := ollama.NewEmbedder(ollamaClient)
	completer := ollama.NewCompleter(ollamaClient)

	embeddingCache := cache.NewEmbeddingCache(
		cache.WithTTL(cfg.CacheBaseTTL, cfg.CacheMaxTTL),
		cache.WithMaxSize(cfg.CacheMaxSize),
	)

	builder := usecase.NewBuildContextUseCase(
		embeddingCache, embedder, completer, index, store,
		usecase.Options{
			Mode:           usecase.RetrievalMode(cfg.RetrievalMode),
			HyDEEnabled:    cfg.HyDEEnabled,
			CandidateLimit: cfg.CandidateLimit,
		},
	)

	serverMetrics := metrics.NewServerMetrics("api")
	serverMetrics.RegisterCacheStats(metrics.NewCacheStatsCollector("api", embeddingCache.Stats))

	return &App{
		Config:  cfg,
		Builder: builder,
		Metrics: serverMetrics,

		closeFn: func() {
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
