// Package app wires configuration into the retrieval, generation and HTTP layers.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"legal-assistant/internal/config"
	"legal-assistant/internal/contextutil"
	apphttp "legal-assistant/internal/http"
	"legal-assistant/internal/indexer"
	"legal-assistant/internal/llm"
	"legal-assistant/internal/metrics"
	"legal-assistant/internal/query"
	"legal-assistant/internal/rag"
	"legal-assistant/internal/retry"
	"legal-assistant/internal/service"
	"legal-assistant/internal/storage"
	"legal-assistant/internal/vectorstore"
)

// App holds the long-lived components shared by the API server and the CLI.
type App struct {
	Config   *config.Config
	Store    vectorstore.VectorStore
	Embedder *llm.EmbeddingsClient
	LLM      *llm.Client
	Metrics  *metrics.Collector
	Engine   rag.Engine

	ChatService    service.ChatService
	MetricsService service.MetricsService
	HealthService  service.HealthService

	closers []io.Closer
}

// Build creates every component from cfg. Nothing is contacted yet; see Bootstrap.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	store, closer, err := NewVectorStore(ctx, cfg.VectorStore)
	if err != nil {
		return nil, err
	}

	normalizer, err := NewNormalizer(cfg.AbbreviationsFile)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	policy := RetryPolicy(cfg.Retry)
	embedder := llm.NewEmbeddingsClient(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.EmbeddingModel, cfg.OpenAI.EmbeddingDimensions)
	generator := llm.NewClient(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.Temperature, cfg.OpenAI.MaxTokens)
	collector := metrics.NewCollector(cfg.Metrics.RecentFailures)

	retriever := rag.NewTieredRetriever(embedder, store, rag.RetrieverOptions{
		Collection:       cfg.VectorStore.Collection,
		Strict:           rag.TierParams{TopK: cfg.Retrieval.Strict.TopK, MinScore: cfg.Retrieval.Strict.MinScore},
		Relaxed:          rag.TierParams{TopK: cfg.Retrieval.Relaxed.TopK, MinScore: cfg.Retrieval.Relaxed.MinScore},
		MinStrictResults: cfg.Retrieval.MinStrictResults,
		Retry:            policy,
	})

	scorer := rag.DefaultConfidenceScorer()
	scorer.TargetCount = cfg.Retrieval.TargetChunkCount
	scorer.IncompleteFactor = cfg.Retrieval.IncompleteFactor

	engine := rag.NewEngine(normalizer, retriever, generator, collector, rag.EngineOptions{
		Assembler:    rag.ContextAssembler{MaxChars: cfg.Retrieval.MaxContextChars},
		Scorer:       scorer,
		Retry:        policy,
		QueryTimeout: cfg.Retry.QueryTimeout,
	})

	return &App{
		Config:         cfg,
		Store:          store,
		Embedder:       embedder,
		LLM:            generator,
		Metrics:        collector,
		Engine:         engine,
		ChatService:    service.NewChatService(engine),
		MetricsService: service.NewMetricsService(collector),
		HealthService:  service.NewHealthService(store, cfg.VectorStore.Collection, generator, cfg.Retry.CallTimeout),
		closers:        []io.Closer{closer},
	}, nil
}

// NewVectorStore opens the configured vector index backend.
func NewVectorStore(ctx context.Context, cfg config.VectorStoreConfig) (vectorstore.VectorStore, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendQdrant:
		store, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantAPIKey)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.BackendPgVector:
		store, err := vectorstore.NewPgVectorStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector backend %q", cfg.Backend)
	}
}

// NewNormalizer builds the query normalizer, replacing the built-in table when path is set.
func NewNormalizer(path string) (*query.Normalizer, error) {
	if path == "" {
		return query.MustDefault(), nil
	}
	table, err := query.LoadTable(path)
	if err != nil {
		return nil, err
	}
	return query.NewNormalizer(table)
}

// RetryPolicy maps retry settings to a policy that retries transient OpenAI and
// network errors only.
func RetryPolicy(cfg config.RetryConfig) retry.Policy {
	return retry.Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		Multiplier:  cfg.Multiplier,
		MaxDelay:    cfg.MaxDelay,
		Jitter:      0.2,
		CallTimeout: cfg.CallTimeout,
		Retryable:   llm.IsTransient,
	}
}

// Bootstrap ensures the collection exists with the configured dimension and checks
// that the embedding endpoint returns vectors of that size.
func (a *App) Bootstrap(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)
	dims := a.Config.OpenAI.EmbeddingDimensions
	collection := a.Config.VectorStore.Collection

	if err := a.Store.EnsureCollection(ctx, collection, dims); err != nil {
		return fmt.Errorf("failed to ensure collection %s: %w", collection, err)
	}
	logger.Info("Vector collection ready", "backend", a.Config.VectorStore.Backend, "collection", collection, "vector_size", dims)

	vectors, err := retry.Value(ctx, RetryPolicy(a.Config.Retry), "embed", func(ctx context.Context) ([][]float32, error) {
		return a.Embedder.EmbedTexts(ctx, []string{"test"})
	})
	if err != nil {
		return fmt.Errorf("failed to validate embedding client: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) != dims {
		got := 0
		if len(vectors) > 0 {
			got = len(vectors[0])
		}
		return fmt.Errorf("embedding vector size mismatch: expected %d, got %d", dims, got)
	}
	logger.Info("Embedding client validated", "model", a.Config.OpenAI.EmbeddingModel, "vector_size", dims)
	return nil
}

// Router returns the HTTP handler for the API server.
func (a *App) Router() http.Handler {
	return apphttp.NewRouter(&apphttp.Deps{
		ChatService:    a.ChatService,
		MetricsService: a.MetricsService,
		HealthService:  a.HealthService,
		APIPrefix:      a.Config.Server.APIPrefix,
		CORSOrigins:    a.Config.Server.CORSOrigins,
	})
}

// SeedOptions tunes a seeding run.
type SeedOptions struct {
	MinSectionRunes int
	MaxSectionRunes int
	BatchSize       int
	Prune           bool
}

// NewSeedPipeline opens the catalog and returns a pipeline writing to the app's store.
// The returned closer releases the catalog.
func (a *App) NewSeedPipeline(opts SeedOptions) (*indexer.Pipeline, io.Closer, error) {
	db, err := storage.New(a.Config.Catalog.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to migrate catalog: %w", err)
	}

	pipeline := indexer.NewPipeline(
		storage.NewDocumentRepo(db),
		storage.NewChunkRepo(db),
		a.Embedder,
		a.Store,
		indexer.NewSectionChunker(opts.MinSectionRunes, opts.MaxSectionRunes),
		indexer.PipelineOptions{
			Collection:     a.Config.VectorStore.Collection,
			EmbeddingModel: a.Config.OpenAI.EmbeddingModel,
			BatchSize:      opts.BatchSize,
			Prune:          opts.Prune,
			Retry:          RetryPolicy(a.Config.Retry),
		},
	)
	return pipeline, db, nil
}

// Close releases the vector store connection.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
