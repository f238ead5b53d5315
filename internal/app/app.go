// Package app assembles the stores, adapters and services for one process.
//
// The CLI builds a single App from the resolved configuration and hands it
// to every command; nothing in the core reaches for package-level state.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driven/ai"
	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driven/storage/jsonfile"
	memhistory "github.com/gitbook-qa/gitbook-qa/internal/adapters/driven/storage/memory"
	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driven/storage/sqlite"
	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driven/vectorstore/memory"
	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driven/vectorstore/postgres"
	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driven/vectorstore/qdrant"
	"github.com/gitbook-qa/gitbook-qa/internal/config"
	"github.com/gitbook-qa/gitbook-qa/internal/connectors/gitbook"
	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driving"
	"github.com/gitbook-qa/gitbook-qa/internal/core/services"
	"github.com/gitbook-qa/gitbook-qa/internal/logger"
	"github.com/gitbook-qa/gitbook-qa/internal/normalisers/html"
	"github.com/gitbook-qa/gitbook-qa/internal/postprocessors"
)

// SQLiteHistorySuffix selects the SQLite history backend.
const SQLiteHistorySuffix = ".db"

// App holds everything the driving adapters need.
type App struct {
	Config *config.Config

	Store    driven.VectorStore
	Embedder driven.EmbeddingService
	LLM      driven.LLMService

	Ingest  driving.IngestService
	Chat    driving.ChatService
	Suggest driving.SuggestionService
	History driving.HistoryService

	// Throttle paces page requests during ingestion.
	Throttle *gitbook.Throttle

	// Warnings lists non-fatal startup problems, such as an unreachable
	// secondary chat model.
	Warnings []string

	closers []func() error
}

// Option customises New.
type Option func(*options)

type options struct {
	validate   bool
	store      driven.VectorStore
	embedder   driven.EmbeddingService
	llms       []driven.LLMService
	history    driven.HistoryStore
	httpClient *http.Client
}

// WithoutValidation skips the provider connectivity checks.
func WithoutValidation() Option {
	return func(o *options) {
		o.validate = false
	}
}

// WithVectorStore uses store instead of opening the configured one.
func WithVectorStore(store driven.VectorStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithAI uses the given embedder and chat models instead of the configured providers.
func WithAI(embedder driven.EmbeddingService, llms ...driven.LLMService) Option {
	return func(o *options) {
		o.embedder = embedder
		o.llms = llms
	}
}

// WithHistoryStore uses store instead of the configured history file.
func WithHistoryStore(store driven.HistoryStore) Option {
	return func(o *options) {
		o.history = store
	}
}

// WithHTTPClient sets the client used to crawl documentation pages.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// New validates cfg and builds the application. Callers must Close it.
//
//nolint:gocyclo // Sequential wiring with cleanup on each failure.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := &options{validate: true}
	for _, opt := range opts {
		opt(o)
	}

	if o.embedder == nil || o.store == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	a := &App{Config: cfg}

	logger.Section("AI Services")
	if o.embedder != nil {
		a.Embedder = o.embedder
	} else {
		result, err := ai.Init(ctx, ai.Options{
			Embedding: cfg.Embedding,
			Primary:   cfg.LLM,
			Secondary: cfg.Secondary,
			Validate:  o.validate,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { result.Close(); return nil })
		a.Embedder = result.EmbeddingService
		o.llms = result.LLMServices
		a.Warnings = append(a.Warnings, result.Warnings...)
	}
	if a.Embedder == nil {
		a.Close()
		return nil, fmt.Errorf("%w: no embedding model configured", domain.ErrEmbeddingUnavailable)
	}
	if len(o.llms) > 0 {
		a.LLM = services.NewFallbackLLM(o.llms...)
		logger.Debug("Chat model: %s", a.LLM.ModelName())
	}
	logger.Debug("Embedding model: %s (%d dimensions)", a.Embedder.ModelName(), a.Embedder.Dimensions())

	logger.Section("Vector Store")
	if o.store != nil {
		a.Store = o.store
	} else {
		store, err := OpenVectorStore(ctx, cfg, a.Embedder.Dimensions())
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		a.Store = store
	}

	history := o.history
	if history == nil {
		h, closeFn, err := OpenHistoryStore(cfg.HistoryFile)
		if err != nil {
			logger.Warn("History file unusable, keeping conversations in memory: %v", err)
			a.Warnings = append(a.Warnings, fmt.Sprintf("conversation history not persisted: %v", err))
			history = memhistory.NewHistoryStore()
		} else {
			history = h
			a.closers = append(a.closers, closeFn)
		}
	}
	if history != nil {
		a.History = services.NewHistoryService(history)
	}

	a.Throttle = gitbook.NewThrottle(cfg.Ingest.RequestDelay)
	client := gitbook.NewClient(gitbook.Config{
		UserAgent:  cfg.UserAgent,
		HTTPClient: o.httpClient,
		Throttle:   a.Throttle,
	})
	throttle := a.Throttle
	a.Ingest = services.NewIngestService(
		gitbook.NewSitemapResolver(client),
		client,
		html.New(),
		func(chunkSize, overlap int) (driven.PostProcessorPipeline, error) {
			return postprocessors.NewIngestPipeline(chunkSize, overlap)
		},
		a.Embedder,
		a.Store,
		services.WithLimiterFactory(func(delay time.Duration) driven.RateLimiter {
			throttle.SetDelay(delay)
			return throttle
		}),
	)

	a.Chat = services.NewChatService(a.LLM, a.Embedder, a.Store,
		services.WithRetrieval(cfg.Retrieval),
		services.WithTemperature(float64(cfg.LLM.Temperature)),
		services.WithTargetName(cfg.TargetName),
	)
	a.Suggest = services.NewSuggestionService(a.LLM, a.Embedder, a.Store,
		services.WithKeywords(cfg.SuggestKeywords...),
		services.WithSuggestionTarget(cfg.TargetName),
	)

	return a, nil
}

// Close releases stores and provider clients in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenVectorStore opens and probes the configured vector store.
// A Qdrant collection is created on first use; Postgres tables are not.
func OpenVectorStore(ctx context.Context, cfg *config.Config, dimensions int) (driven.VectorStore, error) {
	switch cfg.VectorStore {
	case domain.VectorStorePostgres, "":
		store, err := postgres.Open(ctx, cfg.DatabaseURL, dimensions)
		if err != nil {
			return nil, err
		}
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, err
		}
		logger.Info("Connected to Postgres vector store")
		return store, nil

	case domain.VectorStoreQdrant:
		store, err := qdrant.Open(cfg.QdrantAddr, cfg.QdrantCollection, dimensions)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureCollection(ctx, false); err != nil {
			store.Close()
			return nil, err
		}
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, err
		}
		logger.Info("Connected to Qdrant collection %s", cfg.QdrantCollection)
		return store, nil

	case domain.VectorStoreMemory:
		logger.Warn("Using the in-memory vector store; nothing is kept after exit")
		return memory.New(dimensions), nil

	default:
		return nil, fmt.Errorf("%w: unknown vector store %q", domain.ErrInvalidInput, cfg.VectorStore)
	}
}

// OpenHistoryStore picks the history backend from the file name:
// SQLite for *.db, the JSON file otherwise.
func OpenHistoryStore(path string) (driven.HistoryStore, func() error, error) {
	if path == "" {
		path = domain.DefaultHistoryFile
	}
	if strings.HasSuffix(strings.ToLower(path), SQLiteHistorySuffix) {
		store, err := sqlite.NewHistoryStore(path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}
	return jsonfile.New(path), func() error { return nil }, nil
}

// ApplySchema prepares the configured vector store for ingestion.
// With drop set, existing data is removed first.
func ApplySchema(ctx context.Context, cfg *config.Config, dimensions int, drop bool) error {
	if dimensions <= 0 {
		dimensions = domain.DefaultEmbeddingDimensions
	}
	switch cfg.VectorStore {
	case domain.VectorStorePostgres, "":
		if err := cfg.ValidateDatabase(); err != nil {
			return err
		}
		db, err := postgres.Connect(ctx, postgres.DefaultConfig(cfg.DatabaseURL))
		if err != nil {
			return err
		}
		defer db.Close()
		return db.ApplySchema(ctx, dimensions, drop)

	case domain.VectorStoreQdrant:
		if cfg.QdrantAddr == "" {
			return &config.MissingError{Names: []string{config.EnvQdrantAddr}}
		}
		store, err := qdrant.Open(cfg.QdrantAddr, cfg.QdrantCollection, dimensions)
		if err != nil {
			return err
		}
		defer store.Close()
		return store.EnsureCollection(ctx, drop)

	case domain.VectorStoreMemory:
		return nil

	default:
		return fmt.Errorf("%w: unknown vector store %q", domain.ErrInvalidInput, cfg.VectorStore)
	}
}
