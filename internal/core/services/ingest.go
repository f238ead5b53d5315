package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driving"
	"github.com/gitbook-qa/gitbook-qa/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// PipelineFactory builds the chunking pipeline for one run.
type PipelineFactory func(chunkSize, overlap int) (driven.PostProcessorPipeline, error)

// LimiterFactory builds the request pacer for one run.
type LimiterFactory func(delay time.Duration) driven.RateLimiter

// IngestService crawls a documentation site into the vector store.
// Pages are processed strictly one after another.
type IngestService struct {
	resolver  driven.SitemapResolver
	fetcher   driven.PageFetcher
	extractor driven.ContentExtractor
	embedder  driven.EmbeddingService
	store     driven.VectorStore
	pipeline  PipelineFactory
	limiter   LimiterFactory
	batchSize int
}

// IngestOption configures an IngestService.
type IngestOption func(*IngestService)

// WithLimiterFactory replaces the default token-bucket pacer.
func WithLimiterFactory(f LimiterFactory) IngestOption {
	return func(s *IngestService) {
		if f != nil {
			s.limiter = f
		}
	}
}

// WithEmbedBatchSize sets the embedding batch size.
func WithEmbedBatchSize(n int) IngestOption {
	return func(s *IngestService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// NewIngestService creates an ingestion service.
func NewIngestService(
	resolver driven.SitemapResolver,
	fetcher driven.PageFetcher,
	extractor driven.ContentExtractor,
	pipeline PipelineFactory,
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		resolver:  resolver,
		fetcher:   fetcher,
		extractor: extractor,
		pipeline:  pipeline,
		embedder:  embedder,
		store:     store,
		limiter:   defaultLimiter,
		batchSize: domain.DefaultEmbedBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// defaultLimiter allows the first request immediately, then one per delay.
func defaultLimiter(delay time.Duration) driven.RateLimiter {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return rate.NewLimiter(limit, 1)
}

// Ingest resolves, extracts, chunks, embeds and stores the site.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (s *IngestService) Ingest(
	ctx context.Context, opts domain.IngestOptions, progress domain.IngestProgress,
) (*domain.IngestReport, error) {
	started := time.Now()
	opts = opts.WithDefaults()
	report := &domain.IngestReport{}
	emit := func(ev domain.IngestEvent) {
		if progress != nil {
			progress(ev)
		}
	}

	if s.pipeline == nil {
		return report, fmt.Errorf("%w: no chunking pipeline", domain.ErrInvalidInput)
	}
	pipeline, err := s.pipeline(opts.ChunkSize, opts.ChunkOverlap)
	if err != nil {
		return report, err
	}

	// 1. Resolve URLs
	logger.Section("Resolve")
	urls, err := s.resolve(ctx, opts)
	if err != nil && ctx.Err() != nil {
		return report, ctx.Err()
	}
	report.URLs = len(urls)
	emit(domain.IngestEvent{Stage: domain.StageResolve, Total: len(urls), Err: err})

	if len(urls) == 0 {
		if opts.SitemapOnly {
			if err != nil {
				return report, fmt.Errorf("%w: %w", domain.ErrNoURLs, err)
			}
			return report, domain.ErrNoURLs
		}
		// Crawling without a sitemap is not supported; nothing to do.
		return report, fmt.Errorf("%w: sitemap yielded no pages", domain.ErrNoDocuments)
	}
	logger.Info("Resolved %d URLs", len(urls))

	// 2. Extract, filter and chunk each page
	logger.Section("Extract")
	selectors := domain.SelectorsFor(opts.Selector, opts.Strategy)
	limiter := s.limiter(opts.RequestDelay)

	var chunks []domain.Chunk
	documents := 0
	for i, url := range urls {
		if err := limiter.Wait(ctx); err != nil {
			return report, err
		}

		doc, err := s.extract(ctx, url, selectors)
		emit(domain.IngestEvent{Stage: domain.StageExtract, URL: url, Current: i + 1, Total: len(urls), Err: err})
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			logger.Warn("Skipping %s: %v", url, err)
			report.Failed++
			report.FailedURLs = append(report.FailedURLs, url)
			continue
		}
		report.Fetched++

		if n := len([]rune(strings.TrimSpace(doc.RawText))); n < opts.MinDocumentLength {
			logger.Debug("Filtered %s: %d characters", url, n)
			report.Filtered++
			continue
		}

		docChunks, err := pipeline.Process(ctx, doc)
		if err != nil {
			logger.Warn("Chunking %s failed: %v", url, err)
			report.Failed++
			report.FailedURLs = append(report.FailedURLs, url)
			continue
		}
		documents++
		chunks = append(chunks, docChunks...)
		emit(domain.IngestEvent{Stage: domain.StageChunk, URL: url, Current: len(chunks)})
	}

	if documents == 0 || len(chunks) == 0 {
		return report, fmt.Errorf("%w: %d pages failed, %d filtered", domain.ErrNoDocuments, report.Failed, report.Filtered)
	}
	report.Chunks = len(chunks)
	logger.Info("Split %d documents into %d chunks", documents, len(chunks))

	// 3. Embed and store
	logger.Section("Store")
	writer := NewIndexWriter(s.embedder, s.store,
		WithBatchSize(s.batchSize),
		WithBatchCallback(func(done, total int) {
			emit(domain.IngestEvent{Stage: domain.StageStore, Current: done, Total: total})
		}),
	)
	res, err := writer.WriteChunks(ctx, chunks, opts.Clear)
	report.Stored = res.Stored
	report.Skipped = res.Skipped
	report.Cleared = res.Cleared
	report.Duration = time.Since(started)
	if err != nil {
		return report, err
	}

	emit(domain.IngestEvent{Stage: domain.StageDone, Current: report.Stored, Total: report.Chunks})
	logger.Info("Ingestion complete: %d stored, %d skipped, %d failed pages", report.Stored, report.Skipped, report.Failed)
	return report, nil
}

func (s *IngestService) resolve(ctx context.Context, opts domain.IngestOptions) ([]string, error) {
	if s.resolver == nil {
		return nil, errors.New("no sitemap resolver")
	}
	urls, err := s.resolver.Resolve(ctx, opts.SitemapURL)
	if err != nil {
		logger.Warn("Sitemap resolution failed: %v", err)
	}
	return urls, err
}

func (s *IngestService) extract(ctx context.Context, url string, selectors []string) (*domain.SourceDocument, error) {
	page, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := s.extractor.Extract(ctx, page, selectors)
	if err != nil {
		return nil, err
	}
	logger.Debug("Extracted %s with selector %q", url, doc.SelectorUsed())
	return doc, nil
}
