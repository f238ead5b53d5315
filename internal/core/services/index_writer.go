package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
	"github.com/gitbook-qa/gitbook-qa/internal/logger"
)

// WriteResult counts what IndexWriter did with a set of chunks.
type WriteResult struct {
	Stored  int
	Skipped int
	Cleared bool
}

// IndexWriter embeds chunks and writes them to the vector store.
type IndexWriter struct {
	embedder  driven.EmbeddingService
	store     driven.VectorStore
	batchSize int
	onBatch   func(done, total int)
}

// IndexWriterOption configures an IndexWriter.
type IndexWriterOption func(*IndexWriter)

// WithBatchSize sets how many chunks are embedded and inserted together.
func WithBatchSize(n int) IndexWriterOption {
	return func(w *IndexWriter) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithBatchCallback is called after each stored batch.
func WithBatchCallback(fn func(done, total int)) IndexWriterOption {
	return func(w *IndexWriter) {
		w.onBatch = fn
	}
}

// NewIndexWriter creates a writer for the given embedder and store.
func NewIndexWriter(embedder driven.EmbeddingService, store driven.VectorStore, opts ...IndexWriterOption) *IndexWriter {
	w := &IndexWriter{
		embedder:  embedder,
		store:     store,
		batchSize: domain.DefaultEmbedBatchSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write stores chunks and returns the number of records written.
func (w *IndexWriter) Write(ctx context.Context, chunks []domain.Chunk, clear bool) (int, error) {
	res, err := w.WriteChunks(ctx, chunks, clear)
	return res.Stored, err
}

// WriteChunks clears the store when asked, skips chunks whose content hash
// is already stored, then embeds and inserts the rest batch by batch.
// A failing batch is reported with the count written before it.
func (w *IndexWriter) WriteChunks(ctx context.Context, chunks []domain.Chunk, clear bool) (WriteResult, error) {
	var res WriteResult

	if w.embedder == nil {
		return res, domain.ErrEmbeddingUnavailable
	}
	if w.store == nil {
		return res, domain.ErrVectorStoreUnavailable
	}

	if want, got := w.store.Dimensions(), w.embedder.Dimensions(); want > 0 && got > 0 && want != got {
		return res, domain.NewStorageError(domain.StorageDimensionMismatch,
			fmt.Errorf("embedding model %s produces %d dimensions, store expects %d", w.embedder.ModelName(), got, want))
	}

	if clear {
		logger.Info("Clearing existing records")
		if err := w.store.DeleteAll(ctx); err != nil {
			return res, fmt.Errorf("clear vector store: %w", err)
		}
		res.Cleared = true
	}

	pending, skipped, err := w.filterExisting(ctx, chunks, clear)
	if err != nil {
		return res, err
	}
	res.Skipped = skipped
	if skipped > 0 {
		logger.Info("Skipping %d chunks already stored", skipped)
	}

	for start := 0; start < len(pending); start += w.batchSize {
		end := min(start+w.batchSize, len(pending))
		batch := pending[start:end]

		records, err := w.embed(ctx, batch)
		if err != nil {
			var serr *domain.StorageError
			if res.Stored > 0 || errors.As(err, &serr) {
				err = withWritten(err, res.Stored)
			}
			return res, err
		}

		if err := w.store.Insert(ctx, records); err != nil {
			return res, withWritten(err, res.Stored)
		}
		res.Stored += len(records)
		logger.Debug("Stored batch %d-%d of %d", start+1, end, len(pending))

		if w.onBatch != nil {
			w.onBatch(res.Stored, len(pending))
		}
	}

	return res, nil
}

// filterExisting drops chunks whose hash is already stored or repeated
// within this write.
func (w *IndexWriter) filterExisting(ctx context.Context, chunks []domain.Chunk, cleared bool) ([]domain.Chunk, int, error) {
	hashes := make([]string, 0, len(chunks))
	for i := range chunks {
		if chunks[i].Metadata.ContentHash == "" {
			chunks[i].Metadata.ContentHash = domain.ContentHash(chunks[i].Metadata.Source, chunks[i].Text)
		}
		hashes = append(hashes, chunks[i].Metadata.ContentHash)
	}

	existing := map[string]bool{}
	if !cleared && len(hashes) > 0 {
		var err error
		existing, err = w.store.ExistingHashes(ctx, hashes)
		if err != nil {
			return nil, 0, fmt.Errorf("check existing records: %w", err)
		}
	}

	out := make([]domain.Chunk, 0, len(chunks))
	seen := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		h := c.Metadata.ContentHash
		if existing[h] || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, c)
	}
	return out, len(chunks) - len(out), nil
}

func (w *IndexWriter) embed(ctx context.Context, batch []domain.Chunk) ([]domain.StoredRecord, error) {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	vectors, err := w.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	if len(vectors) != len(batch) {
		return nil, fmt.Errorf("%w: %d embeddings for %d texts", domain.ErrProvider, len(vectors), len(batch))
	}

	records := make([]domain.StoredRecord, len(batch))
	for i, c := range batch {
		if want := w.store.Dimensions(); want > 0 && len(vectors[i]) != want {
			return nil, domain.NewStorageError(domain.StorageDimensionMismatch,
				fmt.Errorf("embedding has %d dimensions, store expects %d", len(vectors[i]), want))
		}
		records[i] = domain.StoredRecord{
			ID:        uuid.New().String(),
			Content:   c.Text,
			Metadata:  c.Metadata.Map(),
			Embedding: vectors[i],
		}
	}
	return records, nil
}

// withWritten records how many rows were stored before err.
func withWritten(err error, written int) error {
	var serr *domain.StorageError
	if errors.As(err, &serr) {
		serr.Written = written
		return serr
	}
	return &domain.StorageError{Kind: domain.StorageWriteFailed, Written: written, Err: err}
}
