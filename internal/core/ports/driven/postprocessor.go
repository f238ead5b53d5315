package driven

import (
	"context"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

// PostProcessor turns an extracted document into chunks or refines chunks.
// PostProcessors are chained in a pipeline (e.g., chunking, hashing, dedupe).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document and returns chunks.
	// If the processor modifies chunks (e.g., hashing), it receives and returns chunks.
	// If the processor creates chunks (e.g., chunker), it receives nil and returns new chunks.
	Process(ctx context.Context, doc *domain.SourceDocument, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order.
	// Returns the final chunks after all processing.
	Process(ctx context.Context, doc *domain.SourceDocument) ([]domain.Chunk, error)
}
