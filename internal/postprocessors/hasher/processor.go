// Package hasher stamps each chunk with its content hash.
package hasher

import (
	"context"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
)

var _ driven.PostProcessor = (*Processor)(nil)

// Processor sets ChunkMetadata.ContentHash from the source URL and text.
type Processor struct{}

// New creates a hashing processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "hasher"
}

// Process hashes chunks in place and returns them.
func (p *Processor) Process(_ context.Context, _ *domain.SourceDocument, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for i := range chunks {
		chunks[i].Metadata.ContentHash = domain.ContentHash(chunks[i].Metadata.Source, chunks[i].Text)
	}
	return chunks, nil
}
