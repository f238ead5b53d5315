// Package dedupe drops repeated chunks within a document.
package dedupe

import (
	"context"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
)

var _ driven.PostProcessor = (*Processor)(nil)

// Processor keeps the first chunk for each content hash. Chunks without a
// hash are compared by text.
type Processor struct{}

// New creates a dedupe processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "dedupe"
}

// Process returns chunks with duplicates removed, order preserved.
func (p *Processor) Process(_ context.Context, _ *domain.SourceDocument, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if len(chunks) < 2 {
		return chunks, nil
	}

	seen := make(map[string]struct{}, len(chunks))
	out := chunks[:0]
	for _, c := range chunks {
		key := c.Metadata.ContentHash
		if key == "" {
			key = c.Text
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}
