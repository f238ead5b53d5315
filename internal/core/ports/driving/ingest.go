package driving

import (
	"context"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

// IngestService crawls a documentation site into the vector store.
type IngestService interface {
	// Ingest runs one full ingestion. Page failures are counted in the
	// report; the run aborts only when nothing usable remains or storage fails.
	Ingest(ctx context.Context, opts domain.IngestOptions, progress domain.IngestProgress) (*domain.IngestReport, error)
}
