package driven

import (
	"context"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

// VectorStore persists records with embeddings and answers similarity queries.
// Failures that need operator action are returned as *domain.StorageError.
type VectorStore interface {
	// Dimensions is the embedding size the store expects.
	Dimensions() int

	// Insert writes records atomically: either all are stored or none.
	Insert(ctx context.Context, records []domain.StoredRecord) error

	// ExistingHashes returns the subset of content hashes already stored.
	ExistingHashes(ctx context.Context, hashes []string) (map[string]bool, error)

	// DeleteAll removes every record.
	DeleteAll(ctx context.Context) error

	// Match returns up to k records with similarity above threshold,
	// most similar first. Similarity is 1 - cosine distance.
	Match(ctx context.Context, query []float32, k int, threshold float64) ([]domain.StoredRecord, error)

	// Recent returns up to n most recently inserted records.
	Recent(ctx context.Context, n int) ([]domain.StoredRecord, error)

	// Sample returns up to n records chosen at random.
	Sample(ctx context.Context, n int) ([]domain.StoredRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Ping checks the store is reachable and its schema is usable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
