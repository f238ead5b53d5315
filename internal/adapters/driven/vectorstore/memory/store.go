// Package memory implements an in-process vector store using exact cosine search.
package memory

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store holds records in insertion order.
type Store struct {
	mu      sync.RWMutex
	dims    int
	records []domain.StoredRecord
	rnd     *rand.Rand
}

// Option configures a Store.
type Option func(*Store)

// WithSeed makes Sample deterministic.
func WithSeed(seed uint64) Option {
	return func(s *Store) {
		s.rnd = rand.New(rand.NewPCG(seed, seed))
	}
}

// New creates an empty store for vectors of the given size.
func New(dimensions int, opts ...Option) *Store {
	if dimensions <= 0 {
		dimensions = domain.DefaultEmbeddingDimensions
	}
	s := &Store{
		dims: dimensions,
		rnd:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dimensions returns the expected vector size.
func (s *Store) Dimensions() int {
	return s.dims
}

// Insert appends records. Nothing is written if any record is invalid.
func (s *Store) Insert(_ context.Context, records []domain.StoredRecord) error {
	for i := range records {
		if n := len(records[i].Embedding); n != s.dims {
			return domain.NewStorageError(domain.StorageDimensionMismatch,
				fmt.Errorf("record %d has %d dimensions, store expects %d", i, n, s.dims))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		r.Similarity = 0
		s.records = append(s.records, copyRecord(r))
	}
	return nil
}

// ExistingHashes reports which of the given content hashes are stored.
func (s *Store) ExistingHashes(_ context.Context, hashes []string) (map[string]bool, error) {
	want := make(map[string]bool, len(hashes))
	for _, h := range hashes {
		want[h] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make(map[string]bool)
	for i := range s.records {
		if h := s.records[i].ContentHash(); h != "" && want[h] {
			found[h] = true
		}
	}
	return found, nil
}

// DeleteAll removes every record.
func (s *Store) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}

// Match returns up to k records whose similarity exceeds threshold.
func (s *Store) Match(_ context.Context, query []float32, k int, threshold float64) ([]domain.StoredRecord, error) {
	if len(query) != s.dims {
		return nil, domain.NewStorageError(domain.StorageDimensionMismatch,
			fmt.Errorf("query has %d dimensions, store expects %d", len(query), s.dims))
	}
	if k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []domain.StoredRecord
	for _, r := range s.records {
		sim := CosineSimilarity(query, r.Embedding)
		if sim <= threshold {
			continue
		}
		hit := copyRecord(r)
		hit.Similarity = sim
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Recent returns up to n records, newest first.
func (s *Store) Recent(_ context.Context, n int) ([]domain.StoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StoredRecord, 0, min(n, len(s.records)))
	for i := len(s.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, copyRecord(s.records[i]))
	}
	return out, nil
}

// Sample returns up to n distinct records chosen uniformly at random.
func (s *Store) Sample(_ context.Context, n int) ([]domain.StoredRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || len(s.records) == 0 {
		return nil, nil
	}
	idx := s.rnd.Perm(len(s.records))
	if n < len(idx) {
		idx = idx[:n]
	}
	out := make([]domain.StoredRecord, 0, len(idx))
	for _, i := range idx {
		out = append(out, copyRecord(s.records[i]))
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// CosineSimilarity returns the cosine of the angle between a and b,
// or 0 when either vector is zero or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func copyRecord(r domain.StoredRecord) domain.StoredRecord {
	if r.Metadata != nil {
		m := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			m[k] = v
		}
		r.Metadata = m
	}
	r.Embedding = append([]float32(nil), r.Embedding...)
	return r
}
