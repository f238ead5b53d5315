package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store keeps records in the documents table and searches them through
// the match_documents function.
type Store struct {
	db   *DB
	dims int
}

// NewStore creates a store over an open connection.
func NewStore(db *DB, dimensions int) *Store {
	if dimensions <= 0 {
		dimensions = domain.DefaultEmbeddingDimensions
	}
	return &Store{db: db, dims: dimensions}
}

// Open connects to url and returns a store.
func Open(ctx context.Context, url string, dimensions int) (*Store, error) {
	db, err := Connect(ctx, DefaultConfig(url))
	if err != nil {
		return nil, err
	}
	return NewStore(db, dimensions), nil
}

// DB returns the underlying connection pool.
func (s *Store) DB() *DB {
	return s.db
}

// Dimensions is the embedding size the store expects.
func (s *Store) Dimensions() int {
	return s.dims
}

// Ping checks the server, the table columns, the embedding size and the
// similarity function, in that order.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return domain.NewStorageError(domain.StorageUnreachable, err)
	}

	// Fails with undefined_table or undefined_column when the schema is off.
	rows, err := s.db.QueryContext(ctx, `SELECT id, content, metadata, embedding FROM documents LIMIT 0`)
	if err != nil {
		return classify(fmt.Errorf("check documents table: %w", err))
	}
	rows.Close()

	var typmod int
	err = s.db.QueryRowContext(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = 'documents'::regclass AND attname = 'embedding'
	`).Scan(&typmod)
	if err != nil {
		return classify(fmt.Errorf("check embedding column: %w", err))
	}
	if typmod > 0 && typmod != s.dims {
		return domain.NewStorageError(domain.StorageDimensionMismatch,
			fmt.Errorf("embedding column is vector(%d), model produces %d", typmod, s.dims))
	}

	var fn int
	err = s.db.QueryRowContext(ctx, `SELECT count(*) FROM pg_proc WHERE proname = 'match_documents'`).Scan(&fn)
	if err != nil {
		return classify(fmt.Errorf("check match_documents: %w", err))
	}
	if fn == 0 {
		return domain.NewStorageError(domain.StorageFunctionMissing, errors.New("function match_documents does not exist"))
	}
	return nil
}

// Insert writes records in one transaction.
func (s *Store) Insert(ctx context.Context, records []domain.StoredRecord) error {
	if len(records) == 0 {
		return nil
	}
	for i := range records {
		if len(records[i].Embedding) != s.dims {
			return domain.NewStorageError(domain.StorageDimensionMismatch,
				fmt.Errorf("record %d has %d dimensions, store expects %d", i, len(records[i].Embedding), s.dims))
		}
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO documents (id, content, metadata, embedding)
			VALUES ($1, $2, $3, $4)
		`)
		if err != nil {
			return classify(fmt.Errorf("prepare insert: %w", err))
		}
		defer stmt.Close()

		for i := range records {
			r := &records[i]
			id := r.ID
			if id == "" {
				id = uuid.New().String()
			}
			meta, err := json.Marshal(r.Metadata)
			if err != nil {
				return fmt.Errorf("marshal metadata: %w", err)
			}
			if _, err := stmt.ExecContext(ctx, id, r.Content, meta, pgvector.NewVector(r.Embedding)); err != nil {
				return classify(fmt.Errorf("insert record %d: %w", i, err))
			}
		}
		return nil
	})
}

// ExistingHashes returns the subset of hashes already stored.
func (s *Store) ExistingHashes(ctx context.Context, hashes []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(hashes) == 0 {
		return found, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT metadata->>'content_hash' FROM documents
		WHERE metadata->>'content_hash' = ANY($1)
	`, pq.Array(hashes))
	if err != nil {
		return nil, classify(fmt.Errorf("query hashes: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var h sql.NullString
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan hash: %w", err)
		}
		if h.Valid {
			found[h.String] = true
		}
	}
	return found, rows.Err()
}

// DeleteAll removes every record.
func (s *Store) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return classify(fmt.Errorf("delete documents: %w", err))
	}
	return nil
}

// Match calls match_documents and returns records most similar first.
func (s *Store) Match(ctx context.Context, query []float32, k int, threshold float64) ([]domain.StoredRecord, error) {
	if len(query) != s.dims {
		return nil, domain.NewStorageError(domain.StorageDimensionMismatch,
			fmt.Errorf("query has %d dimensions, store expects %d", len(query), s.dims))
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, metadata, similarity FROM match_documents($1, $2, $3)
	`, pgvector.NewVector(query), threshold, k)
	if err != nil {
		return nil, classify(fmt.Errorf("match documents: %w", err))
	}
	defer rows.Close()

	var out []domain.StoredRecord
	for rows.Next() {
		var r domain.StoredRecord
		var content sql.NullString
		var meta []byte
		if err := rows.Scan(&r.ID, &content, &meta, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		r.Content = content.String
		if r.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, classify(rows.Err())
}

// Recent returns the newest records. Tables created without created_at
// fall back to an unordered read.
func (s *Store) Recent(ctx context.Context, n int) ([]domain.StoredRecord, error) {
	records, err := s.list(ctx, `SELECT id, content, metadata FROM documents ORDER BY created_at DESC LIMIT $1`, n)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == codeUndefinedColumn {
		return s.list(ctx, `SELECT id, content, metadata FROM documents LIMIT $1`, n)
	}
	return records, classify(err)
}

// Sample returns up to n records chosen at random.
func (s *Store) Sample(ctx context.Context, n int) ([]domain.StoredRecord, error) {
	records, err := s.list(ctx, `SELECT id, content, metadata FROM documents ORDER BY random() LIMIT $1`, n)
	return records, classify(err)
}

func (s *Store) list(ctx context.Context, query string, n int) ([]domain.StoredRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StoredRecord
	for rows.Next() {
		var r domain.StoredRecord
		var content sql.NullString
		var meta []byte
		if err := rows.Scan(&r.ID, &content, &meta); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Content = content.String
		if r.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, classify(fmt.Errorf("count documents: %w", err))
	}
	return n, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func decodeMetadata(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}
