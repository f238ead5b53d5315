// Package qdrant provides a vector store backed by a Qdrant collection,
// accessed over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
	"github.com/gitbook-qa/gitbook-qa/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Payload keys stored next to the chunk metadata.
const (
	payloadContent   = "content"
	payloadCreatedAt = "created_at"
)

// sampleScanLimit bounds how many points Sample reads before choosing.
const sampleScanLimit = 1000

// Store keeps records as points in one collection.
type Store struct {
	conn        *grpc.ClientConn
	points      qdrant.PointsClient
	collections qdrant.CollectionsClient
	collection  string
	dims        int
	now         func() time.Time
}

// Open dials addr (host:port of the gRPC listener, usually 6334).
// The connection is lazy; use Ping to check it.
func Open(addr, collection string, dimensions int) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, domain.NewStorageError(domain.StorageUnreachable, fmt.Errorf("could not connect to Qdrant: %w", err))
	}
	s := NewStore(conn, collection, dimensions)
	s.conn = conn
	return s, nil
}

// NewStore creates a store over an existing connection.
func NewStore(conn grpc.ClientConnInterface, collection string, dimensions int) *Store {
	if collection == "" {
		collection = domain.DefaultQdrantCollection
	}
	if dimensions <= 0 {
		dimensions = domain.DefaultEmbeddingDimensions
	}
	return &Store{
		points:      qdrant.NewPointsClient(conn),
		collections: qdrant.NewCollectionsClient(conn),
		collection:  collection,
		dims:        dimensions,
		now:         time.Now,
	}
}

// Dimensions is the embedding size the store expects.
func (s *Store) Dimensions() int {
	return s.dims
}

// Ping checks the collection exists with the expected vector size.
func (s *Store) Ping(ctx context.Context) error {
	info, err := s.collections.Get(ctx, &qdrant.GetCollectionInfoRequest{CollectionName: s.collection})
	if err != nil {
		return classify(err)
	}
	size := info.GetResult().GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if size != 0 && int(size) != s.dims {
		return domain.NewStorageError(domain.StorageDimensionMismatch,
			fmt.Errorf("collection %s holds %d-dimension vectors, model produces %d", s.collection, size, s.dims))
	}
	return nil
}

// EnsureCollection creates the collection and its payload indexes when missing.
// With recreate set, an existing collection is dropped first.
func (s *Store) EnsureCollection(ctx context.Context, recreate bool) error {
	if recreate {
		if _, err := s.collections.Delete(ctx, &qdrant.DeleteCollection{CollectionName: s.collection}); err != nil {
			if status.Code(err) != codes.NotFound {
				return classify(err)
			}
		}
	} else if _, err := s.collections.Get(ctx, &qdrant.GetCollectionInfoRequest{CollectionName: s.collection}); err == nil {
		return nil
	} else if status.Code(err) != codes.NotFound {
		return classify(err)
	}

	logger.Debug("Creating Qdrant collection %s (%d dimensions)", s.collection, s.dims)
	_, err := s.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return classify(err)
	}

	for field, kind := range map[string]qdrant.FieldType{
		domain.MetaContentHash: qdrant.FieldType_FieldTypeKeyword,
		payloadCreatedAt:       qdrant.FieldType_FieldTypeInteger,
	} {
		_, err := s.points.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      kind.Enum(),
			Wait:           proto.Bool(true),
		})
		if err != nil {
			return classify(err)
		}
	}
	return nil
}

// Insert upserts records in one request.
func (s *Store) Insert(ctx context.Context, records []domain.StoredRecord) error {
	if len(records) == 0 {
		return nil
	}

	created := s.now().UnixNano()
	points := make([]*qdrant.PointStruct, 0, len(records))
	for i := range records {
		r := &records[i]
		if len(r.Embedding) != s.dims {
			return domain.NewStorageError(domain.StorageDimensionMismatch,
				fmt.Errorf("record %d has %d dimensions, store expects %d", i, len(r.Embedding), s.dims))
		}
		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}

		payload := toPayload(r.Metadata)
		payload[payloadContent] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: r.Content}}
		// Keeps insertion order for Recent within one batch.
		payload[payloadCreatedAt] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: created + int64(i)}}

		points = append(points, &qdrant.PointStruct{
			Id:      &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: id}},
			Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: r.Embedding}}},
			Payload: payload,
		})
	}

	_, err := s.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           proto.Bool(true),
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// ExistingHashes returns the subset of hashes already stored.
func (s *Store) ExistingHashes(ctx context.Context, hashes []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(hashes) == 0 {
		return found, nil
	}

	filter := &qdrant.Filter{Must: []*qdrant.Condition{{
		ConditionOneOf: &qdrant.Condition_Field{Field: &qdrant.FieldCondition{
			Key: domain.MetaContentHash,
			Match: &qdrant.Match{MatchValue: &qdrant.Match_Keywords{
				Keywords: &qdrant.RepeatedStrings{Strings: hashes},
			}},
		}},
	}}}

	err := s.scroll(ctx, filter, 0, func(p *qdrant.RetrievedPoint) bool {
		if h := p.GetPayload()[domain.MetaContentHash].GetStringValue(); h != "" {
			found[h] = true
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// DeleteAll drops and recreates the collection.
func (s *Store) DeleteAll(ctx context.Context) error {
	return s.EnsureCollection(ctx, true)
}

// Match searches by cosine similarity. Qdrant reports cosine similarity
// as the score, which equals 1 - cosine distance.
func (s *Store) Match(ctx context.Context, query []float32, k int, threshold float64) ([]domain.StoredRecord, error) {
	if len(query) != s.dims {
		return nil, domain.NewStorageError(domain.StorageDimensionMismatch,
			fmt.Errorf("query has %d dimensions, store expects %d", len(query), s.dims))
	}
	if k <= 0 {
		return nil, nil
	}

	scoreThreshold := float32(threshold)
	resp, err := s.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         query,
		Limit:          uint64(k),
		ScoreThreshold: &scoreThreshold,
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, classify(err)
	}

	out := make([]domain.StoredRecord, 0, len(resp.GetResult()))
	for _, hit := range resp.GetResult() {
		// Score threshold is inclusive on the server.
		if float64(hit.GetScore()) <= threshold {
			continue
		}
		r := fromPayload(hit.GetId(), hit.GetPayload())
		r.Similarity = float64(hit.GetScore())
		out = append(out, r)
	}
	return out, nil
}

// Recent returns the newest records by insertion time.
func (s *Store) Recent(ctx context.Context, n int) ([]domain.StoredRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	limit := uint32(n)
	resp, err := s.points.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Limit:          &limit,
		WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
		OrderBy: &qdrant.OrderBy{
			Key:       payloadCreatedAt,
			Direction: qdrant.Direction_Desc.Enum(),
		},
	})
	if err != nil {
		return nil, classify(err)
	}

	out := make([]domain.StoredRecord, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		out = append(out, fromPayload(p.GetId(), p.GetPayload()))
	}
	return out, nil
}

// Sample returns up to n records chosen at random from the first
// sampleScanLimit points.
func (s *Store) Sample(ctx context.Context, n int) ([]domain.StoredRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	var all []domain.StoredRecord
	err := s.scroll(ctx, nil, sampleScanLimit, func(p *qdrant.RetrievedPoint) bool {
		all = append(all, fromPayload(p.GetId(), p.GetPayload()))
		return true
	})
	if err != nil {
		return nil, err
	}
	if n > len(all) {
		n = len(all)
	}
	out := make([]domain.StoredRecord, 0, n)
	for _, i := range rand.Perm(len(all))[:n] {
		out = append(out, all[i])
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	resp, err := s.points.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          proto.Bool(true),
	})
	if err != nil {
		return 0, classify(err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// Close closes the connection when the store opened it.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// scroll pages through points matching filter. total bounds the points read
// (0 means no bound); visit returning false stops early.
func (s *Store) scroll(ctx context.Context, filter *qdrant.Filter, total int, visit func(*qdrant.RetrievedPoint) bool) error {
	const pageSize = 256
	var offset *qdrant.PointId
	seen := 0
	for {
		limit := uint32(pageSize)
		resp, err := s.points.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Filter:         filter,
			Offset:         offset,
			Limit:          &limit,
			WithPayload:    &qdrant.WithPayloadSelector{SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true}},
		})
		if err != nil {
			return classify(err)
		}
		for _, p := range resp.GetResult() {
			if !visit(p) {
				return nil
			}
			seen++
			if total > 0 && seen >= total {
				return nil
			}
		}
		offset = resp.GetNextPageOffset()
		if offset == nil || len(resp.GetResult()) == 0 {
			return nil
		}
	}
}

// classify maps gRPC status codes to storage error kinds.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se *domain.StorageError
	if errors.As(err, &se) {
		return err
	}
	st, ok := status.FromError(err)
	if !ok {
		return domain.NewStorageError(domain.StorageUnreachable, err)
	}
	msg := strings.ToLower(st.Message())
	switch st.Code() {
	case codes.NotFound:
		return domain.NewStorageError(domain.StorageCollectionMissing, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.Unauthenticated, codes.PermissionDenied:
		return domain.NewStorageError(domain.StorageUnreachable, err)
	case codes.InvalidArgument:
		if strings.Contains(msg, "dimension") {
			return domain.NewStorageError(domain.StorageDimensionMismatch, err)
		}
		if strings.Contains(msg, "index") {
			return domain.NewStorageError(domain.StorageSchemaMismatch, err)
		}
	}
	return fmt.Errorf("qdrant: %w", err)
}

// toPayload converts record metadata to Qdrant values.
func toPayload(meta map[string]any) map[string]*qdrant.Value {
	payload := make(map[string]*qdrant.Value, len(meta)+2)
	for key, val := range meta {
		switch v := val.(type) {
		case string:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
		case int:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(v)}}
		case int64:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: v}}
		case float64:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: v}}
		case bool:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: v}}
		case nil:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_NullValue{}}
		default:
			payload[key] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: fmt.Sprint(v)}}
		}
	}
	return payload
}

// fromPayload rebuilds a record from a point.
func fromPayload(id *qdrant.PointId, payload map[string]*qdrant.Value) domain.StoredRecord {
	r := domain.StoredRecord{Metadata: make(map[string]any, len(payload))}
	if u, ok := id.GetPointIdOptions().(*qdrant.PointId_Uuid); ok {
		r.ID = u.Uuid
	} else if id != nil {
		r.ID = fmt.Sprint(id.GetNum())
	}

	for key, v := range payload {
		switch key {
		case payloadContent:
			r.Content = v.GetStringValue()
			continue
		case payloadCreatedAt:
			continue
		}
		switch kind := v.GetKind().(type) {
		case *qdrant.Value_StringValue:
			r.Metadata[key] = kind.StringValue
		case *qdrant.Value_IntegerValue:
			r.Metadata[key] = kind.IntegerValue
		case *qdrant.Value_DoubleValue:
			r.Metadata[key] = kind.DoubleValue
		case *qdrant.Value_BoolValue:
			r.Metadata[key] = kind.BoolValue
		}
	}
	return r
}
