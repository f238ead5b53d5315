package qdrant

import (
	"context"
	"errors"
	"math"
	"net"
	"sort"
	"sync"
	"testing"
	"time"

	qdrant "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

// fakeQdrant is an in-process stand-in for the Qdrant gRPC API,
// covering the calls the store makes.
type fakeQdrant struct {
	mu      sync.Mutex
	exists  bool
	size    uint64
	points  map[string]*qdrant.PointStruct
	indexes []string
	unavail bool
}

type fakePoints struct {
	qdrant.UnimplementedPointsServer
	*fakeQdrant
}

type fakeCollections struct {
	qdrant.UnimplementedCollectionsServer
	*fakeQdrant
}

func (f *fakeQdrant) check() error {
	if f.unavail {
		return status.Error(codes.Unavailable, "connection refused")
	}
	if !f.exists {
		return status.Error(codes.NotFound, "Collection `documents` doesn't exist!")
	}
	return nil
}

func (c fakeCollections) Get(_ context.Context, _ *qdrant.GetCollectionInfoRequest) (*qdrant.GetCollectionInfoResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return nil, err
	}
	return &qdrant.GetCollectionInfoResponse{Result: &qdrant.CollectionInfo{
		Config: &qdrant.CollectionConfig{Params: &qdrant.CollectionParams{
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{Size: c.size, Distance: qdrant.Distance_Cosine}),
		}},
	}}, nil
}

func (c fakeCollections) Create(_ context.Context, req *qdrant.CreateCollection) (*qdrant.CollectionOperationResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exists = true
	c.size = req.GetVectorsConfig().GetParams().GetSize()
	c.points = map[string]*qdrant.PointStruct{}
	return &qdrant.CollectionOperationResponse{Result: true}, nil
}

func (c fakeCollections) Delete(_ context.Context, _ *qdrant.DeleteCollection) (*qdrant.CollectionOperationResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.exists {
		return nil, status.Error(codes.NotFound, "missing")
	}
	c.exists = false
	c.points = nil
	return &qdrant.CollectionOperationResponse{Result: true}, nil
}

func (p fakePoints) CreateFieldIndex(_ context.Context, req *qdrant.CreateFieldIndexCollection) (*qdrant.PointsOperationResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.indexes = append(p.indexes, req.GetFieldName())
	return &qdrant.PointsOperationResponse{}, nil
}

func (p fakePoints) Upsert(_ context.Context, req *qdrant.UpsertPoints) (*qdrant.PointsOperationResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(); err != nil {
		return nil, err
	}
	for _, pt := range req.GetPoints() {
		if got := uint64(len(pt.GetVectors().GetVector().GetData())); got != p.size {
			return nil, status.Errorf(codes.InvalidArgument, "Wrong input: Vector dimension error: expected dim: %d, got %d", p.size, got)
		}
	}
	for _, pt := range req.GetPoints() {
		p.points[pt.GetId().GetUuid()] = pt
	}
	return &qdrant.PointsOperationResponse{}, nil
}

func (p fakePoints) Search(_ context.Context, req *qdrant.SearchPoints) (*qdrant.SearchResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(); err != nil {
		return nil, err
	}
	var hits []*qdrant.ScoredPoint
	for _, pt := range p.points {
		score := cosine(req.GetVector(), pt.GetVectors().GetVector().GetData())
		if req.ScoreThreshold != nil && score < req.GetScoreThreshold() {
			continue
		}
		hits = append(hits, &qdrant.ScoredPoint{Id: pt.GetId(), Payload: pt.GetPayload(), Score: score})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if uint64(len(hits)) > req.GetLimit() {
		hits = hits[:req.GetLimit()]
	}
	return &qdrant.SearchResponse{Result: hits}, nil
}

func (p fakePoints) Scroll(_ context.Context, req *qdrant.ScrollPoints) (*qdrant.ScrollResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(); err != nil {
		return nil, err
	}

	var wanted map[string]bool
	for _, cond := range req.GetFilter().GetMust() {
		wanted = map[string]bool{}
		for _, h := range cond.GetField().GetMatch().GetKeywords().GetStrings() {
			wanted[h] = true
		}
	}

	var out []*qdrant.RetrievedPoint
	for _, pt := range p.points {
		if wanted != nil && !wanted[pt.GetPayload()[domain.MetaContentHash].GetStringValue()] {
			continue
		}
		out = append(out, &qdrant.RetrievedPoint{Id: pt.GetId(), Payload: pt.GetPayload()})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GetPayload()[payloadCreatedAt].GetIntegerValue() > out[j].GetPayload()[payloadCreatedAt].GetIntegerValue()
	})
	if uint32(len(out)) > req.GetLimit() {
		out = out[:req.GetLimit()]
	}
	return &qdrant.ScrollResponse{Result: out}, nil
}

func (p fakePoints) Count(_ context.Context, _ *qdrant.CountPoints) (*qdrant.CountResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(); err != nil {
		return nil, err
	}
	return &qdrant.CountResponse{Result: &qdrant.CountResult{Count: uint64(len(p.points))}}, nil
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// newTestStore serves a fake over bufconn and returns a store using it.
func newTestStore(t *testing.T, dims int) (*Store, *fakeQdrant) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	fake := &fakeQdrant{}
	qdrant.RegisterPointsServer(srv, fakePoints{fakeQdrant: fake})
	qdrant.RegisterCollectionsServer(srv, fakeCollections{fakeQdrant: fake})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewStore(conn, "documents", dims), fake
}

func record(content, hash string, vec ...float32) domain.StoredRecord {
	return domain.StoredRecord{
		Content:   content,
		Metadata:  map[string]any{domain.MetaSource: "https://docs/" + content, domain.MetaContentHash: hash},
		Embedding: vec,
	}
}

func storageKind(t *testing.T, err error) domain.StorageErrorKind {
	t.Helper()
	var se *domain.StorageError
	require.ErrorAs(t, err, &se)
	return se.Kind
}

func TestStore_PingMissingCollection(t *testing.T) {
	store, _ := newTestStore(t, 3)
	assert.Equal(t, domain.StorageCollectionMissing, storageKind(t, store.Ping(context.Background())))
}

func TestStore_PingUnreachable(t *testing.T) {
	store, fake := newTestStore(t, 3)
	fake.mu.Lock()
	fake.unavail = true
	fake.mu.Unlock()
	assert.Equal(t, domain.StorageUnreachable, storageKind(t, store.Ping(context.Background())))
}

func TestStore_EnsureCollection(t *testing.T) {
	ctx := context.Background()
	store, fake := newTestStore(t, 3)

	require.NoError(t, store.EnsureCollection(ctx, false))
	assert.True(t, fake.exists)
	assert.Equal(t, uint64(3), fake.size)
	assert.ElementsMatch(t, []string{domain.MetaContentHash, payloadCreatedAt}, fake.indexes)
	require.NoError(t, store.Ping(ctx))

	// Existing collection is left alone.
	require.NoError(t, store.Insert(ctx, []domain.StoredRecord{record("a", "h1", 1, 0, 0)}))
	require.NoError(t, store.EnsureCollection(ctx, false))
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_PingDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, 3)
	require.NoError(t, store.EnsureCollection(ctx, false))

	other := NewStore(nil, "documents", 5)
	other.collections = store.collections
	assert.Equal(t, domain.StorageDimensionMismatch, storageKind(t, other.Ping(ctx)))
}

func TestStore_InsertMatchAndHashes(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, 3)
	require.NoError(t, store.EnsureCollection(ctx, false))

	require.NoError(t, store.Insert(ctx, []domain.StoredRecord{
		record("install", "h1", 1, 0, 0),
		record("configure", "h2", 0, 1, 0),
		record("upgrade", "h3", 0.9, 0.1, 0),
	}))

	matches, err := store.Match(ctx, []float32{1, 0, 0}, 5, 0.5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "install", matches[0].Content)
	assert.Equal(t, "upgrade", matches[1].Content)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
	assert.Equal(t, "https://docs/install", matches[0].Source())
	assert.Equal(t, "h1", matches[0].ContentHash())
	assert.NotContains(t, matches[0].Metadata, payloadCreatedAt)
	assert.NotEmpty(t, matches[0].ID)

	top, err := store.Match(ctx, []float32{1, 0, 0}, 1, 0.5)
	require.NoError(t, err)
	assert.Len(t, top, 1)

	hashes, err := store.ExistingHashes(ctx, []string{"h1", "h3", "h9"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"h1": true, "h3": true}, hashes)
}

func TestStore_MatchThresholdIsExclusive(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, 2)
	require.NoError(t, store.EnsureCollection(ctx, false))
	require.NoError(t, store.Insert(ctx, []domain.StoredRecord{record("same", "h", 1, 0)}))

	matches, err := store.Match(ctx, []float32{1, 0}, 5, 1.0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestStore_DimensionChecks(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, 3)
	require.NoError(t, store.EnsureCollection(ctx, false))

	err := store.Insert(ctx, []domain.StoredRecord{record("ok", "h1", 1, 0, 0), record("bad", "h2", 1)})
	assert.Equal(t, domain.StorageDimensionMismatch, storageKind(t, err))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing written when one record is invalid")

	_, err = store.Match(ctx, []float32{1}, 3, 0.5)
	assert.Equal(t, domain.StorageDimensionMismatch, storageKind(t, err))
}

func TestStore_RecentSampleAndDeleteAll(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, 2)
	require.NoError(t, store.EnsureCollection(ctx, false))

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	require.NoError(t, store.Insert(ctx, []domain.StoredRecord{record("one", "h1", 1, 0), record("two", "h2", 0, 1)}))
	require.NoError(t, store.Insert(ctx, []domain.StoredRecord{record("three", "h3", 1, 1)}))

	recent, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "three", recent[0].Content)
	assert.Equal(t, "two", recent[1].Content)

	sample, err := store.Sample(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, sample, 3)

	sample, err = store.Sample(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, sample, 2)
	assert.NotEqual(t, sample[0].Content, sample[1].Content)

	require.NoError(t, store.DeleteAll(ctx))
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, store.Ping(ctx))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.StorageErrorKind
	}{
		{"not found", status.Error(codes.NotFound, "no collection"), domain.StorageCollectionMissing},
		{"unavailable", status.Error(codes.Unavailable, "refused"), domain.StorageUnreachable},
		{"dimension", status.Error(codes.InvalidArgument, "Vector dimension error: expected dim: 1536, got 3"), domain.StorageDimensionMismatch},
		{"missing index", status.Error(codes.InvalidArgument, "No range index for `order_by` key"), domain.StorageSchemaMismatch},
		{"non-grpc", errors.New("dial failed"), domain.StorageUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, storageKind(t, classify(tt.err)))
		})
	}

	var se *domain.StorageError
	assert.False(t, errors.As(classify(status.Error(codes.Internal, "boom")), &se))
	assert.NoError(t, classify(nil))
}

func TestPayloadRoundTrip(t *testing.T) {
	payload := toPayload(map[string]any{"s": "x", "i": 3, "f": 1.5, "b": true})
	r := fromPayload(&qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: "u1"}}, payload)

	assert.Equal(t, "u1", r.ID)
	assert.Equal(t, map[string]any{"s": "x", "i": int64(3), "f": 1.5, "b": true}, r.Metadata)
}
