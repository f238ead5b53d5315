package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driven/storage/jsonfile"
	memhistory "github.com/gitbook-qa/gitbook-qa/internal/adapters/driven/storage/memory"
	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driven/storage/sqlite"
	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driven/vectorstore/memory"
	"github.com/gitbook-qa/gitbook-qa/internal/config"
	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (stubEmbedder) Dimensions() int              { return 3 }
func (stubEmbedder) ModelName() string            { return "stub-embed" }
func (stubEmbedder) Ping(_ context.Context) error { return nil }
func (stubEmbedder) Close() error                 { return nil }

type stubLLM struct {
	reply string
}

func (s stubLLM) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	return s.reply, nil
}

func (s stubLLM) Chat(_ context.Context, _ []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	return s.reply, nil
}

func (stubLLM) ModelName() string            { return "stub-chat" }
func (stubLLM) Ping(_ context.Context) error { return nil }
func (stubLLM) Close() error                 { return nil }

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.FromEnv(func(string) (string, bool) { return "", false }, nil)
	cfg.VectorStore = domain.VectorStoreMemory
	cfg.HistoryFile = filepath.Join(t.TempDir(), "history.json")
	return cfg
}

func TestNew_RequiresConfiguration(t *testing.T) {
	cfg := memoryConfig(t)

	_, err := New(context.Background(), cfg, WithoutValidation())

	var missing *config.MissingError
	require.ErrorAs(t, err, &missing)
	assert.Contains(t, missing.Names, config.EnvOpenAIKey)
	assert.ErrorIs(t, err, domain.ErrMissingConfig)
}

func TestNew_WiresServices(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.LLM.APIKey = "sk-test"

	a, err := New(context.Background(), cfg, WithAI(stubEmbedder{}, stubLLM{reply: "It is configured in settings."}))
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Store)
	assert.NotNil(t, a.Ingest)
	assert.NotNil(t, a.Chat)
	assert.NotNil(t, a.Suggest)
	assert.NotNil(t, a.History)
	assert.NotNil(t, a.Throttle)
	assert.Equal(t, 3, a.Store.Dimensions())
	assert.Equal(t, "stub-chat", a.LLM.ModelName())
}

func TestNew_AnswersFromInjectedStore(t *testing.T) {
	ctx := context.Background()
	store := memory.New(3)
	require.NoError(t, store.Insert(ctx, []domain.StoredRecord{{
		ID:        "1",
		Content:   "Settings live under the admin panel.",
		Embedding: []float32{1, 0, 0},
		Metadata:  map[string]any{domain.MetaSource: "https://docs.example.com/admin/settings"},
	}}))

	a, err := New(ctx, memoryConfig(t),
		WithAI(stubEmbedder{}, stubLLM{reply: "Open the admin panel."}),
		WithVectorStore(store),
	)
	require.NoError(t, err)
	defer a.Close()

	answer, err := a.Chat.Ask(ctx, "Where are settings?", domain.NewConversationMemory())
	require.NoError(t, err)
	assert.Equal(t, "Open the admin panel.", answer.Text)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "Settings", answer.Sources[0].Title)
}

func TestNew_HistoryFallsBackToMemory(t *testing.T) {
	cfg := memoryConfig(t)
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	cfg.HistoryFile = filepath.Join(blocker, "history.db")

	a, err := New(context.Background(), cfg, WithAI(stubEmbedder{}, stubLLM{reply: "ok"}), WithVectorStore(memory.New(3)))
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.History)
	require.Len(t, a.Warnings, 1)
	assert.Contains(t, a.Warnings[0], "conversation history not persisted")

	conv := a.History.New()
	conv.Append(domain.RoleUser, "Where are settings?", conv.CreatedAt)
	require.NoError(t, a.History.Save(context.Background(), conv))

	list, err := a.History.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestNew_InjectedHistoryStore(t *testing.T) {
	store := memhistory.NewHistoryStore()

	a, err := New(context.Background(), memoryConfig(t),
		WithAI(stubEmbedder{}),
		WithVectorStore(memory.New(3)),
		WithHistoryStore(store),
	)
	require.NoError(t, err)
	defer a.Close()

	conv := a.History.New()
	conv.Append(domain.RoleUser, "How do I invite members?", conv.CreatedAt)
	require.NoError(t, a.History.Save(context.Background(), conv))

	list, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "How do I invite...", list[0].Title)
}

func TestNew_WithoutChatModel(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(t),
		WithAI(stubEmbedder{}),
		WithVectorStore(memory.New(3)),
	)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.LLM)
	questions := a.Suggest.Initial(context.Background(), 3)
	assert.Len(t, questions, 3)
}

func TestOpenVectorStore_Memory(t *testing.T) {
	cfg := memoryConfig(t)

	store, err := OpenVectorStore(context.Background(), cfg, 8)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, 8, store.Dimensions())
	assert.NoError(t, store.Ping(context.Background()))
}

func TestOpenVectorStore_UnknownKind(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.VectorStore = "chroma"

	_, err := OpenVectorStore(context.Background(), cfg, 8)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOpenHistoryStore_PicksBackendBySuffix(t *testing.T) {
	dir := t.TempDir()

	store, closeFn, err := OpenHistoryStore(filepath.Join(dir, "history.json"))
	require.NoError(t, err)
	assert.IsType(t, &jsonfile.Store{}, store)
	assert.NoError(t, closeFn())

	store, closeFn, err = OpenHistoryStore(filepath.Join(dir, "history.DB"))
	require.NoError(t, err)
	assert.IsType(t, &sqlite.HistoryStore{}, store)
	assert.NoError(t, closeFn())
}

func TestApplySchema_MissingSettings(t *testing.T) {
	cfg := memoryConfig(t)

	cfg.VectorStore = domain.VectorStorePostgres
	err := ApplySchema(context.Background(), cfg, 0, false)
	assert.ErrorIs(t, err, domain.ErrMissingConfig)

	cfg.VectorStore = domain.VectorStoreQdrant
	err = ApplySchema(context.Background(), cfg, 0, false)
	var missing *config.MissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{config.EnvQdrantAddr}, missing.Names)

	cfg.VectorStore = domain.VectorStoreMemory
	assert.NoError(t, ApplySchema(context.Background(), cfg, 0, false))
}

func TestClose_Idempotent(t *testing.T) {
	a := &App{}
	calls := 0
	a.closers = append(a.closers, func() error { calls++; return nil })

	assert.NoError(t, a.Close())
	assert.NoError(t, a.Close())
	assert.Equal(t, 1, calls)
}
