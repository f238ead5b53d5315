package services

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbedder returns deterministic vectors derived from the text.
// All vectors point roughly the same way, so any two texts are similar.
type mockEmbedder struct {
	dims     int
	err      error
	failFrom int // EmbedBatch call number (1-based) that starts failing; 0 disables
	batches  int
}

func (m *mockEmbedder) vector(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	v := make([]float32, m.dims)
	for i := range v {
		v[i] = 10 + float32(sum[i%len(sum)])/255
	}
	return v
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batches++
	if m.err != nil || (m.failFrom > 0 && m.batches >= m.failFrom) {
		return nil, fmt.Errorf("%w: embedding failed", domain.ErrProvider)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int            { return m.dims }
func (m *mockEmbedder) ModelName() string          { return "mock-embed" }
func (m *mockEmbedder) Ping(context.Context) error { return m.err }
func (m *mockEmbedder) Close() error               { return nil }

// mockLLM answers with a scripted function and records the prompts it saw.
type mockLLM struct {
	mu       sync.Mutex
	name     string
	reply    func(prompt string) (string, error)
	prompts  []string
	messages [][]driven.ChatMessage
	closed   bool
}

func (m *mockLLM) record(prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.reply == nil {
		return "", nil
	}
	return m.reply(prompt)
}

func (m *mockLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	return m.record(prompt)
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	m.mu.Lock()
	m.messages = append(m.messages, messages)
	m.mu.Unlock()

	var b strings.Builder
	for _, msg := range messages {
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return m.record(b.String())
}

func (m *mockLLM) ModelName() string {
	if m.name == "" {
		return "mock-llm"
	}
	return m.name
}

func (m *mockLLM) Ping(context.Context) error {
	_, err := m.record("ping")
	return err
}

func (m *mockLLM) Close() error {
	m.closed = true
	return nil
}

func replyWith(s string) func(string) (string, error) {
	return func(string) (string, error) { return s, nil }
}

func failWith(err error) func(string) (string, error) {
	return func(string) (string, error) { return "", err }
}

// mockResolver returns fixed URLs.
type mockResolver struct {
	urls []string
	err  error
}

func (m *mockResolver) Resolve(_ context.Context, _ string) ([]string, error) {
	return m.urls, m.err
}

// mockFetcher serves HTML bodies by URL.
type mockFetcher struct {
	pages   map[string]string
	fetched []string
}

func (m *mockFetcher) Fetch(_ context.Context, url string) (*domain.RawPage, error) {
	m.fetched = append(m.fetched, url)
	body, ok := m.pages[url]
	if !ok {
		return nil, fmt.Errorf("%w: %s: status 404", domain.ErrFetch, url)
	}
	return &domain.RawPage{URL: url, ContentType: "text/html", Body: []byte(body)}, nil
}

// countingLimiter never blocks and counts waits.
type countingLimiter struct {
	waits int
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.waits++
	return ctx.Err()
}

// failingStore wraps a VectorStore and fails selected operations.
type failingStore struct {
	driven.VectorStore
	insertErr   error
	failInsertN int // fail the Nth Insert call (1-based); 0 fails every call
	inserts     int
	matchErr    error
	recentErr   error
	sampleErr   error
}

func (f *failingStore) Insert(ctx context.Context, records []domain.StoredRecord) error {
	f.inserts++
	if f.insertErr != nil && (f.failInsertN == 0 || f.inserts == f.failInsertN) {
		return f.insertErr
	}
	return f.VectorStore.Insert(ctx, records)
}

func (f *failingStore) Match(ctx context.Context, q []float32, k int, th float64) ([]domain.StoredRecord, error) {
	if f.matchErr != nil {
		return nil, f.matchErr
	}
	return f.VectorStore.Match(ctx, q, k, th)
}

func (f *failingStore) Recent(ctx context.Context, n int) ([]domain.StoredRecord, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	return f.VectorStore.Recent(ctx, n)
}

func (f *failingStore) Sample(ctx context.Context, n int) ([]domain.StoredRecord, error) {
	if f.sampleErr != nil {
		return nil, f.sampleErr
	}
	return f.VectorStore.Sample(ctx, n)
}

func page(title, body string) string {
	return "<html><head><title>" + title + "</title></head><body><main>" + body + "</main></body></html>"
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)
}
