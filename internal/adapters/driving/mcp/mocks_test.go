package mcp

import (
	"context"
	"sync"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	mu       sync.Mutex
	answer   *domain.Answer
	err      error
	memories []*domain.ConversationMemory
}

func (m *mockChatService) Ask(
	_ context.Context,
	question string,
	memory *domain.ConversationMemory,
) (*domain.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.memories = append(m.memories, memory)
	if m.err != nil {
		return &domain.Answer{Text: domain.ApologyUnavailable}, m.err
	}
	memory.AddExchange(question, m.answer.Text)
	return m.answer, nil
}

// mockSuggestionService is a mock implementation of driving.SuggestionService.
type mockSuggestionService struct {
	initial   []string
	followUps []string
	lastN     int
}

func (m *mockSuggestionService) Initial(_ context.Context, n int) []string {
	m.lastN = n
	return m.initial
}

func (m *mockSuggestionService) AfterAnswer(_ context.Context, _ string, n int) []string {
	m.lastN = n
	return m.followUps
}

// mockHistoryService is a mock implementation of driving.HistoryService.
type mockHistoryService struct {
	list          []domain.ConversationSummary
	conversations map[string]*domain.Conversation
	err           error
	saved         []domain.Conversation
}

func (m *mockHistoryService) List(_ context.Context) ([]domain.ConversationSummary, error) {
	return m.list, m.err
}

func (m *mockHistoryService) Load(
	_ context.Context,
	id string,
) (*domain.Conversation, *domain.ConversationMemory, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	conv, ok := m.conversations[id]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	return conv, domain.MemoryFromTurns(conv.Turns), nil
}

func (m *mockHistoryService) Save(_ context.Context, conv *domain.Conversation) error {
	if m.err != nil {
		return m.err
	}
	saved := *conv
	saved.Turns = append([]domain.Turn(nil), conv.Turns...)
	m.saved = append(m.saved, saved)
	return nil
}

func (m *mockHistoryService) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockHistoryService) Clear(_ context.Context) error {
	return m.err
}

func (m *mockHistoryService) New() *domain.Conversation {
	return &domain.Conversation{ID: "new"}
}
