package tui

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

// MockChatService implements driving.ChatService for testing.
type MockChatService struct {
	AskFunc func(ctx context.Context, question string, memory *domain.ConversationMemory) (*domain.Answer, error)
}

func (m *MockChatService) Ask(
	ctx context.Context, question string, memory *domain.ConversationMemory,
) (*domain.Answer, error) {
	if m.AskFunc != nil {
		return m.AskFunc(ctx, question, memory)
	}
	return &domain.Answer{Text: "answer to " + question}, nil
}

// MockSuggestionService implements driving.SuggestionService for testing.
type MockSuggestionService struct{}

func (m *MockSuggestionService) Initial(_ context.Context, n int) []string {
	return domain.DefaultQuestions[:n]
}

func (m *MockSuggestionService) AfterAnswer(_ context.Context, _ string, n int) []string {
	return domain.DefaultQuestions[:n]
}

// MockHistoryService implements driving.HistoryService for testing.
type MockHistoryService struct {
	convs map[string]*domain.Conversation
	next  int
}

func (m *MockHistoryService) List(context.Context) ([]domain.ConversationSummary, error) {
	out := make([]domain.ConversationSummary, 0, len(m.convs))
	for _, c := range m.convs {
		out = append(out, domain.ConversationSummary{ID: c.ID, Title: c.Title})
	}
	return out, nil
}

func (m *MockHistoryService) Load(
	_ context.Context, id string,
) (*domain.Conversation, *domain.ConversationMemory, error) {
	c, ok := m.convs[id]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	return c, domain.MemoryFromTurns(c.Turns), nil
}

func (m *MockHistoryService) Save(_ context.Context, conv *domain.Conversation) error {
	if m.convs == nil {
		m.convs = map[string]*domain.Conversation{}
	}
	m.convs[conv.ID] = conv
	return nil
}

func (m *MockHistoryService) Delete(_ context.Context, id string) error {
	delete(m.convs, id)
	return nil
}

func (m *MockHistoryService) Clear(context.Context) error {
	m.convs = nil
	return nil
}

func (m *MockHistoryService) New() *domain.Conversation {
	m.next++
	return domain.NewConversation(fmt.Sprintf("conv-%d", m.next), time.Now())
}

func TestNewPorts(t *testing.T) {
	chat := &MockChatService{}
	suggest := &MockSuggestionService{}
	history := &MockHistoryService{}

	ports := NewPorts(chat, suggest, history)

	require.NotNil(t, ports)
	assert.Equal(t, chat, ports.Chat)
	assert.Equal(t, suggest, ports.Suggest)
	assert.Equal(t, history, ports.History)
}

func TestPorts_Validate(t *testing.T) {
	tests := []struct {
		name  string
		ports *Ports
		err   error
	}{
		{"complete", NewPorts(&MockChatService{}, &MockSuggestionService{}, &MockHistoryService{}), nil},
		{"history optional", NewPorts(&MockChatService{}, &MockSuggestionService{}, nil), nil},
		{"missing chat", NewPorts(nil, &MockSuggestionService{}, nil), ErrMissingChatService},
		{"missing suggestions", NewPorts(&MockChatService{}, nil, nil), ErrMissingSuggestionService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ports.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
