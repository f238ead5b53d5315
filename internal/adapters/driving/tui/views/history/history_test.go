package history

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driving/tui/messages"
	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

// MockHistoryService implements driving.HistoryService for testing.
type MockHistoryService struct {
	items    []domain.ConversationSummary
	ListErr  error
	ClearErr error
	Deleted  []string
	Cleared  bool
}

func (m *MockHistoryService) List(context.Context) ([]domain.ConversationSummary, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.items, nil
}

func (m *MockHistoryService) Load(
	context.Context, string,
) (*domain.Conversation, *domain.ConversationMemory, error) {
	return nil, nil, domain.ErrNotFound
}

func (m *MockHistoryService) Save(context.Context, *domain.Conversation) error { return nil }

func (m *MockHistoryService) Delete(_ context.Context, id string) error {
	m.Deleted = append(m.Deleted, id)
	var kept []domain.ConversationSummary
	for _, it := range m.items {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	m.items = kept
	return nil
}

func (m *MockHistoryService) Clear(context.Context) error {
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.Cleared = true
	m.items = nil
	return nil
}

func (m *MockHistoryService) New() *domain.Conversation {
	return domain.NewConversation("new", time.Now())
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// loaded returns a view already showing the mock's conversations.
func loaded(t *testing.T) (*View, *MockHistoryService) {
	t.Helper()
	svc := &MockHistoryService{items: []domain.ConversationSummary{
		{ID: "a", Title: "Install steps"},
		{ID: "b", Title: "Pricing"},
	}}
	v := NewView(nil, nil, svc)
	v.Update(v.Init()())
	require.Equal(t, 2, v.Count())
	return v, svc
}

func TestNewView_NilStyles(t *testing.T) {
	v := NewView(nil, nil, &MockHistoryService{})

	require.NotNil(t, v)
	assert.NotNil(t, v.styles)
	assert.NotNil(t, v.keymap)
}

func TestView_InitLoadsConversations(t *testing.T) {
	v, _ := loaded(t)

	view := v.View()

	assert.Contains(t, view, "Conversation history")
	assert.Contains(t, view, "Install steps")
	assert.Contains(t, view, "Pricing")
}

func TestView_WithoutService(t *testing.T) {
	v := NewView(nil, nil, nil)

	v.Update(v.Init()())

	assert.ErrorIs(t, v.Err(), ErrNoHistoryService)
	assert.Contains(t, v.View(), "history service is required")
}

func TestView_ListError(t *testing.T) {
	v := NewView(nil, nil, &MockHistoryService{ListErr: domain.ErrPersistence})

	v.Update(v.Init()())

	assert.ErrorIs(t, v.Err(), domain.ErrPersistence)
}

func TestView_EnterSelectsConversation(t *testing.T) {
	v, _ := loaded(t)
	v.Update(runes("j"))

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	assert.Equal(t, messages.ConversationSelected{ID: "b"}, cmd())
}

func TestView_EnterOnEmptyList(t *testing.T) {
	v := NewView(nil, nil, &MockHistoryService{})
	v.Update(v.Init()())

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
}

func TestView_EscReturnsToChat(t *testing.T) {
	v, _ := loaded(t)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)

	assert.Equal(t, messages.ViewChanged{View: messages.ViewChat}, cmd())
}

func TestView_DeleteReloads(t *testing.T) {
	v, svc := loaded(t)

	_, cmd := v.Update(runes("d"))
	require.NotNil(t, cmd)
	deleted, ok := cmd().(messages.ConversationDeleted)
	require.True(t, ok)
	assert.Equal(t, "a", deleted.ID)

	_, reload := v.Update(deleted)
	require.NotNil(t, reload)
	v.Update(reload())

	assert.Equal(t, []string{"a"}, svc.Deleted)
	assert.Equal(t, 1, v.Count())
	assert.Contains(t, v.View(), "Conversation deleted")
}

func TestView_ClearNeedsConfirmation(t *testing.T) {
	v, svc := loaded(t)

	_, cmd := v.Update(runes("C"))
	assert.Nil(t, cmd)
	assert.True(t, v.ConfirmingClear())
	assert.Contains(t, v.View(), "(y/n)")

	_, cmd = v.Update(runes("n"))
	assert.Nil(t, cmd)
	assert.False(t, v.ConfirmingClear())
	assert.False(t, svc.Cleared)
}

func TestView_ClearConfirmed(t *testing.T) {
	v, svc := loaded(t)

	v.Update(runes("C"))
	_, cmd := v.Update(runes("y"))
	require.NotNil(t, cmd)

	cleared, ok := cmd().(messages.HistoryCleared)
	require.True(t, ok)
	require.NoError(t, cleared.Err)

	_, reload := v.Update(cleared)
	v.Update(reload())

	assert.True(t, svc.Cleared)
	assert.Equal(t, 0, v.Count())
	assert.Contains(t, v.View(), "No saved conversations")
}

func TestView_ClearError(t *testing.T) {
	v, svc := loaded(t)
	svc.ClearErr = errors.New("disk full")

	v.Update(runes("C"))
	_, cmd := v.Update(runes("y"))
	v.Update(cmd())

	assert.EqualError(t, v.Err(), "disk full")
}

func TestView_ClearOnEmptyListIgnored(t *testing.T) {
	v := NewView(nil, nil, &MockHistoryService{})
	v.Update(v.Init()())

	v.Update(runes("C"))

	assert.False(t, v.ConfirmingClear())
}

func TestView_SetDimensions(t *testing.T) {
	v, _ := loaded(t)

	v.Update(tea.WindowSizeMsg{Width: 120, Height: 30})

	assert.Equal(t, 120, v.width)
	assert.Equal(t, 30, v.height)
}
