// Package memory provides in-process storage adapters.
package memory

import (
	"context"
	"sync"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
)

// Ensure HistoryStore implements the interface.
var _ driven.HistoryStore = (*HistoryStore)(nil)

// HistoryStore keeps conversations for the lifetime of the process.
// It backs the chat surfaces when the history file cannot be used.
type HistoryStore struct {
	mu    sync.RWMutex
	order []string
	convs map[string]domain.Conversation
}

// NewHistoryStore creates an empty in-memory history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		convs: make(map[string]domain.Conversation),
	}
}

// List returns summaries in save order.
func (s *HistoryStore) List(_ context.Context) ([]domain.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ConversationSummary, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, domain.ConversationSummary{ID: id, Title: s.convs[id].Title})
	}
	return out, nil
}

// Get returns a copy of a conversation.
func (s *HistoryStore) Get(_ context.Context, id string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.convs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	conv.Turns = append([]domain.Turn(nil), conv.Turns...)
	return &conv, nil
}

// Save stores a copy of the conversation.
func (s *HistoryStore) Save(_ context.Context, conv *domain.Conversation) error {
	if conv == nil || conv.ID == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convs[conv.ID]; !ok {
		s.order = append(s.order, conv.ID)
	}
	c := *conv
	c.Turns = append([]domain.Turn(nil), conv.Turns...)
	s.convs[conv.ID] = c
	return nil
}

// Delete removes one conversation.
func (s *HistoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convs[id]; !ok {
		return nil
	}
	delete(s.convs, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Clear removes every conversation.
func (s *HistoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.convs = make(map[string]domain.Conversation)
	return nil
}
