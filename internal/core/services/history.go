package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driving"
)

// Ensure HistoryService implements the interface.
var _ driving.HistoryService = (*HistoryService)(nil)

// HistoryService manages saved conversations.
type HistoryService struct {
	store driven.HistoryStore
	now   func() time.Time
	newID func() string
}

// HistoryOption configures a HistoryService.
type HistoryOption func(*HistoryService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) HistoryOption {
	return func(s *HistoryService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewHistoryService creates a history service over a store.
func NewHistoryService(store driven.HistoryStore, opts ...HistoryOption) *HistoryService {
	s := &HistoryService{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New starts an unsaved conversation holding the welcome turn.
func (s *HistoryService) New() *domain.Conversation {
	return domain.NewConversation(s.newID(), s.now())
}

// List returns saved conversations in save order.
func (s *HistoryService) List(ctx context.Context) ([]domain.ConversationSummary, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, persistence("list conversations", err)
	}
	return list, nil
}

// Load returns a conversation and the memory rebuilt from its turns.
func (s *HistoryService) Load(ctx context.Context, id string) (*domain.Conversation, *domain.ConversationMemory, error) {
	conv, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
		}
		return nil, nil, persistence("load conversation", err)
	}
	return conv, domain.MemoryFromTurns(conv.Turns), nil
}

// Save titles the conversation and persists it. Conversations holding
// only the welcome turn are not saved.
func (s *HistoryService) Save(ctx context.Context, conv *domain.Conversation) error {
	if conv == nil {
		return domain.ErrInvalidInput
	}
	if !conv.HasUserTurns() {
		return nil
	}
	if conv.ID == "" {
		conv.ID = s.newID()
	}
	now := s.now()
	conv.EnsureTitle(now)
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = now

	if err := s.store.Save(ctx, conv); err != nil {
		return persistence("save conversation", err)
	}
	return nil
}

// Delete removes one conversation.
func (s *HistoryService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return persistence("delete conversation", err)
	}
	return nil
}

// Clear removes every saved conversation.
func (s *HistoryService) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return persistence("clear history", err)
	}
	return nil
}

// persistence wraps store failures so callers can treat them as warnings.
func persistence(op string, err error) error {
	if errors.Is(err, domain.ErrPersistence) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
}
