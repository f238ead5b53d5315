package driving

import (
	"context"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

// HistoryService manages saved conversations for the chat surfaces.
type HistoryService interface {
	// List returns saved conversation titles and ids.
	List(ctx context.Context) ([]domain.ConversationSummary, error)

	// Load returns a saved conversation and the memory rebuilt from its turns.
	Load(ctx context.Context, id string) (*domain.Conversation, *domain.ConversationMemory, error)

	// Save titles the conversation if needed and persists it.
	// Conversations without user turns are not saved.
	Save(ctx context.Context, conv *domain.Conversation) error

	// Delete removes one saved conversation.
	Delete(ctx context.Context, id string) error

	// Clear removes all saved conversations.
	Clear(ctx context.Context) error

	// New starts an unsaved conversation holding the welcome turn.
	New() *domain.Conversation
}
