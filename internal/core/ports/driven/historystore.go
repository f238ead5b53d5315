package driven

import (
	"context"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

// HistoryStore persists saved conversations.
// Errors wrap domain.ErrPersistence.
type HistoryStore interface {
	// List returns saved conversations in save order.
	List(ctx context.Context) ([]domain.ConversationSummary, error)

	// Get loads one conversation. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Conversation, error)

	// Save stores or replaces a conversation.
	Save(ctx context.Context, conv *domain.Conversation) error

	// Delete removes one conversation. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// Clear removes every saved conversation.
	Clear(ctx context.Context) error
}
