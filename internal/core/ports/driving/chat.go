package driving

import (
	"context"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

// ChatService answers questions from the indexed documentation.
type ChatService interface {
	// Ask answers a question using retrieved context and the conversation memory.
	// On provider failure it returns an apology answer alongside the error,
	// so callers can always display something. The memory is updated.
	Ask(ctx context.Context, question string, memory *domain.ConversationMemory) (*domain.Answer, error)
}

// SuggestionService proposes questions a user might ask next.
type SuggestionService interface {
	// Initial returns up to n questions for a fresh conversation. Never empty.
	Initial(ctx context.Context, n int) []string

	// AfterAnswer returns up to n follow-ups for an answer. Never empty.
	AfterAnswer(ctx context.Context, answer string, n int) []string
}
