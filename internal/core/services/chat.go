package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driving"
	"github.com/gitbook-qa/gitbook-qa/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// ChatService answers questions from retrieved documentation excerpts.
type ChatService struct {
	llm         driven.LLMService
	embedder    driven.EmbeddingService
	store       driven.VectorStore
	retrieval   domain.RetrievalSettings
	temperature float64
	targetName  string
}

// ChatOption configures a ChatService.
type ChatOption func(*ChatService)

// WithRetrieval sets k and the similarity threshold.
func WithRetrieval(r domain.RetrievalSettings) ChatOption {
	return func(s *ChatService) {
		s.retrieval = r.WithDefaults()
	}
}

// WithTemperature sets the answer sampling temperature.
func WithTemperature(t float64) ChatOption {
	return func(s *ChatService) {
		if t >= 0 {
			s.temperature = t
		}
	}
}

// WithTargetName names the documentation in prompts.
func WithTargetName(name string) ChatOption {
	return func(s *ChatService) {
		if name != "" {
			s.targetName = name
		}
	}
}

// NewChatService creates a chat service.
func NewChatService(
	llm driven.LLMService,
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	opts ...ChatOption,
) *ChatService {
	s := &ChatService{
		llm:         llm,
		embedder:    embedder,
		store:       store,
		retrieval:   domain.RetrievalSettings{}.WithDefaults(),
		temperature: domain.DefaultTemperature,
		targetName:  "the documentation",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ask condenses a follow-up into a standalone question, retrieves matching
// records and asks the chat model. On any provider or store failure it
// returns the unavailable apology together with the error.
func (s *ChatService) Ask(ctx context.Context, question string, memory *domain.ConversationMemory) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}

	logger.Section("Ask")
	answer, err := s.ask(ctx, question, memory)
	if err != nil {
		logger.Warn("Answer failed: %v", err)
		return &domain.Answer{Text: domain.ApologyUnavailable}, err
	}
	return answer, nil
}

func (s *ChatService) ask(ctx context.Context, question string, memory *domain.ConversationMemory) (*domain.Answer, error) {
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.store == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}

	history := memory.Turns()

	standalone := question
	if len(history) > 0 {
		condensed, err := s.llm.Generate(ctx, condensePrompt(history, question), driven.GenerateOptions{})
		if err != nil {
			return nil, fmt.Errorf("%w: condense question: %w", domain.ErrProvider, err)
		}
		if c := strings.TrimSpace(condensed); c != "" {
			standalone = c
		}
		logger.Debug("Standalone question: %q", standalone)
	}

	vector, err := s.embedder.Embed(ctx, standalone)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %w", domain.ErrProvider, err)
	}

	records, err := s.store.Match(ctx, vector, s.retrieval.K, s.retrieval.Threshold)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	logger.Debug("Retrieved %d records (k=%d, threshold=%.2f)", len(records), s.retrieval.K, s.retrieval.Threshold)

	messages := make([]driven.ChatMessage, 0, len(history)+2)
	messages = append(messages, driven.ChatMessage{
		Role:    driven.RoleSystem,
		Content: answerSystemPrompt(s.targetName, records),
	})
	for _, t := range history {
		messages = append(messages, driven.ChatMessage{Role: string(t.Role), Content: t.Content})
	}
	messages = append(messages, driven.ChatMessage{Role: driven.RoleUser, Content: standalone})

	text, err := s.llm.Chat(ctx, messages, driven.ChatOptions{Temperature: s.temperature})
	if err != nil {
		return nil, fmt.Errorf("%w: chat completion: %w", domain.ErrProvider, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		text = domain.ApologyNoAnswer
	}

	if memory != nil {
		memory.AddExchange(question, text)
	}

	return &domain.Answer{
		Text:              text,
		Sources:           domain.DedupeSources(records),
		GeneratedQuestion: standalone,
	}, nil
}
