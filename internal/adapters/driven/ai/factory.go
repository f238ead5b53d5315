// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	openaiembed "github.com/gitbook-qa/gitbook-qa/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/gitbook-qa/gitbook-qa/internal/adapters/driven/llm/anthropic"
	openaillm "github.com/gitbook-qa/gitbook-qa/internal/adapters/driven/llm/openai"
	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
	"github.com/gitbook-qa/gitbook-qa/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService

	// LLMServices holds the usable chat models in preference order.
	LLMServices []driven.LLMService

	// Warnings lists non-fatal issues, such as an unreachable secondary model.
	Warnings []string
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	for _, llm := range r.LLMServices {
		llm.Close()
	}
}

// Options controls Init.
type Options struct {
	Embedding domain.EmbeddingSettings
	Primary   domain.LLMSettings
	Secondary domain.LLMSettings

	// Validate pings each service before returning it.
	Validate bool
}

// Init creates the embedding service and the chat model chain.
// A failing primary model is fatal only when no secondary is usable.
func Init(ctx context.Context, opts Options) (*InitResult, error) {
	result := &InitResult{}

	embed, err := createEmbedding(ctx, &opts.Embedding, opts.Validate)
	if err != nil {
		return nil, err
	}
	result.EmbeddingService = embed

	var primaryErr error
	for i, settings := range []domain.LLMSettings{opts.Primary, opts.Secondary} {
		if !settings.IsConfigured() {
			continue
		}
		llm, err := createLLM(ctx, &settings, opts.Validate)
		if err != nil {
			if i == 0 {
				primaryErr = err
			}
			result.Warnings = append(result.Warnings, err.Error())
			logger.Warn("chat model %s unavailable: %v", settings.Provider, err)
			continue
		}
		result.LLMServices = append(result.LLMServices, llm)
	}

	if len(result.LLMServices) == 0 && primaryErr != nil {
		result.Close()
		return nil, primaryErr
	}
	return result, nil
}

func createEmbedding(ctx context.Context, settings *domain.EmbeddingSettings, validate bool) (driven.EmbeddingService, error) {
	if validate {
		return CreateAndValidateEmbeddingService(ctx, settings)
	}
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

func createLLM(ctx context.Context, settings *domain.LLMSettings, validate bool) (driven.LLMService, error) {
	if validate {
		return CreateAndValidateLLMService(ctx, settings)
	}
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	return svc, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Check OPENAI_API_KEY and EMBEDDING_MODEL",
			domain.ErrEmbeddingUnavailable, err)
	}

	// Validate connectivity.
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Check OPENAI_API_KEY and OPENAI_BASE_URL",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}

	// Validate connectivity.
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable (%w)",
			domain.ErrLLMUnavailable, settings.Provider, err)
	}

	return svc, nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		// Anthropic does not support embeddings.
		return nil, fmt.Errorf("anthropic does not support embeddings, use openai")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}
