package services

import (
	"context"
	"errors"
	"strings"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
)

// Ensure FallbackLLM implements the interface.
var _ driven.LLMService = (*FallbackLLM)(nil)

// FallbackLLM sends each request to the first provider that answers.
// Providers are tried in the order given.
type FallbackLLM struct {
	providers []driven.LLMService
}

// NewFallbackLLM wraps providers. Nil entries are ignored.
func NewFallbackLLM(providers ...driven.LLMService) *FallbackLLM {
	f := &FallbackLLM{}
	for _, p := range providers {
		if p != nil {
			f.providers = append(f.providers, p)
		}
	}
	return f
}

// Generate produces a completion from the first working provider.
func (f *FallbackLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	return f.run(ctx, func(ctx context.Context, p driven.LLMService) (string, error) {
		return p.Generate(ctx, prompt, opts)
	})
}

// Chat conducts a conversation with the first working provider.
func (f *FallbackLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	return f.run(ctx, func(ctx context.Context, p driven.LLMService) (string, error) {
		return p.Chat(ctx, messages, opts)
	})
}

func (f *FallbackLLM) run(
	ctx context.Context, call func(context.Context, driven.LLMService) (string, error),
) (string, error) {
	if len(f.providers) == 0 {
		return "", domain.ErrLLMUnavailable
	}

	steps := make([]FallbackStep[string], 0, len(f.providers))
	for _, p := range f.providers {
		steps = append(steps, FallbackStep[string]{
			Name: p.ModelName(),
			Run:  func(ctx context.Context) (string, error) { return call(ctx, p) },
		})
	}

	out, _, err := NewFallbackChain(func(s string) bool { return strings.TrimSpace(s) != "" }, steps...).Run(ctx)
	return out, err
}

// ModelName returns the primary provider's model.
func (f *FallbackLLM) ModelName() string {
	if len(f.providers) == 0 {
		return ""
	}
	return f.providers[0].ModelName()
}

// Ping succeeds when any provider is reachable.
func (f *FallbackLLM) Ping(ctx context.Context) error {
	if len(f.providers) == 0 {
		return domain.ErrLLMUnavailable
	}
	var errs []error
	for _, p := range f.providers {
		err := p.Ping(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close closes every provider.
func (f *FallbackLLM) Close() error {
	var errs []error
	for _, p := range f.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
