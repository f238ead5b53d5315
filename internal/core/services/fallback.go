package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/gitbook-qa/gitbook-qa/internal/logger"
)

// errRejected marks a step whose result failed the chain's acceptance check.
var errRejected = errors.New("result rejected")

// FallbackStep is one strategy in a FallbackChain.
type FallbackStep[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// FallbackChain tries steps in order until one returns an accepted result.
type FallbackChain[T any] struct {
	steps  []FallbackStep[T]
	accept func(T) bool
}

// NewFallbackChain creates a chain. A nil accept treats every error-free
// result as a success.
func NewFallbackChain[T any](accept func(T) bool, steps ...FallbackStep[T]) *FallbackChain[T] {
	return &FallbackChain[T]{steps: steps, accept: accept}
}

// Run returns the first accepted result and the name of the step that
// produced it. When every step fails the errors are joined.
func (c *FallbackChain[T]) Run(ctx context.Context) (T, string, error) {
	var zero T
	var errs []error

	for _, step := range c.steps {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}

		result, err := step.Run(ctx)
		if err == nil && c.accept != nil && !c.accept(result) {
			err = errRejected
		}
		if err == nil {
			return result, step.Name, nil
		}

		logger.Debug("Fallback step %s failed: %v", step.Name, err)
		errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
	}

	if len(errs) == 0 {
		return zero, "", errors.New("fallback chain has no steps")
	}
	return zero, "", errors.Join(errs...)
}
