package gitbook

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
)

// Ensure Throttle implements the interface.
var _ driven.RateLimiter = (*Throttle)(nil)

// DefaultRetryAfter is the backoff applied to a 429 without Retry-After.
const DefaultRetryAfter = 30 * time.Second

// Throttle spaces page requests at least delay apart.
type Throttle struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// NewThrottle creates a throttle. A zero or negative delay disables pacing.
func NewThrottle(delay time.Duration) *Throttle {
	return &Throttle{limiter: rate.NewLimiter(limitFor(delay), 1)}
}

// SetDelay changes the spacing for subsequent requests.
func (t *Throttle) SetDelay(delay time.Duration) {
	t.limiter.SetLimit(limitFor(delay))
}

func limitFor(delay time.Duration) rate.Limit {
	if delay <= 0 {
		return rate.Inf
	}
	return rate.Every(delay)
}

// Wait blocks until the next request may be sent.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	retryAt := t.retryAt
	t.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return t.limiter.Wait(ctx)
}

// RecordRetryAfter defers the next request after a 429 response.
func (t *Throttle) RecordRetryAfter(d time.Duration) {
	if d <= 0 {
		d = DefaultRetryAfter
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if at := time.Now().Add(d); at.After(t.retryAt) {
		t.retryAt = at
	}
}
