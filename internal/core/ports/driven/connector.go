package driven

import (
	"context"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

// SitemapResolver turns a sitemap into the ordered list of page URLs.
type SitemapResolver interface {
	// Resolve fetches and parses the sitemap. An empty sitemapURL returns
	// nil, nil. On failure it returns an empty slice and a wrapped error.
	Resolve(ctx context.Context, sitemapURL string) ([]string, error)
}

// PageFetcher retrieves a page body.
type PageFetcher interface {
	// Fetch returns the page or an error wrapping domain.ErrFetch.
	Fetch(ctx context.Context, url string) (*domain.RawPage, error)
}

// RateLimiter paces outbound requests.
// *rate.Limiter from golang.org/x/time/rate satisfies it.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// ContentExtractor pulls the primary text out of a fetched page.
type ContentExtractor interface {
	// Extract tries selectors in order and returns the first non-empty match.
	// Returns domain.ErrNoContent when none yields text.
	Extract(ctx context.Context, page *domain.RawPage, selectors []string) (*domain.SourceDocument, error)
}
