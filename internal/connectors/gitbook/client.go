package gitbook

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
	"github.com/gitbook-qa/gitbook-qa/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.PageFetcher = (*Client)(nil)

const (
	// DefaultTimeout bounds every sitemap and page request.
	DefaultTimeout = 15 * time.Second

	// MaxBodySize caps how much of a response is read.
	MaxBodySize = 10 << 20
)

// Config holds client configuration.
type Config struct {
	// UserAgent identifies the crawler to the documentation host.
	UserAgent string

	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client

	// Throttle, when set, is told about 429 responses.
	Throttle *Throttle
}

// Client fetches documentation pages.
type Client struct {
	http      *http.Client
	userAgent string
	throttle  *Throttle
}

// NewClient creates a client with defaults applied.
func NewClient(cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = domain.DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{http: hc, userAgent: cfg.UserAgent, throttle: cfg.Throttle}
}

// Fetch retrieves a page body. Every failure wraps domain.ErrFetch.
func (c *Client) Fetch(ctx context.Context, url string) (*domain.RawPage, error) {
	body, contentType, err := c.get(ctx, url, "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, err
	}
	return &domain.RawPage{URL: url, ContentType: contentType, Body: body}, nil
}

func (c *Client) get(ctx context.Context, url, accept string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", domain.ErrFetch, url, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", domain.ErrFetch, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusTooManyRequests && c.throttle != nil {
			wait := retryAfter(resp.Header.Get("Retry-After"))
			logger.Warn("rate limited by %s, backing off %s", url, wait)
			c.throttle.RecordRetryAfter(wait)
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, "", &HTTPError{StatusCode: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading %s: %v", domain.ErrFetch, url, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(header)
	if err != nil || secs <= 0 {
		return DefaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}
