// Package gitbook implements the crawl side of ingestion for a published
// GitBook (or any static documentation) site.
//
// # Architecture
//
// The package provides the driven ports used by the ingest service:
//
//   - Client: fetches pages with the identifying User-Agent ([driven.PageFetcher])
//   - SitemapResolver: turns sitemap.xml into page URLs ([driven.SitemapResolver])
//   - Throttle: paces page requests ([driven.RateLimiter])
//
// # Sitemaps
//
// A <urlset> yields its <loc> values in document order. A single <url>
// entry and many entries both produce a flat list. A <sitemapindex> is
// followed one level deep and its child sitemaps are resolved in order;
// duplicate URLs keep their first position.
//
// Resolution failures are never fatal to the caller: Resolve returns an
// empty, non-nil slice together with an error wrapping [domain.ErrFetch]
// or [domain.ErrParse]. An empty sitemap URL returns nil, nil so callers
// can tell "not requested" apart from "requested but empty".
//
// # Rate Limiting
//
// Throttle is a token bucket with burst 1 refilled once per delay, so the
// first request goes out immediately and each later one waits at least
// the configured delay. A 429 response with Retry-After pushes the next
// permitted request back by that amount.
//
// # Timeouts
//
// Every request is bounded by DefaultTimeout (15s) unless the caller's
// context expires first.
package gitbook
