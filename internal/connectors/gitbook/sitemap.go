package gitbook

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
	"github.com/gitbook-qa/gitbook-qa/internal/logger"
)

// Ensure SitemapResolver implements the interface.
var _ driven.SitemapResolver = (*SitemapResolver)(nil)

// sitemapDoc matches both <urlset> and <sitemapindex> roots.
type sitemapDoc struct {
	XMLName  xml.Name
	URLs     []locEntry `xml:"url"`
	Sitemaps []locEntry `xml:"sitemap"`
}

type locEntry struct {
	Loc string `xml:"loc"`
}

// SitemapResolver reads page URLs from sitemap.xml.
type SitemapResolver struct {
	client *Client
}

// NewSitemapResolver creates a resolver that fetches through client.
func NewSitemapResolver(client *Client) *SitemapResolver {
	return &SitemapResolver{client: client}
}

// Resolve returns the page URLs listed by sitemapURL, in order and without
// duplicates. See the package documentation for failure semantics.
func (r *SitemapResolver) Resolve(ctx context.Context, sitemapURL string) ([]string, error) {
	if strings.TrimSpace(sitemapURL) == "" {
		return nil, nil
	}

	doc, err := r.load(ctx, sitemapURL)
	if err != nil {
		return []string{}, err
	}

	var urls []string
	switch doc.XMLName.Local {
	case "urlset":
		urls = locs(doc.URLs)
	case "sitemapindex":
		urls, err = r.resolveIndex(ctx, doc)
		if err != nil {
			return []string{}, err
		}
	default:
		return []string{}, fmt.Errorf("%w: %s: unexpected root element <%s>",
			domain.ErrParse, sitemapURL, doc.XMLName.Local)
	}

	return dedupe(urls), nil
}

// resolveIndex follows child sitemaps one level. A failing child is logged
// and skipped; the error is returned only if every child failed.
func (r *SitemapResolver) resolveIndex(ctx context.Context, index *sitemapDoc) ([]string, error) {
	children := locs(index.Sitemaps)
	var urls []string
	var errs []error
	for _, child := range children {
		doc, err := r.load(ctx, child)
		if err == nil && doc.XMLName.Local != "urlset" {
			err = fmt.Errorf("%w: %s: nested <%s> not followed", domain.ErrParse, child, doc.XMLName.Local)
		}
		if err != nil {
			logger.Warn("skipping child sitemap: %v", err)
			errs = append(errs, err)
			continue
		}
		urls = append(urls, locs(doc.URLs)...)
	}
	if len(children) > 0 && len(errs) == len(children) {
		return nil, errors.Join(errs...)
	}
	return urls, nil
}

func (r *SitemapResolver) load(ctx context.Context, sitemapURL string) (*sitemapDoc, error) {
	body, _, err := r.client.get(ctx, sitemapURL, "application/xml,text/xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, err
	}
	return parseSitemap(sitemapURL, body)
}

func parseSitemap(sitemapURL string, body []byte) (*sitemapDoc, error) {
	var doc sitemapDoc
	if err := xml.NewDecoder(bytes.NewReader(body)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrParse, sitemapURL, err)
	}
	return &doc, nil
}

func locs(entries []locEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if loc := strings.TrimSpace(e.Loc); loc != "" {
			out = append(out, loc)
		}
	}
	return out
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// DefaultSitemapURL derives <base>/sitemap.xml.
func DefaultSitemapURL(baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return ""
	}
	return base + "/sitemap.xml"
}
