package html

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/PuerkitoBio/goquery"
	nethtml "golang.org/x/net/html"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.ContentExtractor = (*Extractor)(nil)

// DefaultRemoveSelector matches subtrees that never hold page content.
const DefaultRemoveSelector = "nav, footer, script, style, aside, .sidebar, .navigation, noscript, svg"

// Extractor pulls page text using CSS selectors.
type Extractor struct {
	remove string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRemove adds selectors for subtrees stripped before text extraction.
func WithRemove(selectors ...string) Option {
	return func(e *Extractor) {
		for _, s := range selectors {
			if s = strings.TrimSpace(s); s != "" {
				e.remove += ", " + s
			}
		}
	}
}

// New creates an extractor with the default removal list.
func New(opts ...Option) *Extractor {
	e := &Extractor{remove: DefaultRemoveSelector}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SupportedMIMETypes returns the content types this extractor handles.
// An empty Content-Type is treated as HTML.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Extract tries each selector in order. The first selector whose first
// node has visible text after cleaning wins. No winner is ErrNoContent.
func (e *Extractor) Extract(ctx context.Context, page *domain.RawPage, selectors []string) (*domain.SourceDocument, error) {
	if page == nil {
		return nil, domain.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !e.supports(page.ContentType) {
		return nil, fmt.Errorf("%w: %s: unsupported content type %q", domain.ErrParse, page.URL, page.ContentType)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrParse, page.URL, err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = domain.UntitledPage
	}

	for _, sel := range selectors {
		text, ok := e.tryExtract(doc, sel)
		if !ok {
			continue
		}
		matched := sel
		return &domain.SourceDocument{
			URL:                page.URL,
			Title:              title,
			RawText:            text,
			ExtractionSelector: &matched,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s (tried %s)", domain.ErrNoContent, page.URL, strings.Join(selectors, ", "))
}

// tryExtract returns the cleaned text of sel's first match.
// An invalid selector simply does not match.
func (e *Extractor) tryExtract(doc *goquery.Document, sel string) (text string, ok bool) {
	defer func() {
		if recover() != nil {
			text, ok = "", false
		}
	}()

	node := doc.Find(sel).First()
	if node.Length() == 0 {
		return "", false
	}

	clean := node.Clone()
	clean.Find(e.remove).Remove()

	text = visibleText(clean)
	return text, text != ""
}

func (e *Extractor) supports(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	for _, t := range e.SupportedMIMETypes() {
		if mediaType == t {
			return true
		}
	}
	return false
}

// visibleText joins the trimmed, non-empty text nodes under sel with "\n".
func visibleText(sel *goquery.Selection) string {
	var lines []string
	var walk func(n *nethtml.Node)
	walk = func(n *nethtml.Node) {
		if n.Type == nethtml.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				lines = append(lines, s)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(lines, "\n")
}
