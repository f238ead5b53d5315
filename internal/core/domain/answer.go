package domain

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// Fixed user-facing strings for chat answers.
const (
	// ApologyNoAnswer replaces an empty model answer.
	ApologyNoAnswer = "Sorry, I could not find an answer. The documentation may not cover this, " +
		"or the question may need to be more specific."

	// ApologyUnavailable replaces the answer when a provider call fails.
	ApologyUnavailable = "Sorry, I cannot answer right now. Please contact the administrator."

	// DefaultLinkTitle is used when a source URL has no usable path segment.
	DefaultLinkTitle = "Document"
)

// SourceLink is a cited page.
type SourceLink struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Answer is the chat model's reply plus its cited sources.
type Answer struct {
	Text    string       `json:"answer"`
	Sources []SourceLink `json:"sources"`

	// GeneratedQuestion is the standalone question used for retrieval.
	GeneratedQuestion string `json:"generated_question,omitempty"`
}

// LinkTitle derives a readable title from the last non-empty path segment
// of a URL: hyphens become spaces and words are title-cased.
func LinkTitle(rawURL string) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		path = u.Path
	}
	segments := strings.Split(path, "/")
	segment := ""
	for i := len(segments) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(segments[i]); s != "" {
			segment = s
			break
		}
	}
	if segment == "" {
		return DefaultLinkTitle
	}
	if unescaped, err := url.PathUnescape(segment); err == nil {
		segment = unescaped
	}
	return titleCase(strings.ReplaceAll(segment, "-", " "))
}

// titleCase upper-cases the first letter of each run of letters and
// lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

// DedupeSources returns one link per source URL, in first-seen order.
// Records without a source are skipped.
func DedupeSources(records []StoredRecord) []SourceLink {
	seen := make(map[string]struct{}, len(records))
	var links []SourceLink
	for i := range records {
		src := records[i].Source()
		if src == "" {
			continue
		}
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		links = append(links, SourceLink{URL: src, Title: LinkTitle(src)})
	}
	return links
}

// ReferencesHeading introduces the cited sources in a rendered answer.
const ReferencesHeading = "**References:**"

// Markdown renders the answer text followed by the cited sources as a
// markdown link list. Answers without sources render as plain text.
func (a *Answer) Markdown() string {
	if len(a.Sources) == 0 {
		return a.Text
	}
	var b strings.Builder
	b.WriteString(a.Text)
	b.WriteString("\n\n---\n")
	b.WriteString(ReferencesHeading)
	b.WriteString("\n")
	for _, s := range a.Sources {
		fmt.Fprintf(&b, "- [%s](%s)\n", s.Title, s.URL)
	}
	return b.String()
}
