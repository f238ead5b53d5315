package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// Metadata keys persisted with every stored record.
const (
	MetaSource       = "source"
	MetaTitle        = "title"
	MetaSelectorUsed = "selector_used"
	MetaContentHash  = "content_hash"
)

// UntitledPage is used when a page has no <title>.
const UntitledPage = "Untitled"

// SourceDocument is the text extracted from one documentation page.
// It is immutable once produced and discarded after chunking.
type SourceDocument struct {
	// URL is the page location, unique per crawl.
	URL string

	// Title is the page <title>, or UntitledPage.
	Title string

	// RawText is the cleaned visible text of the matched content node.
	RawText string

	// ExtractionSelector is the content selector that matched.
	// Nil when the document did not come from selector extraction.
	ExtractionSelector *string
}

// SelectorUsed returns the matched selector or an empty string.
func (d *SourceDocument) SelectorUsed() string {
	if d.ExtractionSelector == nil {
		return ""
	}
	return *d.ExtractionSelector
}

// Metadata builds the chunk metadata inherited by every chunk of the document.
func (d *SourceDocument) Metadata() ChunkMetadata {
	return ChunkMetadata{
		Source:       d.URL,
		Title:        d.Title,
		SelectorUsed: d.SelectorUsed(),
	}
}

// ChunkMetadata is copied by value from the parent document into each chunk.
type ChunkMetadata struct {
	Source       string
	Title        string
	SelectorUsed string

	// ContentHash identifies the chunk content across ingestion runs.
	ContentHash string
}

// Map converts the metadata into the JSON object stored alongside a record.
func (m ChunkMetadata) Map() map[string]any {
	out := map[string]any{
		MetaSource: m.Source,
		MetaTitle:  m.Title,
	}
	if m.SelectorUsed != "" {
		out[MetaSelectorUsed] = m.SelectorUsed
	}
	if m.ContentHash != "" {
		out[MetaContentHash] = m.ContentHash
	}
	return out
}

// Chunk is a bounded slice of a source document's text.
type Chunk struct {
	Text     string
	Metadata ChunkMetadata
}

// ContentHash returns the SHA-256 of the source URL and text, hex encoded.
func ContentHash(source, text string) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// EmbeddedChunk is a chunk paired with its embedding vector.
type EmbeddedChunk struct {
	Chunk
	Embedding []float32
}

// StoredRecord is a chunk as held by the vector store.
type StoredRecord struct {
	// ID is a UUID generated at write time.
	ID string

	Content string

	Metadata map[string]any

	Embedding []float32

	// Similarity is 1 - cosine distance; only set on search results.
	Similarity float64
}

// Source returns the record's source URL, if any.
func (r *StoredRecord) Source() string {
	return metaString(r.Metadata, MetaSource)
}

// Title returns the record's page title, if any.
func (r *StoredRecord) Title() string {
	return metaString(r.Metadata, MetaTitle)
}

// ContentHash returns the record's content hash, if any.
func (r *StoredRecord) ContentHash() string {
	return metaString(r.Metadata, MetaContentHash)
}

func metaString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// RawPage is an undecoded page body as fetched from the site.
type RawPage struct {
	URL         string
	ContentType string
	Body        []byte
}
