package domain

import "time"

// ExtractionStrategy controls which content selectors are tried per page.
type ExtractionStrategy string

// Available extraction strategies.
const (
	// StrategySelectors tries the preferred selector then the generic fallbacks.
	StrategySelectors ExtractionStrategy = "selectors"

	// StrategyPreferredOnly tries only the preferred selector.
	StrategyPreferredOnly ExtractionStrategy = "preferred-only"
)

// IsValid returns true if the strategy is recognised.
func (s ExtractionStrategy) IsValid() bool {
	return s == StrategySelectors || s == StrategyPreferredOnly
}

// FallbackSelectors are tried in order after the preferred selector.
var FallbackSelectors = []string{
	"article",
	"main",
	"div.content",
	"div.markdown",
	"div[role='main']",
	"body",
}

// Ingestion defaults.
const (
	DefaultSelector          = "article.page-body"
	DefaultChunkSize         = 1000
	DefaultChunkOverlap      = 150
	DefaultMinDocumentLength = 30
	DefaultRequestDelay      = 500 * time.Millisecond
	DefaultEmbedBatchSize    = 64
)

// SelectorsFor returns the ordered selector list for a preferred selector.
// Duplicates of the preferred selector are not repeated.
func SelectorsFor(preferred string, strategy ExtractionStrategy) []string {
	if strategy == StrategyPreferredOnly {
		if preferred == "" {
			preferred = DefaultSelector
		}
		return []string{preferred}
	}
	out := make([]string, 0, len(FallbackSelectors)+1)
	if preferred != "" {
		out = append(out, preferred)
	}
	for _, s := range FallbackSelectors {
		if s != preferred {
			out = append(out, s)
		}
	}
	return out
}

// IngestOptions configures one ingestion run.
type IngestOptions struct {
	// BaseURL is the documentation site root.
	BaseURL string

	// SitemapURL defaults to BaseURL + "/sitemap.xml" when empty.
	SitemapURL string

	// Selector is the preferred content selector.
	Selector string

	Strategy     ExtractionStrategy
	ChunkSize    int
	ChunkOverlap int

	// Clear wipes the vector store before writing.
	Clear bool

	RequestDelay time.Duration

	// SitemapOnly aborts the run when the sitemap yields no URLs.
	SitemapOnly bool

	MinDocumentLength int
}

// WithDefaults returns a copy with unset values replaced by defaults.
//
// Options with no tuning set at all (chunk size, overlap, delay and minimum
// length all zero) get every default. Once any of them is set, a zero
// overlap means no overlap and a zero delay means no pause between requests.
func (o IngestOptions) WithDefaults() IngestOptions {
	if !o.tuned() {
		o.ChunkOverlap = DefaultChunkOverlap
		o.RequestDelay = DefaultRequestDelay
	}
	if o.Selector == "" {
		o.Selector = DefaultSelector
	}
	if o.Strategy == "" {
		o.Strategy = StrategySelectors
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		o.ChunkOverlap = DefaultChunkOverlap
		if o.ChunkOverlap >= o.ChunkSize {
			o.ChunkOverlap = o.ChunkSize / 5
		}
	}
	if o.RequestDelay < 0 {
		o.RequestDelay = 0
	}
	if o.MinDocumentLength <= 0 {
		o.MinDocumentLength = DefaultMinDocumentLength
	}
	return o
}

func (o IngestOptions) tuned() bool {
	return o.ChunkSize != 0 || o.ChunkOverlap != 0 || o.RequestDelay != 0 || o.MinDocumentLength != 0
}

// IngestReport summarises an ingestion run.
type IngestReport struct {
	URLs       int
	Fetched    int
	Failed     int
	Filtered   int
	Chunks     int
	Stored     int
	Skipped    int
	Cleared    bool
	FailedURLs []string
	Duration   time.Duration
}

// IngestStage identifies a point in the ingestion pipeline.
type IngestStage string

// Ingestion stages reported through IngestProgress.
const (
	StageResolve IngestStage = "resolve"
	StageExtract IngestStage = "extract"
	StageChunk   IngestStage = "chunk"
	StageStore   IngestStage = "store"
	StageDone    IngestStage = "done"
)

// IngestEvent is one progress notification.
type IngestEvent struct {
	Stage   IngestStage
	URL     string
	Current int
	Total   int
	Err     error
}

// IngestProgress receives progress events. It may be nil.
type IngestProgress func(IngestEvent)
