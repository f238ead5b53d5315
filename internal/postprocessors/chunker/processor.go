// Package chunker provides a recursive character text splitter.
package chunker

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// DefaultSeparators are tried in order, coarsest first.
// The empty separator splits between characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Processor splits document text into chunks of at most chunkSize runes.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator list.
func WithSeparators(seps ...string) Option {
	return func(p *Processor) {
		if len(seps) > 0 {
			p.separators = append([]string(nil), seps...)
		}
	}
}

// KeepAtomic disables splitting inside words. A single word longer than
// the chunk size becomes a chunk of its own.
func KeepAtomic() Option {
	return func(p *Processor) {
		seps := make([]string, 0, len(p.separators))
		for _, s := range p.separators {
			if s != "" {
				seps = append(seps, s)
			}
		}
		p.separators = seps
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 5
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document text into chunks.
// Input chunks are ignored; this processor creates new chunks from document text.
func (p *Processor) Process(ctx context.Context, doc *domain.SourceDocument, _ []domain.Chunk) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(doc.RawText) == "" {
		return nil, nil
	}

	texts := p.Split(doc.RawText)
	meta := doc.Metadata()

	chunks := make([]domain.Chunk, 0, len(texts))
	for _, text := range texts {
		chunks = append(chunks, domain.Chunk{Text: text, Metadata: meta})
	}
	return chunks, nil
}

// Split returns the trimmed, non-empty chunks of text.
func (p *Processor) Split(text string) []string {
	return p.split(text, p.separators)
}

func (p *Processor) split(text string, separators []string) []string {
	// Pick the first separator present in the text. The remaining finer
	// separators are used for pieces that are still too long.
	sep := ""
	var finer []string
	if len(separators) > 0 {
		sep = separators[len(separators)-1]
	}
	for i, s := range separators {
		if s == "" {
			sep = s
			break
		}
		if strings.Contains(text, s) {
			sep = s
			finer = separators[i+1:]
			break
		}
	}

	var out, pending []string
	for _, piece := range splitKeep(text, sep) {
		if runeLen(piece) < p.chunkSize {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			out = append(out, p.merge(pending)...)
			pending = nil
		}
		if len(finer) == 0 {
			if s := strings.TrimSpace(piece); s != "" {
				out = append(out, s)
			}
			continue
		}
		out = append(out, p.split(piece, finer)...)
	}
	if len(pending) > 0 {
		out = append(out, p.merge(pending)...)
	}
	return out
}

// merge packs pieces greedily into chunks. Trailing pieces of a finished
// chunk whose total length fits within the overlap start the next chunk.
func (p *Processor) merge(pieces []string) []string {
	var out, current []string
	total := 0

	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > p.chunkSize && len(current) > 0 {
			if s := strings.TrimSpace(strings.Join(current, "")); s != "" {
				out = append(out, s)
			}
			for len(current) > 0 && (total > p.overlap || total+n > p.chunkSize) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}

	if s := strings.TrimSpace(strings.Join(current, "")); s != "" {
		out = append(out, s)
	}
	return out
}

// splitKeep splits text after each occurrence of sep so that joining the
// pieces reproduces text. An empty sep splits into single runes.
func splitKeep(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.SplitAfter(text, sep)
	if n := len(parts); n > 0 && parts[n-1] == "" {
		parts = parts[:n-1]
	}
	return parts
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
