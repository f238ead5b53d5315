package postprocessors

import (
	"fmt"

	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driven"
	"github.com/gitbook-qa/gitbook-qa/internal/postprocessors/chunker"
	"github.com/gitbook-qa/gitbook-qa/internal/postprocessors/dedupe"
	"github.com/gitbook-qa/gitbook-qa/internal/postprocessors/hasher"
)

// DefaultOrder is the processor sequence used for ingestion.
var DefaultOrder = []string{"chunker", "hasher", "dedupe"}

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("hasher", func(map[string]any) (driven.PostProcessor, error) { return hasher.New(), nil })
	r.Register("dedupe", func(map[string]any) (driven.PostProcessor, error) { return dedupe.New(), nil })
}

// Build creates a pipeline from processor names. cfg holds per-processor
// settings keyed by processor name.
func Build(r *Registry, names []string, cfg map[string]map[string]any) (*Pipeline, error) {
	p := NewPipeline()
	for _, name := range names {
		proc, err := r.Build(name, cfg[name])
		if err != nil {
			return nil, err
		}
		p.Add(proc)
	}
	return p, nil
}

// NewIngestPipeline builds the default chunk, hash and dedupe pipeline.
func NewIngestPipeline(chunkSize, overlap int) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)

	p, err := Build(r, DefaultOrder, map[string]map[string]any{
		"chunker": {"chunk_size": chunkSize, "overlap": overlap},
	})
	if err != nil {
		return nil, fmt.Errorf("build ingest pipeline: %w", err)
	}
	return p, nil
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Characters per chunk (default: 1000)
//   - overlap (int): Overlapping characters between chunks (default: 150)
//   - keep_atomic (bool): Never split inside a word
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size := getIntFromConfig(cfg, "chunk_size"); size > 0 {
			opts = append(opts, chunker.WithChunkSize(size))
		}
		if _, ok := cfg["overlap"]; ok {
			opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
		}
		if atomic, _ := cfg["keep_atomic"].(bool); atomic {
			opts = append(opts, chunker.KeepAtomic())
		}
	}

	return chunker.New(opts...), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
