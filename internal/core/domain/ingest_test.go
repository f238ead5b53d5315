package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractionStrategy_IsValid(t *testing.T) {
	assert.True(t, StrategySelectors.IsValid())
	assert.True(t, StrategyPreferredOnly.IsValid())
	assert.False(t, ExtractionStrategy("").IsValid())
	assert.False(t, ExtractionStrategy("crawl").IsValid())
}

func TestSelectorsFor(t *testing.T) {
	tests := []struct {
		name      string
		preferred string
		strategy  ExtractionStrategy
		expected  []string
	}{
		{
			name:      "preferred first then fallbacks",
			preferred: "div.page-body",
			strategy:  StrategySelectors,
			expected:  []string{"div.page-body", "article", "main", "div.content", "div.markdown", "div[role='main']", "body"},
		},
		{
			name:      "default selector keeps the GitBook order",
			preferred: DefaultSelector,
			strategy:  StrategySelectors,
			expected:  []string{"article.page-body", "article", "main", "div.content", "div.markdown", "div[role='main']", "body"},
		},
		{
			name:      "preferred equal to a fallback is not repeated",
			preferred: "main",
			strategy:  StrategySelectors,
			expected:  []string{"main", "article", "div.content", "div.markdown", "div[role='main']", "body"},
		},
		{
			name:     "empty preferred uses fallbacks only",
			strategy: StrategySelectors,
			expected: []string{"article", "main", "div.content", "div.markdown", "div[role='main']", "body"},
		},
		{
			name:      "preferred only",
			preferred: "article.page-body",
			strategy:  StrategyPreferredOnly,
			expected:  []string{"article.page-body"},
		},
		{
			name:     "preferred only without selector",
			strategy: StrategyPreferredOnly,
			expected: []string{DefaultSelector},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SelectorsFor(tt.preferred, tt.strategy))
		})
	}
}

func TestIngestOptions_WithDefaults(t *testing.T) {
	o := IngestOptions{}.WithDefaults()
	assert.Equal(t, DefaultSelector, o.Selector)
	assert.Equal(t, StrategySelectors, o.Strategy)
	assert.Equal(t, DefaultChunkSize, o.ChunkSize)
	assert.Equal(t, DefaultChunkOverlap, o.ChunkOverlap)
	assert.Equal(t, DefaultMinDocumentLength, o.MinDocumentLength)
	assert.Equal(t, DefaultRequestDelay, o.RequestDelay)
}

func TestIngestOptions_WithDefaults_ZeroOverlapAndDelayOnceTuned(t *testing.T) {
	o := IngestOptions{ChunkSize: 800}.WithDefaults()
	assert.Equal(t, 800, o.ChunkSize)
	assert.Equal(t, 0, o.ChunkOverlap)
	assert.Equal(t, time.Duration(0), o.RequestDelay)
	assert.Equal(t, DefaultMinDocumentLength, o.MinDocumentLength)

	o = IngestOptions{MinDocumentLength: 50}.WithDefaults()
	assert.Equal(t, DefaultChunkSize, o.ChunkSize)
	assert.Equal(t, 0, o.ChunkOverlap)
	assert.Equal(t, time.Duration(0), o.RequestDelay)
}

func TestIngestOptions_WithDefaults_KeepsValues(t *testing.T) {
	o := IngestOptions{
		Selector:          "article",
		Strategy:          StrategyPreferredOnly,
		ChunkSize:         500,
		ChunkOverlap:      0,
		RequestDelay:      time.Second,
		MinDocumentLength: 10,
	}.WithDefaults()
	assert.Equal(t, "article", o.Selector)
	assert.Equal(t, StrategyPreferredOnly, o.Strategy)
	assert.Equal(t, 500, o.ChunkSize)
	assert.Equal(t, 0, o.ChunkOverlap)
	assert.Equal(t, time.Second, o.RequestDelay)
	assert.Equal(t, 10, o.MinDocumentLength)
}

func TestIngestOptions_WithDefaults_OverlapTooLarge(t *testing.T) {
	o := IngestOptions{ChunkSize: 100, ChunkOverlap: 100}.WithDefaults()
	assert.Equal(t, 20, o.ChunkOverlap)

	o = IngestOptions{ChunkSize: 400, ChunkOverlap: 500}.WithDefaults()
	assert.Equal(t, DefaultChunkOverlap, o.ChunkOverlap)
}
