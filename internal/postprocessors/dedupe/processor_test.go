package dedupe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

func TestProcessor_Process_DropsRepeatedHashes(t *testing.T) {
	chunks := []domain.Chunk{
		{Text: "one", Metadata: domain.ChunkMetadata{ContentHash: "h1"}},
		{Text: "two", Metadata: domain.ChunkMetadata{ContentHash: "h2"}},
		{Text: "one", Metadata: domain.ChunkMetadata{ContentHash: "h1"}},
	}

	out, err := New().Process(context.Background(), &domain.SourceDocument{}, chunks)
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Equal(t, "one", out[0].Text)
	assert.Equal(t, "two", out[1].Text)
}

func TestProcessor_Process_FallsBackToText(t *testing.T) {
	chunks := []domain.Chunk{{Text: "same"}, {Text: "same"}, {Text: "other"}}

	out, err := New().Process(context.Background(), &domain.SourceDocument{}, chunks)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestProcessor_Name(t *testing.T) {
	assert.Equal(t, "dedupe", New().Name())
}
