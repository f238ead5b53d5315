package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

func TestExtractConversationID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid conversation URI",
			uri:      "gitbook-qa://conversations/abc-123",
			expected: "abc-123",
		},
		{
			name:     "invalid prefix",
			uri:      "file://conversations/abc-123",
			expected: "",
		},
		{
			name:     "nested path",
			uri:      "gitbook-qa://conversations/abc/turns",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractConversationID(tt.uri)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleConversationsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil history service returns empty list", func(t *testing.T) {
		server, err := NewServer(&Ports{Chat: &mockChatService{}})
		require.NoError(t, err)

		result, err := server.handleConversationsResource(ctx, makeReadResourceRequest("gitbook-qa://conversations"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns saved conversations", func(t *testing.T) {
		history := &mockHistoryService{list: []domain.ConversationSummary{{ID: "c1", Title: "How do I instal..."}}}
		server, err := NewServer(&Ports{Chat: &mockChatService{}, History: history})
		require.NoError(t, err)

		result, err := server.handleConversationsResource(ctx, makeReadResourceRequest("gitbook-qa://conversations"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Contains(t, result.Contents[0].Text, `"id": "c1"`)
		assert.Contains(t, result.Contents[0].Text, "How do I instal...")
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		history := &mockHistoryService{err: errors.New("disk full")}
		server, err := NewServer(&Ports{Chat: &mockChatService{}, History: history})
		require.NoError(t, err)

		_, err = server.handleConversationsResource(ctx, makeReadResourceRequest("gitbook-qa://conversations"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing conversations")
	})
}

func TestServer_handleConversationResource(t *testing.T) {
	ctx := context.Background()
	history := &mockHistoryService{conversations: map[string]*domain.Conversation{
		"c1": {ID: "c1", Title: "Login", Turns: []domain.Turn{
			{Role: domain.RoleUser, Content: "How do I log in?"},
			{Role: domain.RoleAssistant, Content: "Use SSO."},
		}},
	}}

	t.Run("renders transcript", func(t *testing.T) {
		server, err := NewServer(&Ports{Chat: &mockChatService{}, History: history})
		require.NoError(t, err)

		result, err := server.handleConversationResource(ctx, makeReadResourceRequest("gitbook-qa://conversations/c1"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		text := result.Contents[0].Text
		assert.Contains(t, text, "# Login")
		assert.Contains(t, text, "**user:**")
		assert.Contains(t, text, "Use SSO.")
	})

	t.Run("unknown id returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Chat: &mockChatService{}, History: history})
		require.NoError(t, err)

		_, err = server.handleConversationResource(ctx, makeReadResourceRequest("gitbook-qa://conversations/missing"))

		require.Error(t, err)
	})

	t.Run("nil history service returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Chat: &mockChatService{}})
		require.NoError(t, err)

		_, err = server.handleConversationResource(ctx, makeReadResourceRequest("gitbook-qa://conversations/c1"))

		require.Error(t, err)
	})
}
