// Package mcp provides an MCP (Model Context Protocol) server adapter.
// It lets AI assistants ask questions about the indexed documentation
// and fetch suggested questions.
package mcp

import "errors"

// ErrMissingChatService is returned when the chat service is not provided.
var ErrMissingChatService = errors.New("mcp: chat service is required")
