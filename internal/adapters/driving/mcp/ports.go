package mcp

import (
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Chat answers questions from the indexed documentation.
	Chat driving.ChatService

	// Suggest proposes questions. Optional.
	Suggest driving.SuggestionService

	// History exposes saved conversations as resources. Optional.
	History driving.HistoryService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}
