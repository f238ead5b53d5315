// Package tui provides the interactive chat terminal interface for gitbook-qa.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the TUI.
type Ports struct {
	// Chat answers questions.
	Chat driving.ChatService

	// Suggest proposes questions to ask.
	Suggest driving.SuggestionService

	// History saves and restores conversations. Optional: without it
	// conversations live only for the session.
	History driving.HistoryService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(
	chat driving.ChatService,
	suggest driving.SuggestionService,
	history driving.HistoryService,
) *Ports {
	return &Ports{
		Chat:    chat,
		Suggest: suggest,
		History: history,
	}
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	if p.Suggest == nil {
		return ErrMissingSuggestionService
	}
	return nil
}
