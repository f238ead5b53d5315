// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewChat is the conversation view.
	ViewChat ViewType = iota
	// ViewHistory lists saved conversations.
	ViewHistory
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewChat:
		return "chat"
	case ViewHistory:
		return "history"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// QuestionSubmitted is sent when the user asks a question.
type QuestionSubmitted struct {
	Question string
}

// AnswerReceived carries the answer to a question. Answer is set even when
// Err is, holding the apology to display.
type AnswerReceived struct {
	Question string
	Answer   *domain.Answer
	Err      error
}

// SuggestionsLoaded carries questions to offer the user.
type SuggestionsLoaded struct {
	Questions []string
}

// NewConversation starts a fresh conversation.
type NewConversation struct{}

// ConversationsLoaded carries the saved conversation list.
type ConversationsLoaded struct {
	Conversations []domain.ConversationSummary
	Err           error
}

// ConversationSelected signals a saved conversation was picked.
type ConversationSelected struct {
	ID string
}

// ConversationLoaded carries a restored conversation and its memory.
type ConversationLoaded struct {
	Conversation *domain.Conversation
	Memory       *domain.ConversationMemory
	Err          error
}

// ConversationSaved signals the current conversation was persisted.
type ConversationSaved struct {
	ID    string
	Title string
	Err   error
}

// ConversationDeleted signals a saved conversation was removed.
type ConversationDeleted struct {
	ID  string
	Err error
}

// HistoryCleared signals every saved conversation was removed.
type HistoryCleared struct {
	Err error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
