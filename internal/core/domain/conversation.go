package domain

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Role identifies the author of a chat turn.
type Role string

// Chat roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// WelcomeMessage opens every new conversation.
const WelcomeMessage = "Hello! Ask me anything about the documentation."

// titleLength is the number of characters of the first question kept in a title.
const titleLength = 15

// Turn is one message in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is an ordered list of turns with an identity and title.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversation starts a conversation holding only the welcome turn.
func NewConversation(id string, now time.Time) *Conversation {
	return &Conversation{
		ID:        id,
		Turns:     []Turn{{Role: RoleAssistant, Content: WelcomeMessage}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasUserTurns reports whether anything beyond the welcome turn was said.
func (c *Conversation) HasUserTurns() bool {
	for _, t := range c.Turns {
		if t.Role == RoleUser {
			return true
		}
	}
	return false
}

// FirstUserMessage returns the first user turn's content, or "".
func (c *Conversation) FirstUserMessage() string {
	for _, t := range c.Turns {
		if t.Role == RoleUser {
			return t.Content
		}
	}
	return ""
}

// Append adds a turn and bumps UpdatedAt.
func (c *Conversation) Append(role Role, content string, now time.Time) {
	c.Turns = append(c.Turns, Turn{Role: role, Content: content})
	c.UpdatedAt = now
}

// EnsureTitle derives a title from the first user message,
// falling back to a timestamp title.
func (c *Conversation) EnsureTitle(now time.Time) {
	if c.Title != "" {
		return
	}
	if first := c.FirstUserMessage(); first != "" {
		c.Title = TitleFromMessage(first)
		return
	}
	c.Title = FallbackTitle(now)
}

// TitleFromMessage keeps the first 15 characters, adding "..." when truncated.
func TitleFromMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	if utf8.RuneCountInString(msg) <= titleLength {
		return msg
	}
	return string([]rune(msg)[:titleLength]) + "..."
}

// FallbackTitle is used when a conversation has no user message.
func FallbackTitle(now time.Time) string {
	return fmt.Sprintf("Conversation %s", now.Format("2006-01-02 15:04"))
}

// ConversationSummary is an entry in the saved conversation list.
type ConversationSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ConversationMemory is the ordered turn buffer fed to the chat model.
// It is safe for concurrent use.
type ConversationMemory struct {
	mu    sync.Mutex
	turns []Turn
}

// NewConversationMemory creates an empty memory.
func NewConversationMemory() *ConversationMemory {
	return &ConversationMemory{}
}

// MemoryFromTurns rebuilds memory from saved turns. Only complete
// user/assistant exchanges are kept; the welcome turn is skipped.
func MemoryFromTurns(turns []Turn) *ConversationMemory {
	m := NewConversationMemory()
	pending := ""
	for _, t := range turns {
		switch t.Role {
		case RoleUser:
			pending = t.Content
		case RoleAssistant:
			if pending != "" {
				m.AddExchange(pending, t.Content)
				pending = ""
			}
		}
	}
	return m
}

// AddExchange records one question and its answer.
func (m *ConversationMemory) AddExchange(question, answer string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns,
		Turn{Role: RoleUser, Content: question},
		Turn{Role: RoleAssistant, Content: answer},
	)
}

// Turns returns a copy of the buffered turns.
func (m *ConversationMemory) Turns() []Turn {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

// Len returns the number of buffered turns.
func (m *ConversationMemory) Len() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}

// Clear empties the buffer.
func (m *ConversationMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = nil
}
