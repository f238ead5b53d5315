// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driving/tui/styles"
	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

// ConversationList displays saved conversations in a navigable list.
type ConversationList struct {
	items    []domain.ConversationSummary
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewConversationList creates a new conversation list component.
func NewConversationList(s *styles.Styles) *ConversationList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ConversationList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (c *ConversationList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (c *ConversationList) Update(msg tea.Msg) (*ConversationList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			c.MoveUp()
		case "down", "j":
			c.MoveDown()
		}
	}
	return c, nil
}

// View renders the list.
func (c *ConversationList) View() string {
	if len(c.items) == 0 {
		return c.styles.Muted.Render("No saved conversations")
	}

	lines := make([]string, 0, len(c.items)+2)
	lines = append(lines, c.styles.Subtitle.Render(fmt.Sprintf("Saved conversations (%d)", len(c.items))), "")

	visible := c.height - 2
	if visible < 1 {
		visible = 1
	}
	start := 0
	if c.selected >= visible {
		start = c.selected - visible + 1
	}
	end := start + visible
	if end > len(c.items) {
		end = len(c.items)
	}

	for i := start; i < end; i++ {
		lines = append(lines, c.renderItem(i))
	}
	return strings.Join(lines, "\n")
}

func (c *ConversationList) renderItem(index int) string {
	title := c.items[index].Title
	if title == "" {
		title = c.items[index].ID
	}
	maxLen := c.width - 4
	if maxLen < 10 {
		maxLen = 10
	}
	if r := []rune(title); len(r) > maxLen {
		title = string(r[:maxLen-3]) + "..."
	}

	if index == c.selected {
		return c.styles.Selected.Render("> " + title)
	}
	return c.styles.Normal.Render("  " + title)
}

// SetItems replaces the list, keeping the selection in range.
func (c *ConversationList) SetItems(items []domain.ConversationSummary) {
	c.items = items
	if c.selected >= len(items) {
		c.selected = len(items) - 1
	}
	if c.selected < 0 {
		c.selected = 0
	}
}

// Items returns the listed conversations.
func (c *ConversationList) Items() []domain.ConversationSummary {
	return c.items
}

// Selected returns the index of the selected conversation.
func (c *ConversationList) Selected() int {
	return c.selected
}

// SelectedItem returns the selected conversation, or nil if the list is empty.
func (c *ConversationList) SelectedItem() *domain.ConversationSummary {
	if c.selected < 0 || c.selected >= len(c.items) {
		return nil
	}
	return &c.items[c.selected]
}

// MoveUp moves selection up.
func (c *ConversationList) MoveUp() {
	if c.selected > 0 {
		c.selected--
	}
}

// MoveDown moves selection down.
func (c *ConversationList) MoveDown() {
	if c.selected < len(c.items)-1 {
		c.selected++
	}
}

// SetDimensions sets the component dimensions.
func (c *ConversationList) SetDimensions(width, height int) {
	c.width = width
	c.height = height
}

// Count returns the number of conversations.
func (c *ConversationList) Count() int {
	return len(c.items)
}
