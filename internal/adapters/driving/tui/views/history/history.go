// Package history provides the saved conversation view for the TUI.
package history

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driving/tui/components/list"
	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driving/tui/components/status"
	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driving/tui/keymap"
	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driving/tui/messages"
	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driving/tui/styles"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driving"
)

// ErrNoHistoryService indicates that no history service was provided.
var ErrNoHistoryService = errors.New("history service is required")

// View lists saved conversations and lets the user open or delete them.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	list      *list.ConversationList
	statusbar *status.Bar

	history driving.HistoryService
	ctx     context.Context

	width        int
	height       int
	err          error
	confirmClear bool
}

// NewView creates a history view.
func NewView(s *styles.Styles, km *keymap.KeyMap, history driving.HistoryService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	bar := status.NewBar(s, km)
	bar.SetState(status.StateHistory)

	return &View{
		styles:    s,
		keymap:    km,
		list:      list.NewConversationList(s),
		statusbar: bar,
		history:   history,
		ctx:       context.Background(),
		width:     80,
		height:    24,
	}
}

// WithContext sets the context for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init reloads the saved conversation list.
func (v *View) Init() tea.Cmd {
	v.confirmClear = false
	return v.load()
}

func (v *View) load() tea.Cmd {
	if v.history == nil {
		return func() tea.Msg {
			return messages.ConversationsLoaded{Err: ErrNoHistoryService}
		}
	}
	ctx, history := v.ctx, v.history
	return func() tea.Msg {
		convs, err := history.List(ctx)
		return messages.ConversationsLoaded{Conversations: convs, Err: err}
	}
}

// Update handles messages for the history view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.ConversationsLoaded:
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.err = nil
		v.list.SetItems(msg.Conversations)
		return v, nil

	case messages.ConversationDeleted:
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.statusbar.SetMessage("Conversation deleted")
		return v, v.load()

	case messages.HistoryCleared:
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.statusbar.SetMessage("All conversations deleted")
		return v, v.load()

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	keyStr := msg.String()

	if v.confirmClear {
		v.confirmClear = false
		if keyStr == "y" || keyStr == "Y" {
			return v, v.clear()
		}
		v.statusbar.SetMessage("")
		return v, nil
	}

	switch {
	case keymap.Matches(keyStr, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewChat}
		}

	case keymap.Matches(keyStr, v.keymap.Select):
		item := v.list.SelectedItem()
		if item == nil {
			return v, nil
		}
		id := item.ID
		return v, func() tea.Msg {
			return messages.ConversationSelected{ID: id}
		}

	case keymap.Matches(keyStr, v.keymap.Delete):
		item := v.list.SelectedItem()
		if item == nil || v.history == nil {
			return v, nil
		}
		return v, v.remove(item.ID)

	case keymap.Matches(keyStr, v.keymap.ClearAll):
		if v.list.Count() == 0 || v.history == nil {
			return v, nil
		}
		v.confirmClear = true
		v.statusbar.SetMessage("Delete every saved conversation? (y/n)")
		return v, nil
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

func (v *View) remove(id string) tea.Cmd {
	ctx, history := v.ctx, v.history
	return func() tea.Msg {
		return messages.ConversationDeleted{ID: id, Err: history.Delete(ctx, id)}
	}
}

func (v *View) clear() tea.Cmd {
	ctx, history := v.ctx, v.history
	return func() tea.Msg {
		return messages.HistoryCleared{Err: history.Clear(ctx)}
	}
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetMessage("")
}

// View renders the history view.
func (v *View) View() string {
	body := v.list.View()
	if v.err != nil {
		body = v.styles.Error.Render(fmt.Sprintf("Error: %v", v.err))
	}

	// The bar shows key hints in history state; status text goes above it.
	notice := ""
	if msg := v.statusbar.Message(); msg != "" {
		notice = v.styles.Warning.Render(msg)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		v.styles.Title.Render("Conversation history"),
		"",
		body,
		"",
		notice,
		v.statusbar.View(),
	)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.list.SetDimensions(width, max(height-6, 3))
	v.statusbar.SetWidth(width)
}

// Count returns the number of listed conversations.
func (v *View) Count() int {
	return v.list.Count()
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// ConfirmingClear reports whether the view is waiting for clear confirmation.
func (v *View) ConfirmingClear() bool {
	return v.confirmClear
}
