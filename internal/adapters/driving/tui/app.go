package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driving/tui/keymap"
	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driving/tui/messages"
	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driving/tui/styles"
	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driving/tui/views/chat"
	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driving/tui/views/history"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	// styles holds the TUI styles.
	styles *styles.Styles

	// chatView is the conversation view.
	chatView *chat.View

	// historyView lists saved conversations.
	historyView *history.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		chatView:    chat.NewView(s, km, ports.Chat, ports.Suggest, ports.History),
		historyView: history.NewView(s, km, ports.History),
		currentView: messages.ViewChat,
	}, nil
}

// WithContext sets the context for the app and its views.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chatView.WithContext(ctx)
	a.historyView.WithContext(ctx)
	return a
}

// WithTargetName sets the documentation name shown in the header.
func (a *App) WithTargetName(name string) *App {
	a.chatView.SetTargetName(name)
	return a
}

// Init implements tea.Model.
// It runs initial commands when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("gitbook-qa"),
		a.chatView.Init(),
	)
}

// Update implements tea.Model.
// It handles messages and updates the model state.
//
//nolint:gocyclo // central message handler requires complexity
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		// Global quit with ctrl+c
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

		switch a.currentView {
		case messages.ViewChat:
			a.chatView, cmd = a.chatView.Update(msg)
		case messages.ViewHistory:
			a.historyView, cmd = a.historyView.Update(msg)
		case messages.ViewHelp:
			if msg.Type == tea.KeyEsc {
				a.currentView = messages.ViewChat
			}
		}
		return a, cmd

	case messages.ViewChanged:
		a.currentView = msg.View
		switch msg.View {
		case messages.ViewHistory:
			return a, a.historyView.Init()
		case messages.ViewChat:
			return a, a.chatView.Focus()
		case messages.ViewHelp:
		}
		return a, nil

	// Answers and saves land in the chat view even while another view is shown.
	case messages.AnswerReceived, messages.SuggestionsLoaded,
		messages.ConversationSaved, spinner.TickMsg:
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd

	case messages.ConversationsLoaded, messages.ConversationDeleted:
		a.historyView, cmd = a.historyView.Update(msg)
		return a, cmd

	case messages.HistoryCleared:
		a.historyView, cmd = a.historyView.Update(msg)
		if msg.Err != nil {
			return a, cmd
		}
		// The open conversation was removed with the rest.
		return a, tea.Batch(cmd, a.chatView.Reset())

	case messages.ConversationSelected:
		return a, a.chatView.Load(msg.ID)

	case messages.ConversationLoaded:
		if msg.Err != nil {
			a.err = msg.Err
			a.historyView, cmd = a.historyView.Update(messages.ErrorOccurred{Err: msg.Err})
			return a, cmd
		}
		a.chatView.SetConversation(msg.Conversation, msg.Memory)
		a.currentView = messages.ViewChat
		return a, a.chatView.Focus()

	case messages.ErrorOccurred:
		a.err = msg.Err
		switch a.currentView {
		case messages.ViewChat:
			a.chatView, cmd = a.chatView.Update(msg)
		case messages.ViewHistory:
			a.historyView, cmd = a.historyView.Update(msg)
		case messages.ViewHelp:
		}
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	// Forward other messages (cursor blink) to the chat view.
	if a.currentView == messages.ViewChat {
		a.chatView, cmd = a.chatView.Update(msg)
	}
	return a, cmd
}

// View implements tea.Model.
// It renders the current view as a string.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewHistory:
		return a.historyView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	case messages.ViewChat:
		return a.chatView.View()
	default:
		return a.chatView.View()
	}
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	return `Help

Chat:
  (type)      Enter a question
  enter       Ask it, or ask the highlighted suggestion
  tab         Highlight the next suggested question
  pgup/pgdown Scroll the conversation
  ctrl+n      Start a new conversation
  ctrl+r      Saved conversations
  f1          This help
  ctrl+c      Quit

Saved conversations:
  j/k, ↑/↓    Navigate
  enter       Open conversation
  d           Delete conversation
  C           Delete all conversations
  esc         Back to chat

[esc] back to chat`
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Chat returns the chat view.
func (a *App) Chat() *chat.View {
	return a.chatView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.chatView.SetDimensions(width, height)
	a.historyView.SetDimensions(width, height)
}
