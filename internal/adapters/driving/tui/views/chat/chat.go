// Package chat provides the conversation view for the TUI.
package chat

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driving/tui/components/input"
	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driving/tui/components/status"
	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driving/tui/keymap"
	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driving/tui/messages"
	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driving/tui/styles"
	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driving"
)

// chromeHeight is the number of rows used by everything but the transcript:
// header, suggestion block, bordered input and status bar.
const chromeHeight = 2 + 1 + domain.InitialSuggestionCount + 3 + 1

// View shows the running conversation, suggested questions and the input.
type View struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	input      *input.QuestionInput
	transcript viewport.Model
	spinner    spinner.Model
	statusbar  *status.Bar

	chat    driving.ChatService
	suggest driving.SuggestionService
	history driving.HistoryService
	ctx     context.Context
	now     func() time.Time

	conversation *domain.Conversation
	memory       *domain.ConversationMemory
	suggestions  []string
	highlighted  int // -1 when no suggestion is highlighted
	thinking     bool
	targetName   string

	width  int
	height int
	err    error
}

// NewView creates a chat view. history may be nil, in which case
// conversations are not saved.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	chat driving.ChatService,
	suggest driving.SuggestionService,
	history driving.HistoryService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Title

	v := &View{
		styles:      s,
		keymap:      km,
		input:       input.NewQuestionInput(s),
		transcript:  viewport.New(80, 10),
		spinner:     sp,
		statusbar:   status.NewBar(s, km),
		chat:        chat,
		suggest:     suggest,
		history:     history,
		ctx:         context.Background(),
		now:         time.Now,
		highlighted: -1,
		width:       80,
		height:      24,
	}
	v.startConversation()
	return v
}

// WithContext sets the context for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetTargetName sets the documentation name shown in the header.
func (v *View) SetTargetName(name string) {
	v.targetName = name
}

// Init focuses the input and loads the opening suggestions.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.input.Init(), v.loadInitialSuggestions())
}

// Update handles messages for the chat view.
//
//nolint:gocyclo // central message handler
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case spinner.TickMsg:
		if !v.thinking {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case messages.AnswerReceived:
		return v, v.handleAnswer(msg)

	case messages.SuggestionsLoaded:
		v.suggestions = msg.Questions
		v.highlighted = -1
		return v, nil

	case messages.ConversationSaved:
		v.handleSaved(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	keyStr := msg.String()

	switch {
	case keymap.Matches(keyStr, v.keymap.ScrollUp), keymap.Matches(keyStr, v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.transcript, cmd = v.transcript.Update(msg)
		return v, cmd

	case keymap.Matches(keyStr, v.keymap.Help):
		return v, changeView(messages.ViewHelp)
	}

	// Only one question is in flight at a time.
	if v.thinking {
		return v, nil
	}

	switch {
	case keymap.Matches(keyStr, v.keymap.Send):
		question := v.input.Value()
		if question == "" && v.highlighted >= 0 && v.highlighted < len(v.suggestions) {
			question = v.suggestions[v.highlighted]
		}
		if question == "" {
			return v, nil
		}
		return v, v.submit(question)

	case keymap.Matches(keyStr, v.keymap.NextSuggestion):
		if len(v.suggestions) > 0 {
			v.highlighted = (v.highlighted + 1) % len(v.suggestions)
		}
		return v, nil

	case keymap.Matches(keyStr, v.keymap.NewChat):
		v.statusbar.SetMessage("New conversation")
		return v, v.Reset()

	case keymap.Matches(keyStr, v.keymap.History):
		if v.history == nil {
			v.statusbar.SetState(status.StateWarning)
			v.statusbar.SetMessage("conversation history is unavailable")
			return v, nil
		}
		return v, changeView(messages.ViewHistory)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit records the question and starts answering it.
func (v *View) submit(question string) tea.Cmd {
	v.conversation.Append(domain.RoleUser, question, v.now())
	v.input.Reset()
	v.thinking = true
	v.highlighted = -1
	v.err = nil
	v.statusbar.SetState(status.StateThinking)
	v.statusbar.SetMessage("")
	v.refresh()
	return tea.Batch(v.spinner.Tick, v.ask(question))
}

func (v *View) ask(question string) tea.Cmd {
	ctx, chat, memory := v.ctx, v.chat, v.memory
	return func() tea.Msg {
		answer, err := chat.Ask(ctx, question, memory)
		return messages.AnswerReceived{Question: question, Answer: answer, Err: err}
	}
}

// handleAnswer shows the answer, or the apology when the turn failed,
// then asks for follow-ups and saves the conversation.
func (v *View) handleAnswer(msg messages.AnswerReceived) tea.Cmd {
	if !v.thinking {
		return nil
	}
	v.thinking = false

	text := domain.ApologyUnavailable
	if msg.Answer != nil && msg.Answer.Text != "" {
		text = msg.Answer.Markdown()
	}
	v.conversation.Append(domain.RoleAssistant, text, v.now())

	answerText := ""
	if msg.Err != nil {
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
	} else {
		v.statusbar.SetState(status.StateReady)
		if msg.Answer != nil {
			answerText = msg.Answer.Text
		}
	}
	v.refresh()

	return tea.Batch(v.loadFollowUps(answerText), v.save())
}

// handleSaved keeps the title the store assigned. A failed save is only
// a warning; the conversation carries on in memory.
func (v *View) handleSaved(msg messages.ConversationSaved) {
	if msg.Err != nil {
		v.statusbar.SetState(status.StateWarning)
		v.statusbar.SetMessage(fmt.Sprintf("conversation not saved: %v", msg.Err))
		return
	}
	if msg.ID == v.conversation.ID && msg.Title != "" {
		v.conversation.Title = msg.Title
	}
	if v.statusbar.State() == status.StateReady {
		v.statusbar.SetState(status.StateSaved)
	}
}

func (v *View) loadInitialSuggestions() tea.Cmd {
	ctx, suggest := v.ctx, v.suggest
	return func() tea.Msg {
		return messages.SuggestionsLoaded{Questions: suggest.Initial(ctx, domain.InitialSuggestionCount)}
	}
}

func (v *View) loadFollowUps(answer string) tea.Cmd {
	ctx, suggest := v.ctx, v.suggest
	return func() tea.Msg {
		return messages.SuggestionsLoaded{Questions: suggest.AfterAnswer(ctx, answer, domain.AfterAnswerSuggestionCount)}
	}
}

// save persists a copy of the conversation so the view can keep
// appending while the store writes.
func (v *View) save() tea.Cmd {
	if v.history == nil || !v.conversation.HasUserTurns() {
		return nil
	}
	conv := *v.conversation
	conv.Turns = slices.Clone(v.conversation.Turns)
	ctx, history := v.ctx, v.history
	return func() tea.Msg {
		err := history.Save(ctx, &conv)
		return messages.ConversationSaved{ID: conv.ID, Title: conv.Title, Err: err}
	}
}

// Load restores a saved conversation.
func (v *View) Load(id string) tea.Cmd {
	if v.history == nil {
		return nil
	}
	ctx, history := v.ctx, v.history
	return func() tea.Msg {
		conv, memory, err := history.Load(ctx, id)
		return messages.ConversationLoaded{Conversation: conv, Memory: memory, Err: err}
	}
}

// SetConversation replaces the current conversation and its memory.
func (v *View) SetConversation(conv *domain.Conversation, memory *domain.ConversationMemory) {
	if conv == nil {
		return
	}
	if memory == nil {
		memory = domain.MemoryFromTurns(conv.Turns)
	}
	v.conversation = conv
	v.memory = memory
	v.thinking = false
	v.err = nil
	v.statusbar.Clear()
	v.statusbar.SetMessage(conv.Title)
	v.refresh()
}

// Reset starts a new conversation and reloads the opening suggestions.
func (v *View) Reset() tea.Cmd {
	v.startConversation()
	v.suggestions = nil
	v.highlighted = -1
	v.thinking = false
	v.err = nil
	v.input.Reset()
	v.statusbar.SetState(status.StateReady)
	v.refresh()
	return v.loadInitialSuggestions()
}

func (v *View) startConversation() {
	if v.history != nil {
		v.conversation = v.history.New()
	} else {
		v.conversation = domain.NewConversation(uuid.New().String(), v.now())
	}
	v.memory = domain.NewConversationMemory()
	v.refresh()
}

// refresh re-renders the transcript and scrolls to the newest turn.
func (v *View) refresh() {
	wrap := lipgloss.NewStyle().Width(max(v.width-2, 20))
	parts := make([]string, 0, len(v.conversation.Turns))
	for _, t := range v.conversation.Turns {
		label := v.styles.AssistantLabel.Render("Assistant")
		if t.Role == domain.RoleUser {
			label = v.styles.UserLabel.Render("You")
		}
		parts = append(parts, label+"\n"+wrap.Render(t.Content))
	}
	v.transcript.SetContent(strings.Join(parts, "\n\n"))
	v.transcript.GotoBottom()
	v.statusbar.SetTurnCount(len(v.conversation.Turns))
}

// View renders the chat view.
func (v *View) View() string {
	header := v.styles.Title.Render("GitBook Q&A")
	if v.targetName != "" {
		header += v.styles.Muted.Render("  " + v.targetName + " documentation")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		v.transcript.View(),
		v.renderSuggestions(),
		v.input.View(),
		v.statusbar.View(),
	)
}

func (v *View) renderSuggestions() string {
	if v.thinking {
		return v.spinner.View() + " " + v.styles.Muted.Render("Generating an answer...")
	}
	if len(v.suggestions) == 0 {
		return ""
	}
	lines := make([]string, 0, len(v.suggestions)+1)
	lines = append(lines, v.styles.Subtitle.Render("Suggested questions (tab to pick, enter to ask):"))
	for i, q := range v.suggestions {
		if i == v.highlighted {
			lines = append(lines, v.styles.SuggestionSelected.Render("> "+q))
			continue
		}
		lines = append(lines, v.styles.Suggestion.Render("  "+q))
	}
	return strings.Join(lines, "\n")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.transcript.Width = width
	v.transcript.Height = max(height-chromeHeight, 3)
	v.refresh()
}

// Conversation returns the current conversation.
func (v *View) Conversation() *domain.Conversation {
	return v.conversation
}

// Memory returns the current conversation memory.
func (v *View) Memory() *domain.ConversationMemory {
	return v.memory
}

// Suggestions returns the questions on offer.
func (v *View) Suggestions() []string {
	return v.suggestions
}

// Highlighted returns the highlighted suggestion index, or -1.
func (v *View) Highlighted() int {
	return v.highlighted
}

// Thinking reports whether a question is being answered.
func (v *View) Thinking() bool {
	return v.thinking
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// StatusState returns the status bar state.
func (v *View) StatusState() status.State {
	return v.statusbar.State()
}

// Focus focuses the question input.
func (v *View) Focus() tea.Cmd {
	return v.input.Focus()
}

func changeView(view messages.ViewType) tea.Cmd {
	return func() tea.Msg {
		return messages.ViewChanged{View: view}
	}
}
