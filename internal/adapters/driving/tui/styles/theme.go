// Package styles holds the colour palette and lipgloss styles of the chat UI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is the colour palette the styles are built from.
type Theme struct {
	Primary    lipgloss.Color // assistant label, highlighted suggestion
	Secondary  lipgloss.Color // user label, suggestions
	Background lipgloss.Color
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
	Border     lipgloss.Color
}

// DefaultTheme returns the dark palette used unless another is given.
func DefaultTheme() *Theme {
	return &Theme{
		Primary:    lipgloss.Color("#7C3AED"),
		Secondary:  lipgloss.Color("#06B6D4"),
		Background: lipgloss.Color("#1E1E2E"),
		Foreground: lipgloss.Color("#CDD6F4"),
		Muted:      lipgloss.Color("#6C7086"),
		Success:    lipgloss.Color("#A6E3A1"),
		Warning:    lipgloss.Color("#F9E2AF"),
		Error:      lipgloss.Color("#F38BA8"),
		Border:     lipgloss.Color("#45475A"),
	}
}

// statusBackground sits one shade below the theme background.
const statusBackground = lipgloss.Color("#181825")

// Styles are the rendered styles shared by every view.
type Styles struct {
	theme *Theme

	// Headers and plain text.
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Help     lipgloss.Style

	// Selected highlights the current row of the history list.
	Selected lipgloss.Style

	// Notices.
	Error   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style

	InputField lipgloss.Style
	StatusBar  lipgloss.Style

	// Transcript labels.
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style

	Suggestion         lipgloss.Style
	SuggestionSelected lipgloss.Style
}

// NewStyles builds the styles for theme. A nil theme uses DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	highlight := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.Foreground).
		Background(theme.Primary)

	return &Styles{
		theme: theme,

		Title:    lipgloss.NewStyle().Bold(true).Foreground(theme.Primary),
		Subtitle: lipgloss.NewStyle().Bold(true).Foreground(theme.Secondary),
		Normal:   lipgloss.NewStyle().Foreground(theme.Foreground),
		Muted:    lipgloss.NewStyle().Foreground(theme.Muted),
		Help:     lipgloss.NewStyle().Foreground(theme.Muted),

		Selected: highlight,

		Error:   lipgloss.NewStyle().Foreground(theme.Error),
		Success: lipgloss.NewStyle().Foreground(theme.Success),
		Warning: lipgloss.NewStyle().Foreground(theme.Warning),

		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
		StatusBar: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Background(statusBackground).
			Padding(0, 1),

		UserLabel:      lipgloss.NewStyle().Bold(true).Foreground(theme.Secondary),
		AssistantLabel: lipgloss.NewStyle().Bold(true).Foreground(theme.Primary),

		Suggestion:         lipgloss.NewStyle().Foreground(theme.Secondary),
		SuggestionSelected: highlight,
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() *Theme {
	return s.theme
}
