package cli

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/gitbook-qa/gitbook-qa/internal/adapters/driving/tui"
)

// runProgram runs the bubbletea program; tests replace it.
var runProgram = func(ctx context.Context, model tea.Model) error {
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the documentation in the terminal",
	Long: `Launch the interactive chat interface.

Answers cite the documentation pages they were drawn from. Suggested
questions are offered at the start and after every answer. Conversations
are saved to the history file as you go.

Controls:
  enter    - Ask the typed question, or the highlighted suggestion
  tab      - Highlight the next suggestion
  ctrl+n   - New conversation
  ctrl+r   - Saved conversations
  f1       - Help
  ctrl+c   - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) (err error) {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI crashed: %v", r)
		}
	}()

	a, err := requireApp(cmd)
	if err != nil {
		return err
	}

	app, err := tui.NewApp(tui.NewPorts(a.Chat, a.Suggest, a.History))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())
	if a.Config != nil {
		app.WithTargetName(a.Config.TargetName)
	}

	if err := runProgram(cmd.Context(), app); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
