package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitbook-qa/gitbook-qa/internal/app"
	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
	"github.com/gitbook-qa/gitbook-qa/internal/core/ports/driving"
	"github.com/gitbook-qa/gitbook-qa/internal/core/services"
)

// historyService is set once the history store has been opened without
// building the full application.
var (
	historyService driving.HistoryService
	historyClose   func() error
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage saved conversations",
	Long: `Lists, shows and deletes the conversations saved by the chat UI.

Conversations are kept in the file named by CHAT_HISTORY_FILE
(chat_history.json by default; a name ending in .db uses SQLite).`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved conversations",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [conversation-id]",
	Short: "Print a saved conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete [conversation-id]",
	Short: "Delete a saved conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every saved conversation",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClear,
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}

// requireHistory returns the history service without contacting any
// provider or vector store.
func requireHistory() (driving.HistoryService, error) {
	if appInstance != nil {
		if appInstance.History == nil {
			return nil, errors.New("conversation history not configured")
		}
		return appInstance.History, nil
	}
	if historyService != nil {
		return historyService, nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, closeFn, err := app.OpenHistoryStore(cfg.HistoryFile)
	if err != nil {
		return nil, err
	}
	historyService = services.NewHistoryService(store)
	historyClose = closeFn
	return historyService, nil
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	history, err := requireHistory()
	if err != nil {
		return err
	}

	list, err := history.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}
	if len(list) == 0 {
		cmd.Println("No saved conversations.")
		return nil
	}

	cmd.Println("Saved conversations:")
	for _, c := range list {
		cmd.Printf("  %s  %s\n", c.ID, c.Title)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	history, err := requireHistory()
	if err != nil {
		return err
	}

	conv, _, err := history.Load(cmd.Context(), args[0])
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("conversation not found: %s", args[0])
	}
	if err != nil {
		return err
	}

	cmd.Printf("%s\n\n", conv.Title)
	for _, t := range conv.Turns {
		label := "Assistant"
		if t.Role == domain.RoleUser {
			label = "You"
		}
		cmd.Printf("%s:\n%s\n\n", label, t.Content)
	}
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	history, err := requireHistory()
	if err != nil {
		return err
	}

	if err := history.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	cmd.Printf("Deleted conversation %s\n", args[0])
	return nil
}

func runHistoryClear(cmd *cobra.Command, _ []string) error {
	history, err := requireHistory()
	if err != nil {
		return err
	}

	if err := history.Clear(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear conversations: %w", err)
	}
	cmd.Println("All saved conversations deleted.")
	return nil
}
