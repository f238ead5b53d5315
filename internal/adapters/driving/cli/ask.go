package cli

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question from the documentation",
	Long: `Retrieves the stored chunks most similar to the question and asks the
chat model to answer from them. The answer is printed as markdown followed
by the pages it was drawn from.

Use --conversation to continue a saved conversation; the question and
answer are appended to it.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntP("suggest", "s", 0, "Also print this many follow-up questions")
	askCmd.Flags().StringP("conversation", "c", "", "Saved conversation id to continue")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(args[0])
	if question == "" {
		return domain.ErrInvalidInput
	}

	a, err := requireApp(cmd)
	if err != nil {
		return err
	}
	if a.Chat == nil {
		return errors.New("chat service not configured")
	}

	ctx := cmd.Context()
	convID, _ := cmd.Flags().GetString("conversation")

	var conv *domain.Conversation
	memory := domain.NewConversationMemory()
	if convID != "" {
		if a.History == nil {
			return errors.New("conversation history not configured")
		}
		conv, memory, err = a.History.Load(ctx, convID)
		if err != nil {
			return err
		}
	}

	answer, askErr := a.Chat.Ask(ctx, question, memory)
	if answer == nil {
		return askErr
	}
	cmd.Println(answer.Markdown())

	if conv != nil && askErr == nil {
		now := time.Now()
		conv.Append(domain.RoleUser, question, now)
		conv.Append(domain.RoleAssistant, answer.Markdown(), now)
		if err := a.History.Save(ctx, conv); err != nil {
			cmd.PrintErrf("warning: conversation not saved: %v\n", err)
		}
	}

	if n, _ := cmd.Flags().GetInt("suggest"); n > 0 && a.Suggest != nil && askErr == nil {
		cmd.Println()
		cmd.Println("You might also ask:")
		for _, q := range a.Suggest.AfterAnswer(ctx, answer.Text, n) {
			cmd.Printf("  - %s\n", q)
		}
	}

	return askErr
}
