package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

const (
	defaultSuggestions = 3
	maxSuggestions     = 10
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question       string `json:"question" jsonschema:"the question to answer from the documentation"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"optional id that keeps follow-up questions in one conversation"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer            string              `json:"answer"`
	Sources           []domain.SourceLink `json:"sources"`
	GeneratedQuestion string              `json:"generated_question,omitempty"`
	Markdown          string              `json:"markdown"`
}

// SuggestInput is the input schema for the suggest_questions tool.
type SuggestInput struct {
	Answer string `json:"answer,omitempty" jsonschema:"a previous answer to generate follow-up questions for"`
	Count  int    `json:"count,omitempty" jsonschema:"number of questions to return (default 3)"`
}

// SuggestOutput is the output schema for the suggest_questions tool.
type SuggestOutput struct {
	Questions []string `json:"questions"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the indexed documentation, citing source pages",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "suggest_questions",
		Description: "Suggest questions about the documentation, or follow-ups to an answer",
	}, s.handleSuggest)
}

// handleAsk handles the ask tool invocation. Provider failures are
// reported as a tool error carrying the apology text.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, AskOutput{}, domain.ErrInvalidInput
	}

	sess := s.session(ctx, input.ConversationID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	answer, err := s.ports.Chat.Ask(ctx, question, sess.memory)
	if err != nil {
		if answer == nil {
			return nil, AskOutput{}, err
		}
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: answer.Text}},
		}, AskOutput{Answer: answer.Text, Markdown: answer.Text}, nil
	}

	s.record(ctx, sess, question, answer.Text)

	return nil, AskOutput{
		Answer:            answer.Text,
		Sources:           answer.Sources,
		GeneratedQuestion: answer.GeneratedQuestion,
		Markdown:          answer.Markdown(),
	}, nil
}

// handleSuggest handles the suggest_questions tool invocation.
func (s *Server) handleSuggest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SuggestInput,
) (*mcp.CallToolResult, SuggestOutput, error) {
	n := input.Count
	if n <= 0 {
		n = defaultSuggestions
	}
	if n > maxSuggestions {
		n = maxSuggestions
	}

	if s.ports.Suggest == nil {
		return nil, SuggestOutput{Questions: []string{}}, nil
	}

	var questions []string
	if answer := strings.TrimSpace(input.Answer); answer != "" {
		questions = s.ports.Suggest.AfterAnswer(ctx, answer, n)
	} else {
		questions = s.ports.Suggest.Initial(ctx, n)
	}
	return nil, SuggestOutput{Questions: questions}, nil
}
