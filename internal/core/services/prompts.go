package services

import (
	"fmt"
	"strings"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

// Prompt sizes.
const (
	// answerExcerptLength bounds the answer text sent for follow-up questions.
	answerExcerptLength = 500

	// minAnswerLength is the shortest answer worth generating follow-ups for.
	minAnswerLength = 20

	// maxFollowUps caps context-driven suggestions.
	maxFollowUps = 3

	// contentPrefixLength is the prefix used to spot near-identical excerpts.
	contentPrefixLength = 100

	// excerptLength bounds each corpus excerpt sent for question generation.
	excerptLength = 400
)

func condensePrompt(history []domain.Turn, question string) string {
	var b strings.Builder
	b.WriteString("Given the following conversation and a follow up question, ")
	b.WriteString("rephrase the follow up question to be a standalone question, in its original language.\n\n")
	b.WriteString("Chat History:\n")
	for _, t := range history {
		role := "Human"
		if t.Role == domain.RoleAssistant {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, t.Content)
	}
	fmt.Fprintf(&b, "Follow Up Input: %s\nStandalone question:", question)
	return b.String()
}

func answerSystemPrompt(targetName string, records []domain.StoredRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You answer questions about %s. ", targetName)
	b.WriteString("Use the following pieces of context to answer the question at the end. ")
	b.WriteString("If you don't know the answer, just say that you don't know, don't try to make up an answer.\n\n")
	for i, r := range records {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(r.Content)
	}
	return b.String()
}

func followUpPrompt(answer string) string {
	excerpt := answer
	if r := []rune(answer); len(r) > answerExcerptLength {
		excerpt = string(r[:answerExcerptLength])
	}
	return fmt.Sprintf("Here is an answer to a user's question:\n%s...\n\n"+
		"Based on this answer, write %d related questions the user might ask next. "+
		"Keep them short and clear. Return only the questions, one per line, without numbering or JSON.",
		excerpt, maxFollowUps)
}

func corpusPrompt(targetName string, excerpts []string, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The following excerpts come from %s.\n\n", targetName)
	for i, e := range excerpts {
		fmt.Fprintf(&b, "Excerpt %d:\n%s\n\n", i+1, e)
	}
	fmt.Fprintf(&b, "Write %d short questions a new reader could ask that these excerpts answer. ", n)
	b.WriteString("Return only the questions, one per line, without numbering or JSON.")
	return b.String()
}

// parseQuestions splits a model response into questions: one per line,
// list markers stripped, blanks and repeats dropped, at most limit.
func parseQuestions(response string, limit int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(response, "\n") {
		q := stripListMarker(strings.TrimSpace(line))
		if q == "" {
			continue
		}
		key := strings.ToLower(q)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// stripListMarker removes "1.", "2)", "-", "*" and "•" prefixes.
func stripListMarker(s string) string {
	s = strings.TrimLeft(s, "-*• ")
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
