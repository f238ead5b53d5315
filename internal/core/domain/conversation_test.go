package domain

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConversation(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	c := NewConversation("c1", now)

	require.Len(t, c.Turns, 1)
	assert.Equal(t, RoleAssistant, c.Turns[0].Role)
	assert.Equal(t, WelcomeMessage, c.Turns[0].Content)
	assert.False(t, c.HasUserTurns())
	assert.Equal(t, now, c.CreatedAt)
}

func TestConversation_EnsureTitle(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	c := NewConversation("c1", now)
	c.Append(RoleUser, "How do I configure the sitemap?", now)
	c.EnsureTitle(now)
	assert.Equal(t, "How do I config...", c.Title)

	short := NewConversation("c2", now)
	short.Append(RoleUser, "Install?", now)
	short.EnsureTitle(now)
	assert.Equal(t, "Install?", short.Title)

	empty := NewConversation("c3", now)
	empty.EnsureTitle(now)
	assert.Equal(t, "Conversation 2025-03-01 09:30", empty.Title)

	kept := &Conversation{Title: "Mine"}
	kept.EnsureTitle(now)
	assert.Equal(t, "Mine", kept.Title)
}

func TestTitleFromMessage_Runes(t *testing.T) {
	msg := "문서를 검색하는 방법은 어떻게 되나요?"
	title := TitleFromMessage(msg)
	assert.Equal(t, string([]rune(msg)[:15])+"...", title)
	assert.Equal(t, "exactly fifteen", TitleFromMessage("exactly fifteen"))
}

func TestMemoryFromTurns(t *testing.T) {
	turns := []Turn{
		{Role: RoleAssistant, Content: WelcomeMessage},
		{Role: RoleUser, Content: "q1"},
		{Role: RoleAssistant, Content: "a1"},
		{Role: RoleUser, Content: "q2"},
		{Role: RoleAssistant, Content: "a2"},
		{Role: RoleUser, Content: "dangling"},
	}

	m := MemoryFromTurns(turns)
	assert.Equal(t, []Turn{
		{Role: RoleUser, Content: "q1"},
		{Role: RoleAssistant, Content: "a1"},
		{Role: RoleUser, Content: "q2"},
		{Role: RoleAssistant, Content: "a2"},
	}, m.Turns())
}

func TestConversationMemory(t *testing.T) {
	var nilMem *ConversationMemory
	assert.Equal(t, 0, nilMem.Len())
	assert.Nil(t, nilMem.Turns())

	m := NewConversationMemory()
	m.AddExchange("q", "a")
	assert.Equal(t, 2, m.Len())

	turns := m.Turns()
	turns[0].Content = "mutated"
	assert.Equal(t, "q", m.Turns()[0].Content, "Turns returns a copy")

	m.Clear()
	assert.Equal(t, 0, m.Len())
}

func TestConversationMemory_ConcurrentUse(t *testing.T) {
	m := NewConversationMemory()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Turns()
			m.AddExchange(fmt.Sprintf("q%d", i), "a")
			_ = m.Len()
		}()
	}
	wg.Wait()

	turns := m.Turns()
	require.Len(t, turns, 40)
	for i := 0; i < len(turns); i += 2 {
		assert.Equal(t, RoleUser, turns[i].Role)
		assert.Equal(t, RoleAssistant, turns[i+1].Role)
	}
}
