package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitbook-qa/gitbook-qa/internal/core/domain"
)

func conversation(id, title string) *domain.Conversation {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := domain.NewConversation(id, now)
	c.Append(domain.RoleUser, "question "+id, now)
	c.Title = title
	return c
}

func TestHistoryStore_SaveAndGet(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, conversation("a", "First")))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "First", got.Title)
	assert.Len(t, got.Turns, 2)

	// Mutating the returned value must not affect the store.
	got.Turns[0].Content = "changed"
	again, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.NotEqual(t, "changed", again.Turns[0].Content)
}

func TestHistoryStore_ListKeepsSaveOrder(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, conversation("b", "B")))
	require.NoError(t, store.Save(ctx, conversation("a", "A")))
	require.NoError(t, store.Save(ctx, conversation("b", "B2")))

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.ConversationSummary{{ID: "b", Title: "B2"}, {ID: "a", Title: "A"}}, list)
}

func TestHistoryStore_DeleteAndClear(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, conversation("a", "A")))
	require.NoError(t, store.Save(ctx, conversation("b", "B")))

	require.NoError(t, store.Delete(ctx, "a"))
	require.NoError(t, store.Delete(ctx, "missing"))

	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Clear(ctx))
	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestHistoryStore_SaveRejectsMissingID(t *testing.T) {
	err := NewHistoryStore().Save(context.Background(), &domain.Conversation{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHistoryStore_ConcurrentAccess(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			_ = store.Save(ctx, conversation(id, id))
			_, _ = store.List(ctx)
		}(i)
	}
	wg.Wait()

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 20)
}
