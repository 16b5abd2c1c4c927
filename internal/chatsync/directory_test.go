package chatsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamchat/internal/models"
)

func systemCounts(chats []models.Chat) (favorites, notifications int) {
	for _, c := range chats {
		if c.IsFavoritesChat {
			favorites++
		}
		if c.IsNotificationsChat {
			notifications++
		}
	}
	return
}

func TestDirectorySynthesisIsIdempotent(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.chats = []models.Chat{regularChat("c1", false)}
	d := NewDirectory("me", src, newStore())

	first, err := d.Load(ctx)
	require.NoError(t, err)
	second, err := d.Load(ctx)
	require.NoError(t, err)

	for _, chats := range [][]models.Chat{first, second} {
		f, n := systemCounts(chats)
		assert.Equal(t, 1, f)
		assert.Equal(t, 1, n)
		require.Len(t, chats, 3)
		assert.Equal(t, "favorites_me", chats[0].ID)
		assert.Equal(t, "notifications_me", chats[1].ID)
	}
}

func TestDirectoryUsesServerSystemChats(t *testing.T) {
	src := newFakeSource()
	notif := models.NewNotificationsChat("me", t0)
	notif.UnreadCount = 3
	fav := models.NewFavoritesChat("me", t0)
	fav.UnreadCount = 7
	src.chats = []models.Chat{regularChat("c1", false), notif, fav}

	chats, err := NewDirectory("me", src, newStore()).Load(context.Background())
	require.NoError(t, err)

	f, n := systemCounts(chats)
	assert.Equal(t, 1, f)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, chats[0].UnreadCount)
	assert.Equal(t, 3, chats[1].UnreadCount)
}

func TestDirectorySystemPinsAreLocal(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	src := newFakeSource()
	d := NewDirectory("me", src, store)

	chats, err := d.Load(ctx)
	require.NoError(t, err)
	assert.True(t, chats[0].PinnedFor("me"))
	assert.True(t, chats[1].PinnedFor("me"))

	require.NoError(t, d.SetPinned(ctx, "notifications_me", false))
	assert.Empty(t, src.pins)

	chats, err = d.Load(ctx)
	require.NoError(t, err)
	c, ok := findChat(chats, "notifications_me")
	require.True(t, ok)
	assert.False(t, c.PinnedFor("me"))

	pinned, ok, err := store.PinOverride(ctx, "notifications_me")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, pinned)
}

func TestDirectoryPinOverrideSurvivesStaleSnapshot(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.chats = []models.Chat{regularChat("c1", false)}
	d := NewDirectory("me", src, newStore())
	_, err := d.Load(ctx)
	require.NoError(t, err)

	require.NoError(t, d.SetPinned(ctx, "c1", true))

	// The server list still says false.
	chats, err := d.Load(ctx)
	require.NoError(t, err)
	c, _ := findChat(chats, "c1")
	assert.True(t, c.PinnedFor("me"))

	// The server moves to its own value; the override is retired.
	src.mu.Lock()
	src.chats[0].PinnedByUser["me"] = true
	src.mu.Unlock()
	_, err = d.Load(ctx)
	require.NoError(t, err)

	src.mu.Lock()
	src.chats[0].PinnedByUser["me"] = false
	src.mu.Unlock()
	chats, err = d.Load(ctx)
	require.NoError(t, err)
	c, _ = findChat(chats, "c1")
	assert.False(t, c.PinnedFor("me"))
}

func TestDirectoryPinnedFirst(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.chats = []models.Chat{regularChat("a", false), regularChat("b", true), regularChat("c", false)}
	store := newStore()
	require.NoError(t, store.SetPinOverride(ctx, "favorites_me", false))
	d := NewDirectory("me", src, store)

	chats, err := d.Load(ctx)
	require.NoError(t, err)

	ids := make([]string, len(chats))
	for i, c := range chats {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"notifications_me", "b", "favorites_me", "a", "c"}, ids)
}

func TestDirectoryPinRollback(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.chats = []models.Chat{regularChat("c1", false)}
	d := NewDirectory("me", src, newStore())
	_, err := d.Load(ctx)
	require.NoError(t, err)

	src.pinErr = errBoom
	err = d.SetPinned(ctx, "c1", true)
	require.ErrorIs(t, err, errBoom)

	c, ok := d.Chat("c1")
	require.True(t, ok)
	assert.False(t, c.PinnedFor("me"))
}

func TestDirectoryUnknownChat(t *testing.T) {
	d := NewDirectory("me", newFakeSource(), newStore())
	err := d.SetPinned(context.Background(), "nope", true)
	assert.ErrorIs(t, err, ErrUnknownChat)
}

func TestDirectoryLoadError(t *testing.T) {
	src := newFakeSource()
	src.listErr = errBoom
	_, err := NewDirectory("me", src, newStore()).Load(context.Background())
	assert.ErrorIs(t, err, errBoom)
}

func findChat(chats []models.Chat, id string) (models.Chat, bool) {
	for _, c := range chats {
		if c.ID == id {
			return c, true
		}
	}
	return models.Chat{}, false
}
