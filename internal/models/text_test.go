package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	assert.Equal(t, "plain", PlainText("plain"))
	assert.Equal(t, "Hello world & co", PlainText("<p>Hello <b>world</b></p><p>&amp; co</p>"))
	assert.Equal(t, "a b", PlainText("a<br>b"))
}

func TestExcerptAndBlank(t *testing.T) {
	assert.Equal(t, "héllo…", Excerpt("<b>héllo</b> world", 5))
	assert.Equal(t, "short", Excerpt("short", 10))
	assert.True(t, IsBlank("<p> </p>"))
	assert.False(t, IsBlank("<p>x</p>"))
}

func TestSystemChatOwner(t *testing.T) {
	owner, fav, ok := SystemChatOwner(FavoritesChatID("u1"))
	assert.True(t, ok)
	assert.True(t, fav)
	assert.Equal(t, "u1", owner)

	owner, fav, ok = SystemChatOwner(NotificationsChatID("u2"))
	assert.True(t, ok)
	assert.False(t, fav)
	assert.Equal(t, "u2", owner)

	_, _, ok = SystemChatOwner("chat-1")
	assert.False(t, ok)
}

func TestRedactedTombstone(t *testing.T) {
	live := Message{ID: "m1", Content: "hello", Mentions: []string{"u2"}}
	assert.Equal(t, live, live.Redacted())

	dead := Message{
		ID:          "m2",
		Content:     "secret original text",
		Mentions:    []string{"u2"},
		Attachments: []Attachment{{Type: AttachmentLink, Name: "doc", URL: "https://x"}},
		IsDeleted:   true,
	}
	got := dead.Redacted()
	assert.Empty(t, got.Content)
	assert.Empty(t, got.Mentions)
	assert.Nil(t, got.Attachments)
	assert.Equal(t, "m2", got.ID)
	assert.Equal(t, "secret original text", dead.Content)
}
