package chatsync

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamchat/internal/models"
)

func TestDisplayText(t *testing.T) {
	m := models.Message{Content: "hi"}
	assert.Equal(t, "hi", DisplayText(m))
	m.IsDeleted = true
	assert.Equal(t, TombstoneText, DisplayText(m))
}

func TestPreviewTruncates(t *testing.T) {
	long := strings.Repeat("é", 150)
	items := []Item{Confirm(models.Message{ID: "m1", AuthorName: "Bob", Content: long})}

	p, ok := PreviewFor(items, "m1")
	require.True(t, ok)
	assert.Equal(t, "Bob", p.AuthorName)
	assert.Equal(t, previewRunes+1, len([]rune(p.Text)))

	_, ok = PreviewFor(items, "missing")
	assert.False(t, ok)
	_, ok = PreviewFor(items, "")
	assert.False(t, ok)
}

func TestSearchIgnoresMarkupAndCase(t *testing.T) {
	items := []Item{
		Confirm(models.Message{ID: "m1", Content: "<p>Launch <b>Plan</b></p>"}),
		Confirm(models.Message{ID: "m2", Content: "unrelated"}),
	}
	hits := Search(items, "launch plan")
	require.Len(t, hits, 1)
	assert.Equal(t, "m1", hits[0].ID)
	assert.Nil(t, Search(items, "  "))
}

func TestSearchHitOfDeletedMessageHasNoBody(t *testing.T) {
	items := []Item{
		Confirm(models.Message{ID: "m1", AuthorID: "u2", AuthorName: "Bob", Content: "launch codes 1234", IsDeleted: true}),
	}
	assert.Empty(t, Search(items, "codes"))

	hits := Search(items, "deleted")
	require.Len(t, hits, 1)
	assert.Equal(t, SearchResult{ID: "m1", AuthorID: "u2", AuthorName: "Bob", Deleted: true, Snippet: TombstoneText}, hits[0])
	assert.NotContains(t, fmt.Sprintf("%+v", hits[0]), "1234")
}
