package chatsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamchat/internal/models"
)

func TestMergeDropsEchoedPending(t *testing.T) {
	existing := models.Message{ID: "srv1", AuthorID: "bob", Content: "hi", CreatedAt: t0}
	local := []Item{
		Confirm(existing),
		{Message: models.Message{ID: "tmp1", ClientID: "tmp1", AuthorID: "me", Content: "Hello"}, State: Pending},
	}
	remote := []models.Message{
		existing,
		{ID: "srv42", ClientID: "tmp1", AuthorID: "me", Content: "Hello", CreatedAt: t0.Add(1)},
	}

	got := Merge(local, remote)

	require.Len(t, got, 2)
	hellos := 0
	for _, it := range got {
		if it.Content == "Hello" {
			hellos++
			assert.Equal(t, "srv42", it.ID)
			assert.Equal(t, Confirmed, it.State)
		}
	}
	assert.Equal(t, 1, hellos)
}

func TestMergeKeepsInFlightPending(t *testing.T) {
	local := []Item{
		{Message: models.Message{ID: "tmp1", ClientID: "tmp1", Content: "wait"}, State: Pending},
	}
	got := Merge(local, []models.Message{{ID: "srv1", Content: "older"}})

	require.Len(t, got, 2)
	assert.Equal(t, "srv1", got[0].ID)
	assert.Equal(t, "tmp1", got[1].ID)
	assert.Equal(t, Pending, got[1].State)
}

func TestMergeDropsFailedPending(t *testing.T) {
	local := []Item{
		{Message: models.Message{ID: "tmp1", ClientID: "tmp1"}, State: Pending, Failed: true},
	}
	assert.Empty(t, Merge(local, nil))
}

func TestMergeServerWins(t *testing.T) {
	local := []Item{Confirm(models.Message{ID: "srv1", Content: "old"})}
	got := Merge(local, []models.Message{{ID: "srv1", Content: "new"}})
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Content)
	assert.Equal(t, Confirmed, got[0].State)

	got = Merge(got, []models.Message{{ID: "srv1", Content: "new", IsDeleted: true}})
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Content)
	assert.Equal(t, Tombstoned, got[0].State)
}

func TestItemStateString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "confirmed", Confirmed.String())
	assert.Equal(t, "tombstoned", Tombstoned.String())
}
