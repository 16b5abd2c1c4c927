package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamchat/internal/models"
)

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub()

	hub.AddClient("c1", nil, ConnInfo{UserID: "u1"})
	assert.Len(t, hub.rooms, 1)
	assert.Equal(t, 1, hub.RoomSize("c1"))

	hub.RemoveClient("c1", nil)
	assert.Empty(t, hub.rooms)
	assert.Empty(t, hub.connInfo)
}

func TestHubBroadcastWithoutClients(t *testing.T) {
	hub := NewHub()
	hub.AddClient("c1", nil, ConnInfo{})
	assert.NotPanics(t, func() {
		hub.Broadcast("c1", models.ChatEvent{Type: models.EventMessage})
		hub.Broadcast("missing", models.ChatEvent{Type: models.EventMessage})
	})
}

func TestHubBroadcastDeliversEvent(t *testing.T) {
	hub := NewHub()
	joined := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.AddClient("c1", conn, ConnInfo{UserID: "u1", ConnectedAt: time.Now()})
		close(joined)
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()
	<-joined

	hub.Broadcast("c1", models.ChatEvent{Type: models.EventMessageDeleted, MessageID: "m1"})

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev models.ChatEvent
	require.NoError(t, client.ReadJSON(&ev))
	assert.Equal(t, models.EventMessageDeleted, ev.Type)
	assert.Equal(t, "c1", ev.ChatID)
	assert.Equal(t, "m1", ev.MessageID)
}

func TestTypingTrackerExpires(t *testing.T) {
	tr := NewTypingTracker(5 * time.Second)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return now }

	tr.Touch("c1", "u2")
	tr.Touch("c1", "u1")
	tr.Touch("c1", "u3")
	assert.Equal(t, []string{"u2", "u3"}, tr.Active("c1", "u1"))

	tr.Clear("c1", "u3")
	now = now.Add(6 * time.Second)
	tr.Touch("c1", "u4")
	assert.Equal(t, []string{"u4"}, tr.Active("c1", ""))
	assert.Empty(t, tr.Active("other", ""))
}
