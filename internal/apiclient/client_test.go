package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamchat/internal/models"
)

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

type recorder struct {
	mu   sync.Mutex
	last recorded
}

func (rec *recorder) handler(status int, reply string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
		}
		if r.ContentLength > 0 {
			_ = json.NewDecoder(r.Body).Decode(&got.body)
		}
		rec.mu.Lock()
		rec.last = got
		rec.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}
}

func (rec *recorder) request() recorded {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.last
}

func newTestClient(t *testing.T, status int, reply string) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler(status, reply))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", "tok", srv.Client()), rec
}

func TestRequestRoutes(t *testing.T) {
	ctx := context.Background()
	c, rec := newTestClient(t, http.StatusOK, `{}`)

	tests := []struct {
		name   string
		call   func() error
		method string
		path   string
	}{
		{"ListChats", func() error { _, err := c.ListChats(ctx, "u1"); return err }, http.MethodGet, "/api/chats"},
		{"GetChat", func() error { _, err := c.GetChat(ctx, "c1"); return err }, http.MethodGet, "/api/chats/c1"},
		{"CreateChat", func() error { _, err := c.CreateChat(ctx, "Launch", true, []string{"u2"}); return err }, http.MethodPost, "/api/chats"},
		{"DeleteChat", func() error { return c.DeleteChat(ctx, "c1") }, http.MethodDelete, "/api/chats/c1"},
		{"NotificationsChat", func() error { _, err := c.NotificationsChat(ctx, "u1"); return err }, http.MethodGet, "/api/chats/notifications/u1"},
		{"ListMessages", func() error { _, err := c.ListMessages(ctx, "c1"); return err }, http.MethodGet, "/api/chats/c1/messages"},
		{"SendMessage", func() error {
			_, err := c.SendMessage(ctx, "c1", models.MessageDraft{Content: "hi", ClientID: "tmp_1"})
			return err
		}, http.MethodPost, "/api/chats/c1/messages"},
		{"EditMessage", func() error { _, err := c.EditMessage(ctx, "c1", "m1", "fixed"); return err }, http.MethodPatch, "/api/chats/c1/messages/m1"},
		{"DeleteMessage", func() error { return c.DeleteMessage(ctx, "c1", "m1") }, http.MethodDelete, "/api/chats/c1/messages/m1"},
		{"ForwardMessage", func() error { _, err := c.ForwardMessage(ctx, "c1", "m1", []string{"c2"}); return err }, http.MethodPost, "/api/chats/c1/messages/m1/forward"},
		{"MarkRead", func() error { return c.MarkRead(ctx, "c1", "m1") }, http.MethodPost, "/api/chats/c1/mark-read"},
		{"SetPinned", func() error { return c.SetPinned(ctx, "c1", true) }, http.MethodPost, "/api/chats/c1/pin"},
		{"SendTyping", func() error { return c.SendTyping(ctx, "c1") }, http.MethodPost, "/api/chats/c1/typing"},
		{"Typing", func() error { _, err := c.Typing(ctx, "c1"); return err }, http.MethodGet, "/api/chats/c1/typing"},
		{"ListUsers", func() error { _, err := c.ListUsers(ctx); return err }, http.MethodGet, "/api/users"},
		{"Me", func() error { _, err := c.Me(ctx); return err }, http.MethodGet, "/api/users/me"},
		{"Ping", func() error { return c.Ping(ctx, true) }, http.MethodPost, "/api/users/me/status"},
		{"ListPosts", func() error { _, err := c.ListPosts(ctx); return err }, http.MethodGet, "/api/content-plan"},
		{"CreatePost", func() error { _, err := c.CreatePost(ctx, models.ContentPost{Title: "t"}); return err }, http.MethodPost, "/api/content-plan"},
		{"UpdatePost", func() error { _, err := c.UpdatePost(ctx, models.ContentPost{ID: "p1", Title: "t"}); return err }, http.MethodPut, "/api/content-plan/p1"},
		{"DeletePost", func() error { return c.DeletePost(ctx, "p1") }, http.MethodDelete, "/api/content-plan/p1"},
		{"AddComment", func() error { _, err := c.AddComment(ctx, "p1", "ok", []string{"u2"}); return err }, http.MethodPost, "/api/content-plan/comments"},
		{"EditComment", func() error { _, err := c.EditComment(ctx, "k1", "ok!"); return err }, http.MethodPatch, "/api/content-plan/comments/k1"},
		{"DeleteComment", func() error { return c.DeleteComment(ctx, "k1") }, http.MethodDelete, "/api/content-plan/comments/k1"},
		{"MarkCommentsRead", func() error { return c.MarkCommentsRead(ctx, "p1") }, http.MethodPost, "/api/content-plan/p1/read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.call())
			got := rec.request()
			assert.Equal(t, tt.method, got.method)
			assert.Equal(t, tt.path, got.path)
			assert.Equal(t, "Bearer tok", got.auth)
		})
	}
}

func TestRequestBodiesAndQuery(t *testing.T) {
	ctx := context.Background()
	c, rec := newTestClient(t, http.StatusOK, `{}`)

	_, err := c.ListChats(ctx, "u 1")
	require.NoError(t, err)
	assert.Equal(t, "user_id=u+1", rec.request().query)

	require.NoError(t, c.MarkRead(ctx, "c1", "m7"))
	assert.Equal(t, map[string]any{"messageId": "m7"}, rec.request().body)

	require.NoError(t, c.SetPinned(ctx, "c1", false))
	assert.Equal(t, map[string]any{"pinned": false}, rec.request().body)

	_, err = c.AddComment(ctx, "p1", "see @bob", []string{"u2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"postId": "p1", "content": "see @bob", "mentions": []any{"u2"}}, rec.request().body)

	_, err = c.ForwardMessage(ctx, "c1", "m1", []string{"c2", "c3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"targetChatIds": []any{"c2", "c3"}}, rec.request().body)
}

func TestResponsesDecode(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t, http.StatusOK, `{"messages":[{"id":"m1","chatId":"c1","content":"hi"}]}`)

	msgs, err := c.ListMessages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "hi", msgs[0].Content)
}

func TestNoContentIsSuccess(t *testing.T) {
	c, _ := newTestClient(t, http.StatusNoContent, ``)
	assert.NoError(t, c.DeleteChat(context.Background(), "c1"))
}

func TestErrorBodyDecodesIntoAPIError(t *testing.T) {
	c, _ := newTestClient(t, http.StatusForbidden, `{"error":"notifications chat is read-only"}`)

	_, err := c.SendMessage(context.Background(), "notifications_u1", models.MessageDraft{Content: "x"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "notifications chat is read-only", apiErr.Message)
	assert.Equal(t, "api error: status 403: notifications chat is read-only", err.Error())
	assert.True(t, IsStatus(err, http.StatusForbidden))
	assert.False(t, IsStatus(err, http.StatusNotFound))
}

func TestErrorWithoutJSONBody(t *testing.T) {
	c, _ := newTestClient(t, http.StatusBadGateway, `upstream down`)

	err := c.Ping(context.Background(), true)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Empty(t, apiErr.Message)
	assert.Equal(t, "api error: status 502", err.Error())
}

func TestIsStatusIgnoresOtherErrors(t *testing.T) {
	assert.False(t, IsStatus(nil, http.StatusNotFound))
	assert.False(t, IsStatus(assert.AnError, http.StatusNotFound))
}

func TestPushURL(t *testing.T) {
	assert.Equal(t, "ws://chat.local:8080/ws/chats/c1", New("http://chat.local:8080", "", nil).PushURL("c1"))
	assert.Equal(t, "wss://chat.example.com/ws/chats/c1", New("https://chat.example.com/", "", nil).PushURL("c1"))
	assert.Equal(t, "wss://chat.example.com/ws/chats/a%2Fb", New("https://chat.example.com", "", nil).PushURL("a/b"))
}

func TestPushHeader(t *testing.T) {
	assert.Equal(t, "Bearer tok", New("http://x", "tok", nil).PushHeader().Get("Authorization"))
	assert.Empty(t, New("http://x", "", nil).PushHeader().Get("Authorization"))
	assert.Equal(t, "tok", New("http://x", "tok", nil).Token())
}
