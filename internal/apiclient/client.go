// Package apiclient talks to the teamchat JSON API on behalf of one user.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"teamchat/internal/models"
)

// APIError is a non-2xx response. Message carries the server's "error" field
// when present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New builds a Client. httpClient may be nil.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: httpClient}
}

// Token returns the bearer token used for requests.
func (c *Client) Token() string {
	return c.token
}

// PushURL is the websocket endpoint of a chat.
func (c *Client) PushURL(chatID string) string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws/chats/" + url.PathEscape(chatID)
}

// PushHeader carries the credentials for PushURL.
func (c *Client) PushHeader() http.Header {
	h := http.Header{}
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	return h
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func chatPath(chatID string, rest ...string) string {
	p := "/api/chats/" + url.PathEscape(chatID)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// ListChats fetches the chats visible to userID.
func (c *Client) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	var resp struct {
		Chats []models.Chat `json:"chats"`
	}
	err := c.do(ctx, http.MethodGet, "/api/chats?user_id="+url.QueryEscape(userID), nil, &resp)
	return resp.Chats, err
}

// GetChat fetches a single chat.
func (c *Client) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	var chat models.Chat
	err := c.do(ctx, http.MethodGet, chatPath(chatID), nil, &chat)
	return chat, err
}

// CreateChat opens a direct or group chat.
func (c *Client) CreateChat(ctx context.Context, title string, isGroup bool, participantIDs []string) (models.Chat, error) {
	req := struct {
		Title          string   `json:"title,omitempty"`
		IsGroup        bool     `json:"isGroup"`
		ParticipantIDs []string `json:"participantIds"`
	}{title, isGroup, participantIDs}
	var chat models.Chat
	err := c.do(ctx, http.MethodPost, "/api/chats", req, &chat)
	return chat, err
}

// DeleteChat removes a regular chat.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	return c.do(ctx, http.MethodDelete, chatPath(chatID), nil, nil)
}

// NotificationsChat returns the user's Notifications chat, creating it on the
// server when needed.
func (c *Client) NotificationsChat(ctx context.Context, userID string) (models.Chat, error) {
	var chat models.Chat
	err := c.do(ctx, http.MethodGet, "/api/chats/notifications/"+url.PathEscape(userID), nil, &chat)
	return chat, err
}

// ListMessages fetches the full log of a chat.
func (c *Client) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	err := c.do(ctx, http.MethodGet, chatPath(chatID, "messages"), nil, &resp)
	return resp.Messages, err
}

// SendMessage posts a message.
func (c *Client) SendMessage(ctx context.Context, chatID string, draft models.MessageDraft) (models.Message, error) {
	var msg models.Message
	err := c.do(ctx, http.MethodPost, chatPath(chatID, "messages"), draft, &msg)
	return msg, err
}

// EditMessage replaces the content of a message.
func (c *Client) EditMessage(ctx context.Context, chatID, messageID, content string) (models.Message, error) {
	req := struct {
		Content string `json:"content"`
	}{content}
	var msg models.Message
	err := c.do(ctx, http.MethodPatch, chatPath(chatID, "messages", url.PathEscape(messageID)), req, &msg)
	return msg, err
}

// DeleteMessage soft-deletes a message.
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	return c.do(ctx, http.MethodDelete, chatPath(chatID, "messages", url.PathEscape(messageID)), nil, nil)
}

// ForwardMessage copies a message into other chats.
func (c *Client) ForwardMessage(ctx context.Context, chatID, messageID string, targetChatIDs []string) ([]models.Message, error) {
	req := struct {
		TargetChatIDs []string `json:"targetChatIds"`
	}{targetChatIDs}
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	err := c.do(ctx, http.MethodPost, chatPath(chatID, "messages", url.PathEscape(messageID), "forward"), req, &resp)
	return resp.Messages, err
}

// MarkRead advances the caller's read marker.
func (c *Client) MarkRead(ctx context.Context, chatID, messageID string) error {
	req := struct {
		MessageID string `json:"messageId"`
	}{messageID}
	return c.do(ctx, http.MethodPost, chatPath(chatID, "mark-read"), req, nil)
}

// SetPinned stores the caller's pin flag.
func (c *Client) SetPinned(ctx context.Context, chatID string, pinned bool) error {
	req := struct {
		Pinned bool `json:"pinned"`
	}{pinned}
	return c.do(ctx, http.MethodPost, chatPath(chatID, "pin"), req, nil)
}

// SendTyping announces that the caller is typing.
func (c *Client) SendTyping(ctx context.Context, chatID string) error {
	return c.do(ctx, http.MethodPost, chatPath(chatID, "typing"), nil, nil)
}

// Typing lists users currently typing in a chat.
func (c *Client) Typing(ctx context.Context, chatID string) ([]string, error) {
	var resp struct {
		UserIDs []string `json:"userIds"`
	}
	err := c.do(ctx, http.MethodGet, chatPath(chatID, "typing"), nil, &resp)
	return resp.UserIDs, err
}

// ListUsers fetches the user directory.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var resp struct {
		Users []models.User `json:"users"`
	}
	err := c.do(ctx, http.MethodGet, "/api/users", nil, &resp)
	return resp.Users, err
}

// Me fetches the caller's user record.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	var u models.User
	err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &u)
	return u, err
}

// Ping reports presence.
func (c *Client) Ping(ctx context.Context, online bool) error {
	req := struct {
		IsOnline bool `json:"isOnline"`
	}{online}
	return c.do(ctx, http.MethodPost, "/api/users/me/status", req, nil)
}
