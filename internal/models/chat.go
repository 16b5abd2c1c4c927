package models

import (
	"strings"
	"time"
)

const (
	favoritesPrefix     = "favorites_"
	notificationsPrefix = "notifications_"
)

// Chat is a conversation between one or more users. Group chats and the
// per-user system chats (Favorites, Notifications) share this shape.
type Chat struct {
	ID                  string                `db:"id" json:"id"`
	Title               string                `db:"title" json:"title,omitempty"`
	IsGroup             bool                  `db:"is_group" json:"isGroup"`
	IsNotificationsChat bool                  `db:"is_notifications" json:"isNotificationsChat,omitempty"`
	IsFavoritesChat     bool                  `db:"is_favorites" json:"isFavoritesChat,omitempty"`
	ParticipantIDs      []string              `db:"-" json:"participantIds"`
	CreatorID           string                `db:"creator_id" json:"creatorId,omitempty"`
	CreatedAt           time.Time             `db:"created_at" json:"createdAt"`
	ReadMessagesByUser  map[string]ReadMarker `db:"-" json:"readMessagesByUser"`
	PinnedByUser        map[string]bool       `db:"-" json:"pinnedByUser"`
	LastMessage         *Message              `db:"-" json:"lastMessage,omitempty"`
	UnreadCount         int                   `db:"-" json:"unreadCount"`
}

// ReadMarker records the last message a user acknowledged in a chat. At is
// the creation time of that message, not the time the marker was written.
type ReadMarker struct {
	MessageID string    `json:"messageId"`
	At        time.Time `json:"at"`
}

// IsSystem reports whether the chat is one of the per-user system chats.
func (c Chat) IsSystem() bool {
	return c.IsFavoritesChat || c.IsNotificationsChat
}

// HasParticipant checks membership.
func (c Chat) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// PinnedFor returns the pin flag of the user, false when unset.
func (c Chat) PinnedFor(userID string) bool {
	return c.PinnedByUser[userID]
}

// Clone returns a copy that shares no maps or slices with c.
func (c Chat) Clone() Chat {
	out := c
	out.ParticipantIDs = append([]string(nil), c.ParticipantIDs...)
	out.ReadMessagesByUser = make(map[string]ReadMarker, len(c.ReadMessagesByUser))
	for k, v := range c.ReadMessagesByUser {
		out.ReadMessagesByUser[k] = v
	}
	out.PinnedByUser = make(map[string]bool, len(c.PinnedByUser))
	for k, v := range c.PinnedByUser {
		out.PinnedByUser[k] = v
	}
	if c.LastMessage != nil {
		m := c.LastMessage.Clone()
		out.LastMessage = &m
	}
	return out
}

// FavoritesChatID is the stable id of the user's Favorites chat.
func FavoritesChatID(userID string) string {
	return favoritesPrefix + userID
}

// NotificationsChatID is the stable id of the user's Notifications chat.
func NotificationsChatID(userID string) string {
	return notificationsPrefix + userID
}

// SystemChatOwner resolves a system chat id to its owner. ok is false for
// regular chat ids.
func SystemChatOwner(chatID string) (userID string, favorites bool, ok bool) {
	switch {
	case strings.HasPrefix(chatID, favoritesPrefix):
		return strings.TrimPrefix(chatID, favoritesPrefix), true, true
	case strings.HasPrefix(chatID, notificationsPrefix):
		return strings.TrimPrefix(chatID, notificationsPrefix), false, true
	}
	return "", false, false
}

// NewFavoritesChat builds the Favorites self-chat for the user.
func NewFavoritesChat(userID string, now time.Time) Chat {
	return Chat{
		ID:                 FavoritesChatID(userID),
		Title:              "Favorites",
		IsFavoritesChat:    true,
		ParticipantIDs:     []string{userID},
		CreatorID:          userID,
		CreatedAt:          now,
		ReadMessagesByUser: map[string]ReadMarker{},
		PinnedByUser:       map[string]bool{},
	}
}

// NewNotificationsChat builds the Notifications system chat for the user.
func NewNotificationsChat(userID string, now time.Time) Chat {
	return Chat{
		ID:                  NotificationsChatID(userID),
		Title:               "Notifications",
		IsNotificationsChat: true,
		ParticipantIDs:      []string{userID},
		CreatedAt:           now,
		ReadMessagesByUser:  map[string]ReadMarker{},
		PinnedByUser:        map[string]bool{},
	}
}

// ChatEvent is pushed to websocket subscribers of a chat.
type ChatEvent struct {
	Type      string   `json:"type"`
	ChatID    string   `json:"chatId"`
	Message   *Message `json:"message,omitempty"`
	MessageID string   `json:"messageId,omitempty"`
	UserID    string   `json:"userId,omitempty"`
}

const (
	EventMessage        = "message"
	EventMessageEdited  = "message_edited"
	EventMessageDeleted = "message_deleted"
	EventTyping         = "typing"
	EventRead           = "read"
)
