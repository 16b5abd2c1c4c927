// Package chatsync keeps a client's view of chats and messages converged with
// the server. The server is authoritative; local state only overlays it until
// the next fetch.
package chatsync

import (
	"context"
	"errors"

	"teamchat/internal/models"
)

// Source is the authoritative backend. *apiclient.Client implements it.
type Source interface {
	ListChats(ctx context.Context, userID string) ([]models.Chat, error)
	ListMessages(ctx context.Context, chatID string) ([]models.Message, error)
	SendMessage(ctx context.Context, chatID string, draft models.MessageDraft) (models.Message, error)
	EditMessage(ctx context.Context, chatID, messageID, content string) (models.Message, error)
	DeleteMessage(ctx context.Context, chatID, messageID string) error
	MarkRead(ctx context.Context, chatID, messageID string) error
	SetPinned(ctx context.Context, chatID string, pinned bool) error
	SendTyping(ctx context.Context, chatID string) error
}

var (
	ErrUnknownChat    = errors.New("unknown chat")
	ErrUnknownMessage = errors.New("unknown message")
	ErrEmptyMessage   = errors.New("message has no content")
	ErrDeletedMessage = errors.New("message is deleted")
	ErrNotSelected    = errors.New("no chat selected")
)
