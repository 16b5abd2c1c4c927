// Package localstore persists client-side state that is never validated by
// the server: identity, last selected chat, pin flags of system chats and
// per-chat drafts.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"teamchat/internal/models"
)

// Backend is a flat string key-value store.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

const (
	keyAccount      = "myAccount"
	keyUsername     = "username"
	keyLastSelected = "last_selected_chat"
)

func pinKey(chatID string) string   { return "chat_pin_" + chatID }
func draftKey(chatID string) string { return "draft_" + chatID }

// Store wraps a Backend with typed accessors.
type Store struct {
	backend Backend
}

// New wraps backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// PinOverride returns the stored pin flag of a chat. ok is false when none
// was ever stored.
func (s *Store) PinOverride(ctx context.Context, chatID string) (pinned bool, ok bool, err error) {
	raw, ok, err := s.backend.Get(ctx, pinKey(chatID))
	if err != nil || !ok {
		return false, false, err
	}
	pinned, err = strconv.ParseBool(raw)
	if err != nil {
		// unparsable values are treated as absent
		return false, false, nil
	}
	return pinned, true, nil
}

// SetPinOverride stores the pin flag of a chat.
func (s *Store) SetPinOverride(ctx context.Context, chatID string, pinned bool) error {
	return s.backend.Set(ctx, pinKey(chatID), strconv.FormatBool(pinned))
}

// Draft returns the unsent composer text of a chat.
func (s *Store) Draft(ctx context.Context, chatID string) (string, error) {
	raw, _, err := s.backend.Get(ctx, draftKey(chatID))
	return raw, err
}

// SetDraft stores the composer text; an empty text clears it.
func (s *Store) SetDraft(ctx context.Context, chatID, text string) error {
	if text == "" {
		return s.backend.Delete(ctx, draftKey(chatID))
	}
	return s.backend.Set(ctx, draftKey(chatID), text)
}

// LastSelectedChat returns the chat that was open last, or "".
func (s *Store) LastSelectedChat(ctx context.Context) (string, error) {
	raw, _, err := s.backend.Get(ctx, keyLastSelected)
	return raw, err
}

// SetLastSelectedChat remembers the open chat.
func (s *Store) SetLastSelectedChat(ctx context.Context, chatID string) error {
	if chatID == "" {
		return s.backend.Delete(ctx, keyLastSelected)
	}
	return s.backend.Set(ctx, keyLastSelected, chatID)
}

var ErrNoAccount = errors.New("no account stored")

// Account returns the cached identity.
func (s *Store) Account(ctx context.Context) (models.User, error) {
	raw, ok, err := s.backend.Get(ctx, keyAccount)
	if err != nil {
		return models.User{}, err
	}
	if !ok {
		return models.User{}, ErrNoAccount
	}
	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return models.User{}, fmt.Errorf("decode account: %w", err)
	}
	return u, nil
}

// SetAccount caches the identity and its username.
func (s *Store) SetAccount(ctx context.Context, u models.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	if err := s.backend.Set(ctx, keyAccount, string(raw)); err != nil {
		return err
	}
	return s.SetUsername(ctx, u.Username)
}

// Username returns the cached username, or "".
func (s *Store) Username(ctx context.Context) (string, error) {
	raw, _, err := s.backend.Get(ctx, keyUsername)
	return raw, err
}

// SetUsername caches the username.
func (s *Store) SetUsername(ctx context.Context, username string) error {
	if username == "" {
		return s.backend.Delete(ctx, keyUsername)
	}
	return s.backend.Set(ctx, keyUsername, username)
}
