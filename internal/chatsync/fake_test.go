package chatsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"teamchat/internal/localstore"
	"teamchat/internal/models"
)

var errBoom = errors.New("boom")

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// fakeSource is an in-memory server.
type fakeSource struct {
	mu       sync.Mutex
	chats    []models.Chat
	messages map[string][]models.Message
	pins     map[string]bool
	marked   []string
	nextID   int

	sendErr error
	pinErr  error
	listErr error

	listCalls int
	edits     int
	deletes   int
	typing    int

	// beforeList runs inside ListMessages before the result is built.
	beforeList func()
	// onMark runs inside MarkRead before the marker is recorded.
	onMark func(chatID, messageID string)
}

func newFakeSource() *fakeSource {
	return &fakeSource{messages: map[string][]models.Message{}, pins: map[string]bool{}}
}

func (f *fakeSource) ListChats(_ context.Context, _ string) ([]models.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Chat, len(f.chats))
	for i, c := range f.chats {
		out[i] = c.Clone()
	}
	return out, nil
}

func (f *fakeSource) ListMessages(_ context.Context, chatID string) ([]models.Message, error) {
	if f.beforeList != nil {
		f.beforeList()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Message(nil), f.messages[chatID]...), nil
}

func (f *fakeSource) add(chatID, authorID, content string) models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addLocked(chatID, authorID, content, "")
}

func (f *fakeSource) addLocked(chatID, authorID, content, clientID string) models.Message {
	f.nextID++
	m := models.Message{
		ID:        fmt.Sprintf("srv%d", f.nextID),
		ClientID:  clientID,
		ChatID:    chatID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: t0.Add(time.Duration(f.nextID) * time.Minute),
	}
	f.messages[chatID] = append(f.messages[chatID], m)
	return m
}

func (f *fakeSource) SendMessage(_ context.Context, chatID string, d models.MessageDraft) (models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return models.Message{}, f.sendErr
	}
	return f.addLocked(chatID, "me", d.Content, d.ClientID), nil
}

func (f *fakeSource) EditMessage(_ context.Context, chatID, messageID, content string) (models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits++
	for i, m := range f.messages[chatID] {
		if m.ID == messageID {
			m.Content = content
			m.IsEdited = true
			f.messages[chatID][i] = m
			return m, nil
		}
	}
	return models.Message{}, errBoom
}

func (f *fakeSource) DeleteMessage(_ context.Context, chatID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	for i, m := range f.messages[chatID] {
		if m.ID == messageID {
			m.IsDeleted = true
			f.messages[chatID][i] = m
			return nil
		}
	}
	return errBoom
}

func (f *fakeSource) MarkRead(_ context.Context, chatID, messageID string) error {
	if f.onMark != nil {
		f.onMark(chatID, messageID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, messageID)
	return nil
}

func (f *fakeSource) SetPinned(_ context.Context, chatID string, pinned bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pinErr != nil {
		return f.pinErr
	}
	f.pins[chatID] = pinned
	return nil
}

func (f *fakeSource) SendTyping(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
	return nil
}

func (f *fakeSource) lists() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeSource) counts() (edits, deletes, typing int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.edits, f.deletes, f.typing
}

func (f *fakeSource) markedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.marked...)
}

func newStore() *localstore.Store {
	return localstore.New(localstore.NewMemory())
}

func regularChat(id string, pinned bool) models.Chat {
	return models.Chat{
		ID:             id,
		Title:          id,
		ParticipantIDs: []string{"me", "bob"},
		CreatedAt:      t0,
		PinnedByUser:   map[string]bool{"me": pinned},
	}
}
