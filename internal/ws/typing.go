package ws

import (
	"sort"
	"sync"
	"time"
)

// DefaultTypingTTL is how long a typing ping stays visible.
const DefaultTypingTTL = 5 * time.Second

// TypingTracker remembers who pinged "typing" in each chat recently.
type TypingTracker struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	chats map[string]map[string]time.Time
}

func NewTypingTracker(ttl time.Duration) *TypingTracker {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	return &TypingTracker{
		ttl:   ttl,
		now:   time.Now,
		chats: make(map[string]map[string]time.Time),
	}
}

// Touch records a typing ping of userID.
func (t *TypingTracker) Touch(chatID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	users, ok := t.chats[chatID]
	if !ok {
		users = make(map[string]time.Time)
		t.chats[chatID] = users
	}
	users[userID] = t.now()
}

// Clear forgets userID, typically after a message was sent.
func (t *TypingTracker) Clear(chatID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if users, ok := t.chats[chatID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(t.chats, chatID)
		}
	}
}

// Active lists users typing in the chat, except exceptUserID, sorted.
// Expired entries are pruned on the way.
func (t *TypingTracker) Active(chatID, exceptUserID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := []string{}
	users, ok := t.chats[chatID]
	if !ok {
		return out
	}
	cutoff := t.now().Add(-t.ttl)
	for id, at := range users {
		if at.Before(cutoff) {
			delete(users, id)
			continue
		}
		if id != exceptUserID {
			out = append(out, id)
		}
	}
	if len(users) == 0 {
		delete(t.chats, chatID)
	}
	sort.Strings(out)
	return out
}
