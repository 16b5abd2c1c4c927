package chatsync

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"teamchat/internal/localstore"
	"teamchat/internal/models"
	"teamchat/internal/observability"
	"teamchat/internal/readstate"
)

const (
	// TypingInterval is the minimum gap between two typing pings.
	TypingInterval = 3 * time.Second
	// TypingTTL is how long a remote typing hint stays visible.
	TypingTTL = 5 * time.Second

	backgroundTimeout = 10 * time.Second
	provisionalPrefix = "tmp_"
)

// LogOptions tunes a MessageLog. The zero value is usable.
type LogOptions struct {
	// UserName is stamped on provisional messages.
	UserName string
	// Current reports whether the log is still the selected one. Fetches that
	// complete after it turns false are discarded.
	Current func() bool
	Now     func() time.Time
	// Background, when set, also tracks the log's background calls so an
	// owner can wait for every log it opened.
	Background *sync.WaitGroup
}

// MessageLog is the local view of one chat's messages.
type MessageLog struct {
	chatID   string
	userID   string
	userName string
	src      Source
	store    *localstore.Store
	view     Viewport
	current  func() bool
	now      func() time.Time
	typing   *rate.Limiter

	mu      sync.Mutex
	items   []Item
	typers  map[string]time.Time
	pending sync.WaitGroup
	shared  *sync.WaitGroup
}

func NewMessageLog(chatID, userID string, src Source, store *localstore.Store, view Viewport, opts LogOptions) *MessageLog {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Current == nil {
		opts.Current = func() bool { return true }
	}
	return &MessageLog{
		chatID:   chatID,
		userID:   userID,
		userName: opts.UserName,
		src:      src,
		store:    store,
		view:     view,
		current:  opts.Current,
		now:      opts.Now,
		typing:   rate.NewLimiter(rate.Every(TypingInterval), 1),
		typers:   make(map[string]time.Time),
		shared:   opts.Background,
	}
}

func (l *MessageLog) ChatID() string {
	return l.chatID
}

// Load replaces the log with the server's list. polling is false only for
// the first load after the chat is opened.
func (l *MessageLog) Load(ctx context.Context, polling bool) error {
	remote, err := l.src.ListMessages(ctx, l.chatID)
	if err != nil {
		return fmt.Errorf("load messages %s: %w", l.chatID, err)
	}
	if !l.current() {
		observability.IncSyncStale()
		log.Debug().Str("chat_id", l.chatID).Msg("discarding stale messages")
		return nil
	}

	wasAtBottom := l.view.AtBottom(BottomThreshold)
	focused := l.view.ComposerFocused()

	l.mu.Lock()
	before := len(l.items)
	l.items = Merge(l.items, remote)
	after := len(l.items)
	l.mu.Unlock()

	if ShouldAutoScroll(!polling, wasAtBottom, before, after, focused) {
		l.view.ScrollToBottom()
	}

	if len(remote) > 0 {
		l.markRead(remote[len(remote)-1].ID)
	}
	return nil
}

// markRead advances the watermark in the background. Display never waits
// on it.
func (l *MessageLog) markRead(messageID string) {
	l.background(func(ctx context.Context) {
		if err := l.src.MarkRead(ctx, l.chatID, messageID); err != nil {
			log.Warn().Err(err).Str("chat_id", l.chatID).Str("message_id", messageID).Msg("mark read failed")
		}
	})
}

func (l *MessageLog) background(fn func(ctx context.Context)) {
	l.pending.Add(1)
	if l.shared != nil {
		l.shared.Add(1)
	}
	go func() {
		defer l.pending.Done()
		if l.shared != nil {
			defer l.shared.Done()
		}
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// Wait blocks until background calls started by the log have returned.
func (l *MessageLog) Wait() {
	l.pending.Wait()
}

// Send appends a provisional message and posts it. The provisional item is
// replaced by the server's record on success and marked failed otherwise;
// the next Load drops failed items.
func (l *MessageLog) Send(ctx context.Context, draft models.MessageDraft) (models.Message, error) {
	if strings.TrimSpace(models.PlainText(draft.Content)) == "" && len(draft.Attachments) == 0 {
		return models.Message{}, ErrEmptyMessage
	}
	for _, a := range draft.Attachments {
		if err := a.Validate(); err != nil {
			return models.Message{}, fmt.Errorf("attachment %q: %w", a.Name, err)
		}
	}

	tmpID := provisionalPrefix + uuid.NewString()
	draft.ClientID = tmpID
	provisional := models.Message{
		ID:           tmpID,
		ClientID:     tmpID,
		ChatID:       l.chatID,
		AuthorID:     l.userID,
		AuthorName:   l.userName,
		Content:      draft.Content,
		Mentions:     append([]string(nil), draft.Mentions...),
		ReplyToID:    draft.ReplyToID,
		CreatedAt:    l.now(),
		Attachments:  append([]models.Attachment(nil), draft.Attachments...),
		LinkedChatID: draft.LinkedChatID,
		LinkedTaskID: draft.LinkedTaskID,
		LinkedPostID: draft.LinkedPostID,
	}

	l.mu.Lock()
	next := make([]Item, len(l.items), len(l.items)+1)
	copy(next, l.items)
	l.items = append(next, Item{Message: provisional, State: Pending})
	l.mu.Unlock()
	l.view.ScrollToBottom()

	if err := l.store.SetDraft(ctx, l.chatID, ""); err != nil {
		log.Warn().Err(err).Str("chat_id", l.chatID).Msg("clear draft")
	}

	msg, err := l.src.SendMessage(ctx, l.chatID, draft)

	l.mu.Lock()
	next = make([]Item, len(l.items))
	copy(next, l.items)
	for i, it := range next {
		if it.State != Pending || it.ClientID != tmpID {
			continue
		}
		if err != nil {
			next[i].Failed = true
		} else {
			if msg.ClientID == "" {
				msg.ClientID = tmpID
			}
			next[i] = Confirm(msg)
		}
	}
	l.items = next
	l.mu.Unlock()

	if err != nil {
		return models.Message{}, fmt.Errorf("send message: %w", err)
	}
	return msg, nil
}

// Edit changes the content of a message. Unchanged content issues no
// request and reports false.
func (l *MessageLog) Edit(ctx context.Context, messageID, content string) (bool, error) {
	it, ok := l.Item(messageID)
	if !ok {
		return false, fmt.Errorf("edit %s: %w", messageID, ErrUnknownMessage)
	}
	if it.IsDeleted {
		return false, fmt.Errorf("edit %s: %w", messageID, ErrDeletedMessage)
	}
	if strings.TrimSpace(content) == strings.TrimSpace(it.Content) {
		return false, nil
	}
	if strings.TrimSpace(models.PlainText(content)) == "" {
		return false, ErrEmptyMessage
	}

	if _, err := l.src.EditMessage(ctx, l.chatID, messageID, content); err != nil {
		return false, fmt.Errorf("edit %s: %w", messageID, err)
	}
	return true, l.Load(ctx, true)
}

// Delete soft-deletes a message and reloads without moving the viewport.
func (l *MessageLog) Delete(ctx context.Context, messageID string) error {
	if _, ok := l.Item(messageID); !ok {
		return fmt.Errorf("delete %s: %w", messageID, ErrUnknownMessage)
	}
	if err := l.src.DeleteMessage(ctx, l.chatID, messageID); err != nil {
		return fmt.Errorf("delete %s: %w", messageID, err)
	}
	return l.Load(ctx, true)
}

// Items returns the current log.
func (l *MessageLog) Items() []Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Item(nil), l.items...)
}

// Item looks up a message by id.
func (l *MessageLog) Item(messageID string) (Item, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, it := range l.items {
		if it.ID == messageID {
			return it, true
		}
	}
	return Item{}, false
}

// ReplyPreview resolves the quoted message of a reply.
func (l *MessageLog) ReplyPreview(replyToID string) (ReplyPreview, bool) {
	return PreviewFor(l.Items(), replyToID)
}

// Search looks through the loaded log.
func (l *MessageLog) Search(query string) []SearchResult {
	return Search(l.Items(), query)
}

// FirstUnread returns the message to scroll to when the chat opens, using
// the marker the user had in chat.
func (l *MessageLog) FirstUnread(chat models.Chat) (models.Message, bool) {
	items := l.Items()
	msgs := Messages(items)
	idx := readstate.FirstUnread(readstate.FromMessages(msgs), readstate.ChatStates(chat)[l.userID])
	if idx < 0 {
		return models.Message{}, false
	}
	return msgs[idx], true
}

// Unread counts the loaded messages the user has not read.
func (l *MessageLog) Unread(chat models.Chat) int {
	return readstate.ChatUnread(chat, Messages(l.Items()), l.userID)
}

// Receipts tells, per other participant, whether they have read messageID.
func (l *MessageLog) Receipts(chat models.Chat, messageID string) (map[string]bool, bool) {
	it, ok := l.Item(messageID)
	if !ok {
		return nil, false
	}
	return readstate.MessageReceipts(chat, it.Message), true
}

// Draft returns the saved composer text.
func (l *MessageLog) Draft(ctx context.Context) (string, error) {
	return l.store.Draft(ctx, l.chatID)
}

// SaveDraft stores the composer text and announces typing.
func (l *MessageLog) SaveDraft(ctx context.Context, text string) error {
	if err := l.store.SetDraft(ctx, l.chatID, text); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	if text != "" {
		l.Typing()
	}
	return nil
}

// Typing sends a typing ping, at most once per TypingInterval. Failures are
// logged only.
func (l *MessageLog) Typing() {
	if !l.typing.Allow() {
		return
	}
	l.background(func(ctx context.Context) {
		if err := l.src.SendTyping(ctx, l.chatID); err != nil {
			log.Debug().Err(err).Str("chat_id", l.chatID).Msg("typing ping failed")
		}
	})
}

// NoteTyping records a typing hint from another participant.
func (l *MessageLog) NoteTyping(userID string) {
	if userID == "" || userID == l.userID {
		return
	}
	l.mu.Lock()
	l.typers[userID] = l.now()
	l.mu.Unlock()
}

// Typers lists the users that typed within TypingTTL.
func (l *MessageLog) Typers() []string {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for id, at := range l.typers {
		if now.Sub(at) < TypingTTL {
			out = append(out, id)
		} else {
			delete(l.typers, id)
		}
	}
	sort.Strings(out)
	return out
}
