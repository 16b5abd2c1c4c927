package chatsync

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"teamchat/internal/localstore"
	"teamchat/internal/models"
)

// pinOverride is a pin toggle the server has not reflected yet. base is the
// server value observed when the toggle was made; the override lives until
// the server reports something else.
type pinOverride struct {
	pinned bool
	base   bool
}

// Directory is the chat list of one user.
type Directory struct {
	userID string
	src    Source
	store  *localstore.Store
	now    func() time.Time

	mu        sync.Mutex
	chats     []models.Chat
	overrides map[string]pinOverride
}

func NewDirectory(userID string, src Source, store *localstore.Store) *Directory {
	return &Directory{
		userID:    userID,
		src:       src,
		store:     store,
		now:       time.Now,
		overrides: make(map[string]pinOverride),
	}
}

// Load fetches the chat list and merges it with local state. The result
// always holds exactly one Favorites and one Notifications chat.
func (d *Directory) Load(ctx context.Context) ([]models.Chat, error) {
	remote, err := d.src.ListChats(ctx, d.userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}

	system := d.systemChats(ctx, remote)

	rest := make([]models.Chat, 0, len(remote))
	for _, c := range remote {
		if c.IsSystem() {
			continue
		}
		rest = append(rest, c.Clone())
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range rest {
		c := &rest[i]
		o, ok := d.overrides[c.ID]
		if !ok {
			continue
		}
		if c.PinnedFor(d.userID) != o.base {
			delete(d.overrides, c.ID)
			continue
		}
		c.PinnedByUser[d.userID] = o.pinned
	}

	merged := append(system, rest...)
	sortPinnedFirst(merged, d.userID)
	d.chats = merged
	return cloneChats(merged), nil
}

// systemChats picks the user's Favorites and Notifications chats out of the
// server list, synthesising the missing ones. Favorites comes first.
func (d *Directory) systemChats(ctx context.Context, remote []models.Chat) []models.Chat {
	var favorites, notifications *models.Chat
	for _, c := range remote {
		switch {
		case c.IsFavoritesChat && favorites == nil:
			fc := c.Clone()
			favorites = &fc
		case c.IsNotificationsChat && notifications == nil:
			nc := c.Clone()
			notifications = &nc
		}
	}

	now := d.now()
	if favorites == nil {
		fc := models.NewFavoritesChat(d.userID, now)
		favorites = &fc
	}
	if notifications == nil {
		nc := models.NewNotificationsChat(d.userID, now)
		notifications = &nc
	}
	favorites.UnreadCount = 0

	out := []models.Chat{*favorites, *notifications}
	for i := range out {
		out[i].PinnedByUser[d.userID] = d.systemPinned(ctx, out[i].ID)
	}
	return out
}

func (d *Directory) systemPinned(ctx context.Context, chatID string) bool {
	pinned, ok, err := d.store.PinOverride(ctx, chatID)
	if err != nil {
		log.Warn().Err(err).Str("chat_id", chatID).Msg("read pin flag")
		return true
	}
	if !ok {
		return true
	}
	return pinned
}

// SetPinned toggles the pin of a chat for the user. System chats are pinned
// locally only. Regular chats are patched optimistically and restored when
// the server rejects the change.
func (d *Directory) SetPinned(ctx context.Context, chatID string, pinned bool) error {
	d.mu.Lock()
	idx := d.indexLocked(chatID)
	if idx < 0 {
		d.mu.Unlock()
		return fmt.Errorf("pin %s: %w", chatID, ErrUnknownChat)
	}
	chat := d.chats[idx]

	if chat.IsSystem() {
		d.setPinLocked(idx, pinned)
		d.mu.Unlock()
		if err := d.store.SetPinOverride(ctx, chatID, pinned); err != nil {
			return fmt.Errorf("store pin %s: %w", chatID, err)
		}
		return nil
	}

	prev, hadPrev := d.overrides[chatID]
	base := chat.PinnedFor(d.userID)
	if hadPrev {
		base = prev.base
	}
	d.overrides[chatID] = pinOverride{pinned: pinned, base: base}
	d.setPinLocked(idx, pinned)
	d.mu.Unlock()

	if err := d.src.SetPinned(ctx, chatID, pinned); err != nil {
		d.mu.Lock()
		restored := base
		if hadPrev {
			d.overrides[chatID] = prev
			restored = prev.pinned
		} else {
			delete(d.overrides, chatID)
		}
		if i := d.indexLocked(chatID); i >= 0 {
			d.setPinLocked(i, restored)
		}
		d.mu.Unlock()
		return fmt.Errorf("pin %s: %w", chatID, err)
	}
	return nil
}

// setPinLocked replaces the chat at idx with a copy carrying the new flag
// and re-sorts the list.
func (d *Directory) setPinLocked(idx int, pinned bool) {
	next := cloneChats(d.chats)
	next[idx].PinnedByUser[d.userID] = pinned
	sortPinnedFirst(next, d.userID)
	d.chats = next
}

func (d *Directory) indexLocked(chatID string) int {
	for i, c := range d.chats {
		if c.ID == chatID {
			return i
		}
	}
	return -1
}

// Chats returns the last merged list.
func (d *Directory) Chats() []models.Chat {
	d.mu.Lock()
	defer d.mu.Unlock()
	return cloneChats(d.chats)
}

// Chat looks up one chat of the last merged list.
func (d *Directory) Chat(chatID string) (models.Chat, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i := d.indexLocked(chatID); i >= 0 {
		return d.chats[i].Clone(), true
	}
	return models.Chat{}, false
}

// UnreadTotal sums the unread badges.
func (d *Directory) UnreadTotal() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.chats {
		if !c.IsFavoritesChat {
			n += c.UnreadCount
		}
	}
	return n
}

func sortPinnedFirst(chats []models.Chat, userID string) {
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].PinnedFor(userID) && !chats[j].PinnedFor(userID)
	})
}

func cloneChats(in []models.Chat) []models.Chat {
	out := make([]models.Chat, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}
