// Package readstate derives unread counts and read receipts for ordered logs.
//
// A user's progress through a log is a State: an optional watermark that
// covers every entry up to a marker, plus a set of entries acknowledged one
// at a time. Chats advance the watermark; post comments populate the set.
// Both are answered by the same functions.
package readstate

import (
	"time"

	"teamchat/internal/models"
)

// Entry is the read-tracking view of a log item.
type Entry struct {
	ID       string
	AuthorID string
	At       time.Time
	Deleted  bool
}

// State is what one user has acknowledged in a log.
type State struct {
	Watermark *models.ReadMarker
	Acked     map[string]struct{}
}

// FromWatermark builds a State from a chat read marker.
func FromWatermark(m models.ReadMarker) State {
	return State{Watermark: &m}
}

// WithAck returns a copy of s that also acknowledges ids.
func (s State) WithAck(ids ...string) State {
	acked := make(map[string]struct{}, len(s.Acked)+len(ids))
	for id := range s.Acked {
		acked[id] = struct{}{}
	}
	for _, id := range ids {
		acked[id] = struct{}{}
	}
	out := s
	out.Acked = acked
	return out
}

func (s State) acked(id string) bool {
	_, ok := s.Acked[id]
	return ok
}

func (s State) markerIndex(entries []Entry) int {
	if s.Watermark == nil || s.Watermark.MessageID == "" {
		return -1
	}
	for i, e := range entries {
		if e.ID == s.Watermark.MessageID {
			return i
		}
	}
	return -1
}

// covered reports whether the watermark reaches entries[i]. Position wins when
// the marker is in the log; otherwise the marker timestamp decides.
func (s State) covered(entries []Entry, i, markerIdx int) bool {
	if s.Watermark == nil {
		return false
	}
	if markerIdx >= 0 {
		return i <= markerIdx
	}
	return !entries[i].At.After(s.Watermark.At)
}

// UnreadCount counts entries by other authors that s does not cover.
// Tombstones are never unread.
func UnreadCount(entries []Entry, userID string, s State) int {
	idx := s.markerIndex(entries)
	n := 0
	for i, e := range entries {
		if e.AuthorID == userID || e.Deleted {
			continue
		}
		if s.acked(e.ID) || s.covered(entries, i, idx) {
			continue
		}
		n++
	}
	return n
}

// FirstUnread returns the index to scroll to when opening the log, or -1
// when everything is read. Without a watermark the first entry is returned.
func FirstUnread(entries []Entry, s State) int {
	if len(entries) == 0 {
		return -1
	}
	if s.Watermark == nil {
		return 0
	}
	if idx := s.markerIndex(entries); idx >= 0 {
		if idx+1 < len(entries) {
			return idx + 1
		}
		return -1
	}
	for i, e := range entries {
		if e.At.After(s.Watermark.At) {
			return i
		}
	}
	return -1
}

// HasRead is the receipt rule: the entry was acknowledged explicitly or the
// watermark timestamp is not older than the entry.
func HasRead(e Entry, s State) bool {
	if s.acked(e.ID) {
		return true
	}
	return s.Watermark != nil && !s.Watermark.At.Before(e.At)
}

// Receipts reports, for every participant other than the author, whether
// they have read e.
func Receipts(e Entry, participants []string, states map[string]State) map[string]bool {
	out := make(map[string]bool, len(participants))
	for _, id := range participants {
		if id == e.AuthorID {
			continue
		}
		out[id] = HasRead(e, states[id])
	}
	return out
}
