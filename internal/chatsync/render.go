package chatsync

import (
	"strings"

	"teamchat/internal/models"
)

// TombstoneText replaces the content of deleted messages everywhere they are
// shown: the log, reply previews and search results.
const TombstoneText = "Message deleted"

const previewRunes = 100

// DisplayText is what the log shows for m.
func DisplayText(m models.Message) string {
	if m.IsDeleted {
		return TombstoneText
	}
	return m.Content
}

// ReplyPreview is the quoted block shown above a reply.
type ReplyPreview struct {
	MessageID  string
	AuthorName string
	Text       string
	Deleted    bool
}

// PreviewFor resolves the message a reply points at. ok is false when the
// target is not in the log.
func PreviewFor(items []Item, replyToID string) (ReplyPreview, bool) {
	if replyToID == "" {
		return ReplyPreview{}, false
	}
	for _, it := range items {
		if it.ID != replyToID {
			continue
		}
		p := ReplyPreview{MessageID: it.ID, AuthorName: it.AuthorName, Deleted: it.IsDeleted}
		if it.IsDeleted {
			p.Text = TombstoneText
		} else {
			p.Text = models.Excerpt(it.Content, previewRunes)
		}
		return p, true
	}
	return ReplyPreview{}, false
}

// SearchResult is a hit of Search. It carries only what a result row shows,
// never the stored message body.
type SearchResult struct {
	ID         string
	AuthorID   string
	AuthorName string
	Deleted    bool
	Snippet    string
}

// Search does a case-insensitive substring match over the visible text of
// the log. Deleted messages only match on the tombstone text.
func Search(items []Item, query string) []SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []SearchResult
	for _, it := range items {
		text := TombstoneText
		if !it.IsDeleted {
			text = models.PlainText(it.Content)
		}
		if strings.Contains(strings.ToLower(text), q) {
			out = append(out, SearchResult{
				ID:         it.ID,
				AuthorID:   it.AuthorID,
				AuthorName: it.AuthorName,
				Deleted:    it.IsDeleted,
				Snippet:    models.Excerpt(text, previewRunes),
			})
		}
	}
	return out
}
