package models

import (
	"errors"
	"time"
)

// Message is a single entry of a chat log. Deleted messages stay in the log
// as tombstones so replies can still resolve them.
type Message struct {
	ID              string       `json:"id"`
	ClientID        string       `json:"clientId,omitempty"`
	ChatID          string       `json:"chatId"`
	AuthorID        string       `json:"authorId"`
	AuthorName      string       `json:"authorName"`
	Content         string       `json:"content"`
	Mentions        []string     `json:"mentions"`
	ReplyToID       string       `json:"replyToId,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       *time.Time   `json:"updatedAt,omitempty"`
	IsEdited        bool         `json:"isEdited"`
	IsDeleted       bool         `json:"isDeleted,omitempty"`
	Attachments     []Attachment `json:"attachments,omitempty"`
	IsSystemMessage bool         `json:"isSystemMessage,omitempty"`
	LinkedChatID    string       `json:"linkedChatId,omitempty"`
	LinkedTaskID    string       `json:"linkedTaskId,omitempty"`
	LinkedPostID    string       `json:"linkedPostId,omitempty"`
	// LinkedMessageID points a notification at the message it reports.
	LinkedMessageID string       `json:"linkedMessageId,omitempty"`
}

// Redacted returns m with everything the author wrote removed when m is a
// tombstone. Live messages are returned unchanged.
func (m Message) Redacted() Message {
	if !m.IsDeleted {
		return m
	}
	m.Content = ""
	m.Mentions = []string{}
	m.Attachments = nil
	return m
}

// Clone copies the slices of m.
func (m Message) Clone() Message {
	out := m
	out.Mentions = append([]string(nil), m.Mentions...)
	out.Attachments = append([]Attachment(nil), m.Attachments...)
	if m.UpdatedAt != nil {
		t := *m.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// AttachmentType tags an Attachment.
type AttachmentType string

const (
	AttachmentImage AttachmentType = "image"
	AttachmentFile  AttachmentType = "file"
	AttachmentTask  AttachmentType = "task"
	AttachmentLink  AttachmentType = "link"
	AttachmentEvent AttachmentType = "event"
)

// Attachment is a typed pointer to content owned elsewhere.
type Attachment struct {
	Type    AttachmentType `json:"type"`
	Name    string         `json:"name"`
	URL     string         `json:"url,omitempty"`
	TaskID  string         `json:"taskId,omitempty"`
	EventID string         `json:"eventId,omitempty"`
}

var ErrInvalidAttachment = errors.New("invalid attachment")

// Validate checks that the attachment carries the reference its type needs.
func (a Attachment) Validate() error {
	if a.Name == "" {
		return ErrInvalidAttachment
	}
	switch a.Type {
	case AttachmentImage, AttachmentFile, AttachmentLink:
		if a.URL == "" {
			return ErrInvalidAttachment
		}
	case AttachmentTask:
		if a.TaskID == "" {
			return ErrInvalidAttachment
		}
	case AttachmentEvent:
		if a.EventID == "" {
			return ErrInvalidAttachment
		}
	default:
		return ErrInvalidAttachment
	}
	return nil
}

// MessageDraft is the payload of a new message.
type MessageDraft struct {
	ClientID     string       `json:"clientId,omitempty"`
	Content      string       `json:"content"`
	Mentions     []string     `json:"mentions,omitempty"`
	ReplyToID    string       `json:"replyToId,omitempty"`
	Attachments  []Attachment `json:"attachments,omitempty"`
	LinkedChatID string       `json:"linkedChatId,omitempty"`
	LinkedTaskID string       `json:"linkedTaskId,omitempty"`
	LinkedPostID string       `json:"linkedPostId,omitempty"`
}
