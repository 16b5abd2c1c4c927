package repositories

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"teamchat/internal/models"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrNotAuthor       = errors.New("not the author")
)

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	ListMessages(ctx context.Context, chatID string) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID string) (models.Message, error)
	CreateMessage(ctx context.Context, msg models.Message) (models.Message, error)
	UpdateContent(ctx context.Context, messageID, authorID, content string, at time.Time) (models.Message, error)
	SoftDelete(ctx context.Context, messageID, authorID string, at time.Time) error
	PurgeNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, client_id, chat_id, author_id, author_name, content, mentions, reply_to_id,
    attachments, is_edited, is_deleted, is_system, linked_chat_id, linked_task_id, linked_post_id,
    linked_message_id, created_at, updated_at`

type attachmentList []models.Attachment

func (a attachmentList) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]models.Attachment(a))
}

func (a *attachmentList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan attachments: unsupported type %T", src)
	}
	return json.Unmarshal(raw, (*[]models.Attachment)(a))
}

type messageRow struct {
	ID           string         `db:"id"`
	ClientID     string         `db:"client_id"`
	ChatID       string         `db:"chat_id"`
	AuthorID     string         `db:"author_id"`
	AuthorName   string         `db:"author_name"`
	Content      string         `db:"content"`
	Mentions     pq.StringArray `db:"mentions"`
	ReplyToID    string         `db:"reply_to_id"`
	Attachments  attachmentList `db:"attachments"`
	IsEdited     bool           `db:"is_edited"`
	IsDeleted    bool           `db:"is_deleted"`
	IsSystem     bool           `db:"is_system"`
	LinkedChatID string         `db:"linked_chat_id"`
	LinkedTaskID string         `db:"linked_task_id"`
	LinkedPostID string         `db:"linked_post_id"`
	LinkedMsgID  string         `db:"linked_message_id"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    *time.Time     `db:"updated_at"`
}

func (r messageRow) model() models.Message {
	m := models.Message{
		ID:              r.ID,
		ClientID:        r.ClientID,
		ChatID:          r.ChatID,
		AuthorID:        r.AuthorID,
		AuthorName:      r.AuthorName,
		Content:         r.Content,
		Mentions:        []string(r.Mentions),
		ReplyToID:       r.ReplyToID,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		IsEdited:        r.IsEdited,
		IsDeleted:       r.IsDeleted,
		Attachments:     []models.Attachment(r.Attachments),
		IsSystemMessage: r.IsSystem,
		LinkedChatID:    r.LinkedChatID,
		LinkedTaskID:    r.LinkedTaskID,
		LinkedPostID:    r.LinkedPostID,
		LinkedMessageID: r.LinkedMsgID,
	}
	if m.Mentions == nil {
		m.Mentions = []string{}
	}
	return m.Redacted()
}

func messageModels(rows []messageRow) []models.Message {
	out := make([]models.Message, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out
}

// ListMessages returns the whole log of a chat, oldest first. Deleted
// messages are included as tombstones.
func (r *MessageRepo) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	var rows []messageRow
	err := r.db.SelectContext(ctx, &rows, `SELECT `+messageColumns+` FROM messages WHERE chat_id=$1 ORDER BY created_at ASC, seq ASC`, chatID)
	if err != nil {
		return nil, err
	}
	return messageModels(rows), nil
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	var row messageRow
	err := r.db.GetContext(ctx, &row, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return models.Message{}, err
	}
	return row.model(), nil
}

// CreateMessage stores msg. A retry carrying a client id that was already
// stored for the same author and chat returns the stored message.
func (r *MessageRepo) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	mentions := msg.Mentions
	if mentions == nil {
		mentions = []string{}
	}
	var row messageRow
	err := r.db.GetContext(ctx, &row, `INSERT INTO messages (id, client_id, chat_id, author_id, author_name, content, mentions,
            reply_to_id, attachments, is_system, linked_chat_id, linked_task_id, linked_post_id, linked_message_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
        ON CONFLICT (chat_id, author_id, client_id) WHERE client_id <> '' DO NOTHING
        RETURNING `+messageColumns,
		msg.ID, msg.ClientID, msg.ChatID, msg.AuthorID, msg.AuthorName, msg.Content, pq.StringArray(mentions),
		msg.ReplyToID, attachmentList(msg.Attachments), msg.IsSystemMessage, msg.LinkedChatID, msg.LinkedTaskID,
		msg.LinkedPostID, msg.LinkedMessageID, msg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = r.db.GetContext(ctx, &row, `SELECT `+messageColumns+` FROM messages WHERE chat_id=$1 AND author_id=$2 AND client_id=$3`,
			msg.ChatID, msg.AuthorID, msg.ClientID)
	}
	if err != nil {
		return models.Message{}, err
	}
	return row.model(), nil
}

// UpdateContent edits a live message of authorID.
func (r *MessageRepo) UpdateContent(ctx context.Context, messageID, authorID, content string, at time.Time) (models.Message, error) {
	var row messageRow
	err := r.db.GetContext(ctx, &row, `UPDATE messages SET content=$3, is_edited=TRUE, updated_at=$4
        WHERE id=$1 AND author_id=$2 AND is_deleted=FALSE
        RETURNING `+messageColumns, messageID, authorID, content, at)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	if err != nil {
		return models.Message{}, err
	}
	return row.model(), nil
}

// SoftDelete turns a message of authorID into a tombstone. The row stays so
// that replies keep resolving, but its text, mentions and attachments are
// erased, and so are the notifications that quoted it.
func (r *MessageRepo) SoftDelete(ctx context.Context, messageID, authorID string, at time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE messages SET `+tombstoneSet+`, updated_at=$3
        WHERE id=$1 AND author_id=$2`, messageID, authorID, at)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}

	if _, err := tx.ExecContext(ctx, `UPDATE messages SET `+tombstoneSet+`, updated_at=$2
        WHERE linked_message_id=$1 AND is_system`, messageID, at); err != nil {
		return err
	}
	return tx.Commit()
}

const tombstoneSet = `is_deleted=TRUE, content='', mentions='{}', attachments='[]'::jsonb`

// PurgeNotificationsBefore removes notification chat messages created before
// cutoff.
func (r *MessageRepo) PurgeNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages m USING chats c
        WHERE m.chat_id = c.id AND c.is_notifications AND m.created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
