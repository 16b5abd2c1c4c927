package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"teamchat/internal/models"
)

var ErrChatNotFound = errors.New("chat not found")

// ChatRepository abstracts chat persistence. Chats come back hydrated:
// participants in join order, per-user pins and read markers, the last
// message and the unread count of the viewer.
type ChatRepository interface {
	ListChatsForUser(ctx context.Context, userID string) ([]models.Chat, error)
	GetChat(ctx context.Context, chatID, viewerID string) (models.Chat, error)
	CreateChat(ctx context.Context, chat models.Chat) (models.Chat, error)
	FindDirectChat(ctx context.Context, userA, userB string) (models.Chat, error)
	EnsureSystemChat(ctx context.Context, chat models.Chat) (models.Chat, error)
	DeleteChat(ctx context.Context, chatID string) error
	IsParticipant(ctx context.Context, chatID, userID string) (bool, error)
	SetPinned(ctx context.Context, chatID, userID string, pinned bool) error
	SetReadMarker(ctx context.Context, chatID, userID string, marker models.ReadMarker) (bool, error)
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

const chatColumns = `c.id, c.title, c.is_group, c.is_notifications, c.is_favorites, c.creator_id, c.created_at`

// ListChatsForUser returns every chat the user participates in, newest first.
func (r *ChatRepo) ListChatsForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.SelectContext(ctx, &chats, `SELECT `+chatColumns+` FROM chats c
        JOIN chat_participants p ON p.chat_id = c.id AND p.user_id = $1
        ORDER BY c.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	if err := r.hydrate(ctx, chats, userID); err != nil {
		return nil, err
	}
	return chats, nil
}

// GetChat fetches a chat by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID, viewerID string) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT `+chatColumns+` FROM chats c WHERE c.id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	if err != nil {
		return models.Chat{}, err
	}
	chats := []models.Chat{chat}
	if err := r.hydrate(ctx, chats, viewerID); err != nil {
		return models.Chat{}, err
	}
	return chats[0], nil
}

// CreateChat stores the chat and its participants atomically. Participants
// keep the order of chat.ParticipantIDs.
func (r *ChatRepo) CreateChat(ctx context.Context, chat models.Chat) (created models.Chat, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Chat{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `INSERT INTO chats (id, title, is_group, is_notifications, is_favorites, creator_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		chat.ID, chat.Title, chat.IsGroup, chat.IsNotificationsChat, chat.IsFavoritesChat, chat.CreatorID, chat.CreatedAt); err != nil {
		return models.Chat{}, err
	}
	for _, id := range chat.ParticipantIDs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO chat_participants (chat_id, user_id) VALUES ($1, $2)
            ON CONFLICT DO NOTHING`, chat.ID, id); err != nil {
			return models.Chat{}, err
		}
	}
	if err = tx.Commit(); err != nil {
		return models.Chat{}, err
	}
	return r.GetChat(ctx, chat.ID, chat.CreatorID)
}

// FindDirectChat looks up the 1:1 chat between two users.
func (r *ChatRepo) FindDirectChat(ctx context.Context, userA, userB string) (models.Chat, error) {
	var chatID string
	err := r.db.GetContext(ctx, &chatID, `SELECT c.id FROM chats c
        JOIN chat_participants a ON a.chat_id = c.id AND a.user_id = $1
        JOIN chat_participants b ON b.chat_id = c.id AND b.user_id = $2
        WHERE NOT c.is_group AND NOT c.is_notifications AND NOT c.is_favorites
          AND (SELECT COUNT(*) FROM chat_participants x WHERE x.chat_id = c.id) = 2
        ORDER BY c.created_at ASC LIMIT 1`, userA, userB)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	if err != nil {
		return models.Chat{}, err
	}
	return r.GetChat(ctx, chatID, userA)
}

// EnsureSystemChat creates a Favorites or Notifications chat when missing and
// returns the stored row either way.
func (r *ChatRepo) EnsureSystemChat(ctx context.Context, chat models.Chat) (models.Chat, error) {
	owner := ""
	if len(chat.ParticipantIDs) > 0 {
		owner = chat.ParticipantIDs[0]
	}
	if _, err := r.db.ExecContext(ctx, `INSERT INTO chats (id, title, is_group, is_notifications, is_favorites, creator_id, created_at)
        VALUES ($1, $2, FALSE, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
		chat.ID, chat.Title, chat.IsNotificationsChat, chat.IsFavoritesChat, chat.CreatorID, chat.CreatedAt); err != nil {
		return models.Chat{}, err
	}
	if _, err := r.db.ExecContext(ctx, `INSERT INTO chat_participants (chat_id, user_id) VALUES ($1, $2)
        ON CONFLICT DO NOTHING`, chat.ID, owner); err != nil {
		return models.Chat{}, err
	}
	return r.GetChat(ctx, chat.ID, owner)
}

// DeleteChat removes the chat; participants, reads and messages cascade.
func (r *ChatRepo) DeleteChat(ctx context.Context, chatID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chats WHERE id=$1`, chatID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrChatNotFound
	}
	return nil
}

// IsParticipant checks whether a user belongs to the chat.
func (r *ChatRepo) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM chat_participants WHERE chat_id=$1 AND user_id=$2)`, chatID, userID)
	return exists, err
}

// SetPinned stores the user's pin flag.
func (r *ChatRepo) SetPinned(ctx context.Context, chatID, userID string, pinned bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE chat_participants SET pinned=$3 WHERE chat_id=$1 AND user_id=$2`, chatID, userID, pinned)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrChatNotFound
	}
	return nil
}

// SetReadMarker moves the user's marker forward. A marker older than the
// stored one is ignored so out-of-order requests cannot move it back. moved
// is false when the stored marker was left as it was.
func (r *ChatRepo) SetReadMarker(ctx context.Context, chatID, userID string, marker models.ReadMarker) (moved bool, err error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO chat_reads (chat_id, user_id, message_id, read_at) VALUES ($1, $2, $3, $4)
        ON CONFLICT (chat_id, user_id) DO UPDATE SET message_id = EXCLUDED.message_id, read_at = EXCLUDED.read_at
        WHERE chat_reads.read_at < EXCLUDED.read_at
           OR (chat_reads.read_at = EXCLUDED.read_at AND chat_reads.message_id <> EXCLUDED.message_id)`,
		chatID, userID, marker.MessageID, marker.At)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type participantRow struct {
	ChatID string `db:"chat_id"`
	UserID string `db:"user_id"`
	Pinned bool   `db:"pinned"`
}

type readRow struct {
	ChatID    string    `db:"chat_id"`
	UserID    string    `db:"user_id"`
	MessageID string    `db:"message_id"`
	ReadAt    time.Time `db:"read_at"`
}

type unreadRow struct {
	ChatID string `db:"chat_id"`
	Unread int    `db:"unread"`
}

// hydrate fills the derived fields of chats in four batched queries.
func (r *ChatRepo) hydrate(ctx context.Context, chats []models.Chat, viewerID string) error {
	if len(chats) == 0 {
		return nil
	}
	ids := make([]string, len(chats))
	index := make(map[string]int, len(chats))
	for i := range chats {
		ids[i] = chats[i].ID
		index[chats[i].ID] = i
		chats[i].ParticipantIDs = []string{}
		chats[i].PinnedByUser = map[string]bool{}
		chats[i].ReadMessagesByUser = map[string]models.ReadMarker{}
	}

	var participants []participantRow
	if err := r.selectIn(ctx, &participants, `SELECT chat_id, user_id, pinned FROM chat_participants
        WHERE chat_id IN (?) ORDER BY position ASC`, ids); err != nil {
		return err
	}
	for _, p := range participants {
		c := &chats[index[p.ChatID]]
		c.ParticipantIDs = append(c.ParticipantIDs, p.UserID)
		if p.Pinned {
			c.PinnedByUser[p.UserID] = true
		}
	}

	var reads []readRow
	if err := r.selectIn(ctx, &reads, `SELECT chat_id, user_id, message_id, read_at FROM chat_reads WHERE chat_id IN (?)`, ids); err != nil {
		return err
	}
	for _, rd := range reads {
		chats[index[rd.ChatID]].ReadMessagesByUser[rd.UserID] = models.ReadMarker{MessageID: rd.MessageID, At: rd.ReadAt}
	}

	var last []messageRow
	if err := r.selectIn(ctx, &last, `SELECT DISTINCT ON (chat_id) `+messageColumns+` FROM messages
        WHERE chat_id IN (?) ORDER BY chat_id, created_at DESC, seq DESC`, ids); err != nil {
		return err
	}
	for _, row := range last {
		m := row.model()
		chats[index[row.ChatID]].LastMessage = &m
	}

	if viewerID == "" {
		return nil
	}
	var unread []unreadRow
	query, args, err := sqlx.In(`SELECT m.chat_id, COUNT(*) AS unread
        FROM messages m
        JOIN chats c ON c.id = m.chat_id
        LEFT JOIN chat_reads r ON r.chat_id = m.chat_id AND r.user_id = ?
        LEFT JOIN messages rm ON rm.id = r.message_id AND rm.chat_id = r.chat_id
        WHERE m.chat_id IN (?) AND NOT c.is_favorites AND m.author_id <> ? AND NOT m.is_deleted
          AND (r.chat_id IS NULL
               OR (rm.id IS NOT NULL AND (m.created_at, m.seq) > (rm.created_at, rm.seq))
               OR (rm.id IS NULL AND m.created_at > r.read_at))
        GROUP BY m.chat_id`, viewerID, ids, viewerID)
	if err != nil {
		return err
	}
	if err := r.db.SelectContext(ctx, &unread, r.db.Rebind(query), args...); err != nil {
		return err
	}
	for _, u := range unread {
		chats[index[u.ChatID]].UnreadCount = u.Unread
	}
	return nil
}

func (r *ChatRepo) selectIn(ctx context.Context, dest any, query string, ids []string) error {
	q, args, err := sqlx.In(query, ids)
	if err != nil {
		return err
	}
	return r.db.SelectContext(ctx, dest, r.db.Rebind(q), args...)
}
