package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// Connect opens the database and applies migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        username TEXT NOT NULL DEFAULT '',
        email TEXT NOT NULL DEFAULT '',
        role TEXT NOT NULL DEFAULT 'user',
        is_online BOOLEAN NOT NULL DEFAULT FALSE,
        last_seen TIMESTAMPTZ,
        avatar TEXT NOT NULL DEFAULT ''
    );`,
	`CREATE TABLE IF NOT EXISTS chats (
        id TEXT PRIMARY KEY,
        title TEXT NOT NULL DEFAULT '',
        is_group BOOLEAN NOT NULL DEFAULT FALSE,
        is_notifications BOOLEAN NOT NULL DEFAULT FALSE,
        is_favorites BOOLEAN NOT NULL DEFAULT FALSE,
        creator_id TEXT NOT NULL DEFAULT '',
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        CHECK (NOT (is_notifications AND is_favorites))
    );`,
	`CREATE TABLE IF NOT EXISTS chat_participants (
        chat_id TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
        user_id TEXT NOT NULL,
        position BIGSERIAL,
        pinned BOOLEAN NOT NULL DEFAULT FALSE,
        joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        PRIMARY KEY (chat_id, user_id)
    );`,
	`CREATE INDEX IF NOT EXISTS chat_participants_user_idx ON chat_participants (user_id);`,
	`CREATE TABLE IF NOT EXISTS messages (
        seq BIGSERIAL,
        id TEXT PRIMARY KEY,
        client_id TEXT NOT NULL DEFAULT '',
        chat_id TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
        author_id TEXT NOT NULL,
        author_name TEXT NOT NULL DEFAULT '',
        content TEXT NOT NULL DEFAULT '',
        mentions TEXT[] NOT NULL DEFAULT '{}',
        reply_to_id TEXT NOT NULL DEFAULT '',
        attachments JSONB NOT NULL DEFAULT '[]',
        is_edited BOOLEAN NOT NULL DEFAULT FALSE,
        is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
        is_system BOOLEAN NOT NULL DEFAULT FALSE,
        linked_chat_id TEXT NOT NULL DEFAULT '',
        linked_task_id TEXT NOT NULL DEFAULT '',
        linked_post_id TEXT NOT NULL DEFAULT '',
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at TIMESTAMPTZ
    );`,
	`CREATE INDEX IF NOT EXISTS messages_chat_order_idx ON messages (chat_id, created_at, seq);`,
	`ALTER TABLE messages ADD COLUMN IF NOT EXISTS linked_message_id TEXT NOT NULL DEFAULT '';`,
	`CREATE INDEX IF NOT EXISTS messages_linked_message_idx ON messages (linked_message_id) WHERE linked_message_id <> '';`,
	`CREATE UNIQUE INDEX IF NOT EXISTS messages_client_id_idx ON messages (chat_id, author_id, client_id) WHERE client_id <> '';`,
	`CREATE TABLE IF NOT EXISTS chat_reads (
        chat_id TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
        user_id TEXT NOT NULL,
        message_id TEXT NOT NULL,
        read_at TIMESTAMPTZ NOT NULL,
        PRIMARY KEY (chat_id, user_id)
    );`,
	`CREATE TABLE IF NOT EXISTS content_posts (
        id TEXT PRIMARY KEY,
        title TEXT NOT NULL,
        platform TEXT NOT NULL DEFAULT '',
        content_type TEXT NOT NULL DEFAULT '',
        publish_date TEXT NOT NULL DEFAULT '',
        publish_time TEXT NOT NULL DEFAULT '',
        post_status TEXT NOT NULL DEFAULT 'draft',
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );`,
	`CREATE TABLE IF NOT EXISTS post_comments (
        seq BIGSERIAL,
        id TEXT PRIMARY KEY,
        post_id TEXT NOT NULL REFERENCES content_posts(id) ON DELETE CASCADE,
        author_id TEXT NOT NULL,
        author_name TEXT NOT NULL DEFAULT '',
        content TEXT NOT NULL,
        mentions TEXT[] NOT NULL DEFAULT '{}',
        read_by TEXT[] NOT NULL DEFAULT '{}',
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        updated_at TIMESTAMPTZ
    );`,
	`CREATE INDEX IF NOT EXISTS post_comments_post_idx ON post_comments (post_id, created_at, seq);`,
}

func runMigrations(db *sqlx.DB) error {
	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Info().Int("statements", len(migrations)).Msg("database migrations applied")
	return nil
}
