// Package notify writes mention notifications into the per-user
// Notifications chats.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"teamchat/internal/models"
	"teamchat/internal/observability"
	"teamchat/internal/repositories"
)

const (
	RoutingKeyMention = "notifications.mention"

	systemAuthorID   = "system"
	systemAuthorName = "teamchat"
	excerptRunes     = 80
)

// Broadcaster delivers push hints to the subscribers of a chat.
type Broadcaster interface {
	Broadcast(chatID string, event models.ChatEvent)
}

// Notifier fans mentions out to the mentioned users.
type Notifier struct {
	chats    repositories.ChatRepository
	messages repositories.MessageRepository
	users    repositories.UserRepository
	hub      Broadcaster
	now      func() time.Time
}

func New(chats repositories.ChatRepository, messages repositories.MessageRepository, users repositories.UserRepository, hub Broadcaster) *Notifier {
	return &Notifier{chats: chats, messages: messages, users: users, hub: hub, now: time.Now}
}

// MessageMentions notifies every mentioned participant of chat except the
// author.
func (n *Notifier) MessageMentions(ctx context.Context, chat models.Chat, msg models.Message) {
	if chat.IsSystem() {
		return
	}
	where := chat.Title
	if where == "" {
		where = "a direct chat"
	}
	text := fmt.Sprintf("%s mentioned you in %s: %s", msg.AuthorName, where, models.Excerpt(msg.Content, excerptRunes))
	for _, userID := range recipients(msg.Mentions, msg.AuthorID) {
		if !chat.HasParticipant(userID) {
			continue
		}
		n.deliver(ctx, userID, "message", models.Message{
			Content:         text,
			LinkedChatID:    chat.ID,
			LinkedMessageID: msg.ID,
		})
	}
}

// CommentMentions notifies every mentioned user except the author. Ids that
// do not belong to a known user are dropped.
func (n *Notifier) CommentMentions(ctx context.Context, post models.ContentPost, comment models.Comment) {
	targets := recipients(comment.Mentions, comment.AuthorID)
	if len(targets) == 0 {
		return
	}
	known, err := n.users.GetUsers(ctx, targets)
	if err != nil {
		log.Error().Err(err).Str("post_id", post.ID).Msg("resolve mentioned users")
		return
	}
	exists := make(map[string]bool, len(known))
	for _, u := range known {
		exists[u.ID] = true
	}

	text := fmt.Sprintf("%s mentioned you in a comment on %q: %s", comment.AuthorName, post.Title, models.Excerpt(comment.Content, excerptRunes))
	for _, userID := range targets {
		if !exists[userID] {
			continue
		}
		n.deliver(ctx, userID, "comment", models.Message{
			Content:      text,
			LinkedPostID: post.ID,
		})
	}
}

func (n *Notifier) deliver(ctx context.Context, userID, kind string, msg models.Message) {
	now := n.now().UTC()
	chat, err := n.chats.EnsureSystemChat(ctx, models.NewNotificationsChat(userID, now))
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("ensure notifications chat")
		return
	}

	msg.ID = uuid.NewString()
	msg.ChatID = chat.ID
	msg.AuthorID = systemAuthorID
	msg.AuthorName = systemAuthorName
	msg.IsSystemMessage = true
	msg.CreatedAt = now
	stored, err := n.messages.CreateMessage(ctx, msg)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("store notification")
		return
	}

	n.hub.Broadcast(chat.ID, models.ChatEvent{Type: models.EventMessage, Message: &stored})
	observability.IncNotification(kind)

	payload := map[string]any{
		"user_id":        userID,
		"kind":           kind,
		"message_id":     stored.ID,
		"linked_chat_id": stored.LinkedChatID,
		"linked_post_id": stored.LinkedPostID,
	}
	_ = observability.PublishEvent(ctx, RoutingKeyMention, observability.NewEnvelope("notifications", "mention", payload),
		observability.BuildHeaders("", observability.TraceIDFromContext(ctx)))
}

// recipients dedupes mentions and drops the author, keeping first-seen order.
func recipients(mentions []string, authorID string) []string {
	seen := make(map[string]bool, len(mentions))
	out := make([]string, 0, len(mentions))
	for _, id := range mentions {
		if id == "" || id == authorID || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
