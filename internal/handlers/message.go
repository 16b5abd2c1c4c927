package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"teamchat/internal/models"
	"teamchat/internal/repositories"
)

// ListMessages handles GET /api/chats/:chat_id/messages. Deleted messages are
// returned as tombstones.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	chat, ok := h.resolveChat(c, c.Param("chat_id"))
	if !ok {
		return
	}

	msgs, err := h.messageRepo.ListMessages(c.Request.Context(), chat.ID)
	if err != nil {
		respondError(c, err, "failed to load messages")
		return
	}
	out := make([]models.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Redacted()
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

// PostMessage handles POST /api/chats/:chat_id/messages. A retry with the same
// clientId returns the message stored by the first attempt.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var draft models.MessageDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		emitAudit(h.audit, c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if models.IsBlank(draft.Content) && len(draft.Attachments) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is empty"})
		return
	}
	for _, a := range draft.Attachments {
		if err := a.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	chat, ok := h.resolveChat(c, c.Param("chat_id"))
	if !ok {
		return
	}
	if chat.IsNotificationsChat {
		respondError(c, ErrReadOnlyChat, "failed to store message")
		return
	}
	userID := c.GetString("userID")

	if draft.ReplyToID != "" {
		target, err := h.messageRepo.GetMessage(c.Request.Context(), draft.ReplyToID)
		if err != nil && !errors.Is(err, repositories.ErrMessageNotFound) {
			respondError(c, err, "failed to store message")
			return
		}
		if err != nil || target.ChatID != chat.ID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reply target is not in this chat"})
			return
		}
	}

	msg, err := h.messageRepo.CreateMessage(c.Request.Context(), models.Message{
		ID:           uuid.NewString(),
		ClientID:     draft.ClientID,
		ChatID:       chat.ID,
		AuthorID:     userID,
		AuthorName:   h.authorName(c, userID),
		Content:      draft.Content,
		Mentions:     draft.Mentions,
		ReplyToID:    draft.ReplyToID,
		Attachments:  draft.Attachments,
		LinkedChatID: draft.LinkedChatID,
		LinkedTaskID: draft.LinkedTaskID,
		LinkedPostID: draft.LinkedPostID,
		CreatedAt:    h.now().UTC(),
	})
	if err != nil {
		emitAudit(h.audit, c, "ERROR", "internal error")
		respondError(c, err, "failed to store message")
		return
	}

	if h.typing != nil {
		h.typing.Clear(chat.ID, userID)
	}
	h.broadcast(chat.ID, models.ChatEvent{Type: models.EventMessage, Message: &msg})
	if h.notifier != nil && len(msg.Mentions) > 0 {
		h.notifier.MessageMentions(c.Request.Context(), chat, msg)
	}
	emitAudit(h.audit, c, "INFO", "Chat message sent")
	c.JSON(http.StatusCreated, msg)
}

// EditMessage handles PATCH /api/chats/:chat_id/messages/:message_id.
func (h *ChatHandler) EditMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if models.IsBlank(req.Content) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is empty"})
		return
	}

	msg, ok := h.ownMessage(c)
	if !ok {
		return
	}
	if msg.IsDeleted {
		respondError(c, ErrMessageGone, "failed to edit message")
		return
	}
	if strings.TrimSpace(req.Content) == strings.TrimSpace(msg.Content) {
		c.JSON(http.StatusOK, msg)
		return
	}

	updated, err := h.messageRepo.UpdateContent(c.Request.Context(), msg.ID, msg.AuthorID, req.Content, h.now().UTC())
	if err != nil {
		respondError(c, err, "failed to edit message")
		return
	}
	h.broadcast(updated.ChatID, models.ChatEvent{Type: models.EventMessageEdited, Message: &updated, MessageID: updated.ID})
	c.JSON(http.StatusOK, updated)
}

// DeleteMessage handles DELETE /api/chats/:chat_id/messages/:message_id. The
// message stays in the log as a tombstone.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	msg, ok := h.ownMessage(c)
	if !ok {
		return
	}
	if msg.IsDeleted {
		c.Status(http.StatusNoContent)
		return
	}

	if err := h.messageRepo.SoftDelete(c.Request.Context(), msg.ID, msg.AuthorID, h.now().UTC()); err != nil {
		emitAudit(h.audit, c, "ERROR", "internal error")
		respondError(c, err, "could not delete message")
		return
	}
	h.broadcast(msg.ChatID, models.ChatEvent{Type: models.EventMessageDeleted, MessageID: msg.ID})
	emitAudit(h.audit, c, "INFO", "Chat message deleted")
	c.Status(http.StatusNoContent)
}

// ForwardMessage handles POST /api/chats/:chat_id/messages/:message_id/forward.
// Every target must be writable by the caller or nothing is written.
func (h *ChatHandler) ForwardMessage(c *gin.Context) {
	var req struct {
		TargetChatIDs []string `json:"targetChatIds" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	source, ok := h.resolveChat(c, c.Param("chat_id"))
	if !ok {
		return
	}
	msg, err := h.messageRepo.GetMessage(c.Request.Context(), c.Param("message_id"))
	if err != nil {
		respondError(c, err, "failed to load message")
		return
	}
	if msg.ChatID != source.ID {
		respondError(c, ErrWrongChat, "failed to forward message")
		return
	}
	if msg.IsDeleted {
		respondError(c, ErrMessageGone, "failed to forward message")
		return
	}

	userID := c.GetString("userID")
	targets := make([]models.Chat, 0, len(req.TargetChatIDs))
	for _, id := range req.TargetChatIDs {
		target, err := h.authorizeChat(c.Request.Context(), id, userID)
		if err != nil {
			respondError(c, err, "failed to forward message")
			return
		}
		if target.IsNotificationsChat {
			respondError(c, ErrReadOnlyChat, "failed to forward message")
			return
		}
		targets = append(targets, target)
	}

	author := h.authorName(c, userID)
	out := make([]models.Message, 0, len(targets))
	for _, target := range targets {
		copied, err := h.messageRepo.CreateMessage(c.Request.Context(), models.Message{
			ID:           uuid.NewString(),
			ChatID:       target.ID,
			AuthorID:     userID,
			AuthorName:   author,
			Content:      msg.Content,
			Attachments:  msg.Attachments,
			LinkedChatID: msg.LinkedChatID,
			LinkedTaskID: msg.LinkedTaskID,
			LinkedPostID: msg.LinkedPostID,
			CreatedAt:    h.now().UTC(),
		})
		if err != nil {
			respondError(c, err, "failed to forward message")
			return
		}
		h.broadcast(target.ID, models.ChatEvent{Type: models.EventMessage, Message: &copied})
		out = append(out, copied)
	}
	emitAudit(h.audit, c, "INFO", "Chat message forwarded")
	c.JSON(http.StatusCreated, gin.H{"messages": out})
}

// ownMessage resolves chat and message from the path and checks the caller
// wrote the message.
func (h *ChatHandler) ownMessage(c *gin.Context) (models.Message, bool) {
	chat, ok := h.resolveChat(c, c.Param("chat_id"))
	if !ok {
		return models.Message{}, false
	}
	msg, err := h.messageRepo.GetMessage(c.Request.Context(), c.Param("message_id"))
	if err != nil {
		respondError(c, err, "failed to load message")
		return models.Message{}, false
	}
	if msg.ChatID != chat.ID {
		respondError(c, ErrWrongChat, "failed to load message")
		return models.Message{}, false
	}
	if msg.AuthorID != c.GetString("userID") {
		emitAudit(h.audit, c, "ERROR", "not allowed")
		respondError(c, repositories.ErrNotAuthor, "failed to load message")
		return models.Message{}, false
	}
	return msg, true
}

func (h *ChatHandler) authorName(c *gin.Context, userID string) string {
	if h.userRepo == nil {
		return userID
	}
	u, err := h.userRepo.GetUser(c.Request.Context(), userID)
	if err != nil {
		return userID
	}
	return u.DisplayName()
}
