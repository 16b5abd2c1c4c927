package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"teamchat/internal/models"
	"teamchat/internal/repositories"
	"teamchat/internal/telemetry"
)

// Broadcaster delivers push hints to the websocket subscribers of a chat.
type Broadcaster interface {
	Broadcast(chatID string, event models.ChatEvent)
}

// RoomCounter reports websocket room sizes.
type RoomCounter interface {
	RoomSize(chatID string) int
}

// TypingRegistry tracks short-lived typing pings.
type TypingRegistry interface {
	Touch(chatID, userID string)
	Clear(chatID, userID string)
	Active(chatID, exceptUserID string) []string
}

// MentionNotifier fans mentions out to Notifications chats.
type MentionNotifier interface {
	MessageMentions(ctx context.Context, chat models.Chat, msg models.Message)
	CommentMentions(ctx context.Context, post models.ContentPost, comment models.Comment)
}

// ChatHandler serves chats, their messages and per-user chat state.
type ChatHandler struct {
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	userRepo    repositories.UserRepository
	hub         Broadcaster
	typing      TypingRegistry
	notifier    MentionNotifier
	audit       *telemetry.AuditEmitter
	now         func() time.Time
}

// NewChatHandler builds a ChatHandler. hub, typing, notifier and audit may be
// nil.
func NewChatHandler(chatRepo repositories.ChatRepository, messageRepo repositories.MessageRepository, userRepo repositories.UserRepository,
	hub Broadcaster, typing TypingRegistry, notifier MentionNotifier, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		hub:         hub,
		typing:      typing,
		notifier:    notifier,
		audit:       audit,
		now:         time.Now,
	}
}

// ListChats handles GET /api/chats.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := c.GetString("userID")
	if q := c.Query("user_id"); q != "" && q != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot list chats of another user"})
		return
	}

	chats, err := h.chatRepo.ListChatsForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to load chats")
		return
	}
	out := make([]models.Chat, len(chats))
	for i, chat := range chats {
		out[i] = redactLast(chat)
	}
	c.JSON(http.StatusOK, gin.H{"chats": out})
}

// CreateChat handles POST /api/chats. Asking for a 1:1 chat that already
// exists returns the existing chat with 200.
func (h *ChatHandler) CreateChat(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		Title          string   `json:"title"`
		IsGroup        bool     `json:"isGroup"`
		ParticipantIDs []string `json:"participantIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		emitAudit(h.audit, c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	participants := []string{userID}
	seen := map[string]bool{userID: true}
	for _, id := range req.ParticipantIDs {
		if id == "" || seen[id] {
			continue
		}
		if _, _, system := models.SystemChatOwner(id); system {
			continue
		}
		seen[id] = true
		participants = append(participants, id)
	}
	if !req.IsGroup && len(participants) != 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a direct chat needs exactly one other participant"})
		return
	}

	known, err := h.userRepo.GetUsers(c.Request.Context(), participants[1:])
	if err != nil {
		respondError(c, err, "failed to validate participants")
		return
	}
	if len(known) != len(participants)-1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown participant"})
		return
	}

	if !req.IsGroup {
		existing, err := h.chatRepo.FindDirectChat(c.Request.Context(), userID, participants[1])
		if err == nil {
			c.JSON(http.StatusOK, redactLast(existing))
			return
		}
		if !errors.Is(err, repositories.ErrChatNotFound) {
			respondError(c, err, "could not create chat")
			return
		}
	}

	chat, err := h.chatRepo.CreateChat(c.Request.Context(), models.Chat{
		ID:             uuid.NewString(),
		Title:          req.Title,
		IsGroup:        req.IsGroup,
		ParticipantIDs: participants,
		CreatorID:      userID,
		CreatedAt:      h.now().UTC(),
	})
	if err != nil {
		emitAudit(h.audit, c, "ERROR", "internal error")
		respondError(c, err, "could not create chat")
		return
	}

	emitAudit(h.audit, c, "INFO", "Chat created")
	c.JSON(http.StatusCreated, chat)
}

// GetChat handles GET /api/chats/:chat_id.
func (h *ChatHandler) GetChat(c *gin.Context) {
	chat, ok := h.resolveChat(c, c.Param("chat_id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, redactLast(chat))
}

// NotificationsChat handles GET /api/chats/notifications/:user_id.
func (h *ChatHandler) NotificationsChat(c *gin.Context) {
	owner := c.Param("user_id")
	if owner != c.GetString("userID") {
		c.JSON(http.StatusForbidden, gin.H{"error": ErrNotMember.Error()})
		return
	}
	chat, ok := h.resolveChat(c, models.NotificationsChatID(owner))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, redactLast(chat))
}

// DeleteChat handles DELETE /api/chats/:chat_id. Group chats can only be
// removed by their creator.
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	chatID := c.Param("chat_id")
	userID := c.GetString("userID")
	if _, _, system := models.SystemChatOwner(chatID); system {
		respondError(c, ErrSystemChat, "could not delete chat")
		return
	}

	chat, ok := h.resolveChat(c, chatID)
	if !ok {
		return
	}
	if chat.IsGroup && chat.CreatorID != userID {
		emitAudit(h.audit, c, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "only the creator can delete a group chat"})
		return
	}

	if err := h.chatRepo.DeleteChat(c.Request.Context(), chatID); err != nil {
		respondError(c, err, "could not delete chat")
		return
	}
	emitAudit(h.audit, c, "INFO", "Chat deleted")
	c.Status(http.StatusNoContent)
}

// MarkRead handles POST /api/chats/:chat_id/mark-read. The marker takes the
// creation time of the message, never the request time.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	var req struct {
		MessageID string `json:"messageId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, ok := h.resolveChat(c, c.Param("chat_id"))
	if !ok {
		return
	}
	userID := c.GetString("userID")

	msg, err := h.messageRepo.GetMessage(c.Request.Context(), req.MessageID)
	if err != nil {
		respondError(c, err, "failed to load message")
		return
	}
	if msg.ChatID != chat.ID {
		respondError(c, ErrWrongChat, "failed to mark read")
		return
	}

	marker := models.ReadMarker{MessageID: msg.ID, At: msg.CreatedAt}
	moved, err := h.chatRepo.SetReadMarker(c.Request.Context(), chat.ID, userID, marker)
	if err != nil {
		respondError(c, err, "failed to mark read")
		return
	}
	if moved {
		h.broadcast(chat.ID, models.ChatEvent{Type: models.EventRead, UserID: userID, MessageID: msg.ID})
	}
	c.Status(http.StatusNoContent)
}

// SetPinned handles POST /api/chats/:chat_id/pin.
func (h *ChatHandler) SetPinned(c *gin.Context) {
	var req struct {
		Pinned *bool `json:"pinned" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chat, ok := h.resolveChat(c, c.Param("chat_id"))
	if !ok {
		return
	}
	if err := h.chatRepo.SetPinned(c.Request.Context(), chat.ID, c.GetString("userID"), *req.Pinned); err != nil {
		respondError(c, err, "failed to update pin")
		return
	}
	c.Status(http.StatusNoContent)
}

// Typing handles POST /api/chats/:chat_id/typing.
func (h *ChatHandler) Typing(c *gin.Context) {
	chat, ok := h.resolveChat(c, c.Param("chat_id"))
	if !ok {
		return
	}
	userID := c.GetString("userID")
	if h.typing != nil {
		h.typing.Touch(chat.ID, userID)
	}
	h.broadcast(chat.ID, models.ChatEvent{Type: models.EventTyping, UserID: userID})
	c.Status(http.StatusNoContent)
}

// ListTyping handles GET /api/chats/:chat_id/typing.
func (h *ChatHandler) ListTyping(c *gin.Context) {
	chat, ok := h.resolveChat(c, c.Param("chat_id"))
	if !ok {
		return
	}
	users := []string{}
	if h.typing != nil {
		users = h.typing.Active(chat.ID, c.GetString("userID"))
	}
	c.JSON(http.StatusOK, gin.H{"userIds": users})
}

// authorizeChat loads a chat the caller may access. System chats are created
// on first access by their owner.
func (h *ChatHandler) authorizeChat(ctx context.Context, chatID, userID string) (models.Chat, error) {
	owner, favorites, system := models.SystemChatOwner(chatID)
	if system && owner != userID {
		return models.Chat{}, ErrNotMember
	}

	chat, err := h.chatRepo.GetChat(ctx, chatID, userID)
	if system && errors.Is(err, repositories.ErrChatNotFound) {
		now := h.now().UTC()
		seed := models.NewNotificationsChat(owner, now)
		if favorites {
			seed = models.NewFavoritesChat(owner, now)
		}
		return h.chatRepo.EnsureSystemChat(ctx, seed)
	}
	if err != nil {
		return models.Chat{}, err
	}
	if !chat.HasParticipant(userID) {
		return models.Chat{}, ErrNotMember
	}
	return chat, nil
}

func (h *ChatHandler) resolveChat(c *gin.Context, chatID string) (models.Chat, bool) {
	chat, err := h.authorizeChat(c.Request.Context(), chatID, c.GetString("userID"))
	if err != nil {
		if errors.Is(err, ErrNotMember) {
			emitAudit(h.audit, c, "ERROR", "not allowed")
		}
		respondError(c, err, "failed to load chat")
		return models.Chat{}, false
	}
	return chat, true
}

// redactLast strips the text of a deleted last message.
func redactLast(chat models.Chat) models.Chat {
	if chat.LastMessage != nil && chat.LastMessage.IsDeleted {
		m := chat.LastMessage.Redacted()
		chat.LastMessage = &m
	}
	return chat
}

func (h *ChatHandler) broadcast(chatID string, event models.ChatEvent) {
	if h.hub != nil {
		h.hub.Broadcast(chatID, event)
	}
}
