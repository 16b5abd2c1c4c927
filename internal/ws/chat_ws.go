package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"teamchat/internal/middleware"
	"teamchat/internal/models"
	"teamchat/internal/observability"
	"teamchat/internal/repositories"
)

// ChatWebSocketHandler streams push hints of a chat to its participants.
type ChatWebSocketHandler struct {
	hub      *Hub
	chatRepo repositories.ChatRepository
	verifier middleware.TokenVerifier
	typing   *TypingTracker
}

// NewChatWebSocketHandler constructs a ChatWebSocketHandler.
func NewChatWebSocketHandler(hub *Hub, chatRepo repositories.ChatRepository, verifier middleware.TokenVerifier, typing *TypingTracker) *ChatWebSocketHandler {
	return &ChatWebSocketHandler{hub: hub, chatRepo: chatRepo, verifier: verifier, typing: typing}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientFrame is what a client may send up the socket.
type clientFrame struct {
	Type string `json:"type"`
}

// Handle upgrades the connection and registers the client.
func (h *ChatWebSocketHandler) Handle(c *gin.Context) {
	chatID := c.Param("chat_id")
	if chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	ctx, span := otel.Tracer("teamchat/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token, ok := middleware.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		token = c.Query("token")
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	userID, err := h.verifier.VerifyToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if !h.authorized(c, chatID, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for chat"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    deviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(chatID, conn, info)

	observability.IncWSActive("chat")
	publishWSEvent(ctx, "ws_connect", chatID, info, "")
	log.Debug().Str("chat_id", chatID).Str("user_id", userID).Str("conn_id", info.ConnID).Msg("websocket connected")

	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveClient(chatID, conn)
			observability.DecWSActive("chat")
			publishWSEvent(ctx, "ws_disconnect", chatID, info, closeReason)
			conn.Close()
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					publishWSEvent(ctx, "ws_error", chatID, info, closeReason)
				}
				return
			}
			h.handleFrame(chatID, userID, data)
		}
	}()
}

// authorized admits participants, and the owner of a system chat even before
// the chat row exists.
func (h *ChatWebSocketHandler) authorized(c *gin.Context, chatID, userID string) bool {
	if owner, _, ok := models.SystemChatOwner(chatID); ok {
		return owner == userID
	}
	member, err := h.chatRepo.IsParticipant(c.Request.Context(), chatID, userID)
	if err != nil {
		log.Error().Err(err).Str("chat_id", chatID).Msg("websocket membership check")
		return false
	}
	return member
}

func (h *ChatWebSocketHandler) handleFrame(chatID, userID string, data []byte) {
	var frame clientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return
	}
	if frame.Type == models.EventTyping && h.typing != nil {
		h.typing.Touch(chatID, userID)
		h.hub.Broadcast(chatID, models.ChatEvent{Type: models.EventTyping, UserID: userID})
	}
}
