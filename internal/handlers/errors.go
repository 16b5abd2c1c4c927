package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"teamchat/internal/repositories"
)

var (
	ErrForbidden    = errors.New("forbidden")
	ErrNotMember    = errors.New("not a chat member")
	ErrReadOnlyChat = errors.New("notifications chat is read-only")
	ErrSystemChat   = errors.New("system chats cannot be deleted")
	ErrWrongChat    = errors.New("message does not belong to chat")
	ErrMessageGone  = errors.New("message deleted")
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repositories.ErrChatNotFound),
		errors.Is(err, repositories.ErrMessageNotFound),
		errors.Is(err, repositories.ErrPostNotFound),
		errors.Is(err, repositories.ErrCommentNotFound),
		errors.Is(err, repositories.ErrUserNotFound),
		errors.Is(err, ErrWrongChat):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden),
		errors.Is(err, ErrNotMember),
		errors.Is(err, ErrReadOnlyChat),
		errors.Is(err, repositories.ErrNotAuthor):
		return http.StatusForbidden
	case errors.Is(err, ErrSystemChat):
		return http.StatusBadRequest
	case errors.Is(err, ErrMessageGone):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": ...}. Unknown errors are logged and reported
// with fallback so internals do not leak.
func respondError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("route", c.FullPath()).Msg(fallback)
		msg = fallback
	}
	c.JSON(status, gin.H{"error": msg})
}
