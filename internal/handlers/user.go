package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"teamchat/internal/models"
	"teamchat/internal/repositories"
)

// UserHandler exposes the read-only user directory and presence pings.
type UserHandler struct {
	userRepo repositories.UserRepository
	now      func() time.Time
}

func NewUserHandler(userRepo repositories.UserRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo, now: time.Now}
}

// ListUsers handles GET /api/users.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.userRepo.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to load users")
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetUser handles GET /api/users/:user_id.
func (h *UserHandler) GetUser(c *gin.Context) {
	u, err := h.userRepo.GetUser(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		respondError(c, err, "failed to load user")
		return
	}
	c.JSON(http.StatusOK, u)
}

// Me handles GET /api/users/me.
func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.userRepo.GetUser(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		respondError(c, err, "failed to load user")
		return
	}
	c.JSON(http.StatusOK, u)
}

// UpdateStatus handles POST /api/users/me/status.
func (h *UserHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		IsOnline *bool `json:"isOnline" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.userRepo.SetPresence(c.Request.Context(), c.GetString("userID"), *req.IsOnline, h.now().UTC()); err != nil {
		respondError(c, err, "failed to update status")
		return
	}
	c.Status(http.StatusNoContent)
}
