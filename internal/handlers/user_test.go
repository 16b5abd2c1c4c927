package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"teamchat/internal/mocks"
	"teamchat/internal/models"
	"teamchat/internal/repositories"
)

func setupUserRouter() (*gin.Engine, *mocks.UserRepositoryMock) {
	gin.SetMode(gin.TestMode)
	users := new(mocks.UserRepositoryMock)
	h := NewUserHandler(users)
	h.now = func() time.Time { return testNow }

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Next()
	})
	r.GET("/api/users", h.ListUsers)
	r.GET("/api/users/me", h.Me)
	r.POST("/api/users/me/status", h.UpdateStatus)
	r.GET("/api/users/:user_id", h.GetUser)
	return r, users
}

func TestListUsers(t *testing.T) {
	r, users := setupUserRouter()
	users.On("ListUsers", mock.Anything).Return([]models.User{{ID: "u1", Name: "Alice", Role: models.RoleUser}}, nil).Once()

	rec := do(r, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Alice"`)
}

func TestMeAndGetUser(t *testing.T) {
	r, users := setupUserRouter()
	users.On("GetUser", mock.Anything, "u1").Return(models.User{ID: "u1", Name: "Alice"}, nil).Once()
	users.On("GetUser", mock.Anything, "ghost").Return(nil, repositories.ErrUserNotFound).Once()

	rec := do(r, http.MethodGet, "/api/users/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"u1"`)

	rec = do(r, http.MethodGet, "/api/users/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	users.AssertExpectations(t)
}

func TestUpdateStatus(t *testing.T) {
	r, users := setupUserRouter()

	rec := do(r, http.MethodPost, "/api/users/me/status", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	users.On("SetPresence", mock.Anything, "u1", false, testNow).Return(nil).Once()
	rec = do(r, http.MethodPost, "/api/users/me/status", `{"isOnline":false}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	users.AssertExpectations(t)
}
