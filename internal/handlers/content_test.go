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

func setupContentRouter() (*gin.Engine, *mocks.ContentRepositoryMock, *mocks.UserRepositoryMock, *mocks.NotifierMock) {
	gin.SetMode(gin.TestMode)
	content := new(mocks.ContentRepositoryMock)
	users := new(mocks.UserRepositoryMock)
	notifier := new(mocks.NotifierMock)
	h := NewContentHandler(content, users, notifier, nil)
	h.now = func() time.Time { return testNow }

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Next()
	})
	r.GET("/api/content-plan", h.ListPosts)
	r.POST("/api/content-plan", h.CreatePost)
	r.POST("/api/content-plan/comments", h.AddComment)
	r.PATCH("/api/content-plan/comments/:comment_id", h.EditComment)
	r.DELETE("/api/content-plan/comments/:comment_id", h.DeleteComment)
	r.PUT("/api/content-plan/:post_id", h.UpdatePost)
	r.DELETE("/api/content-plan/:post_id", h.DeletePost)
	r.POST("/api/content-plan/:post_id/read", h.MarkCommentsRead)
	return r, content, users, notifier
}

func TestListPostsEmpty(t *testing.T) {
	r, content, _, _ := setupContentRouter()
	content.On("ListPosts", mock.Anything).Return(nil, nil).Once()

	rec := do(r, http.MethodGet, "/api/content-plan", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"posts":[]}`, rec.Body.String())
}

func TestCreatePostDefaultsToDraft(t *testing.T) {
	r, content, _, _ := setupContentRouter()
	content.On("CreatePost", mock.Anything, mock.MatchedBy(func(p models.ContentPost) bool {
		return p.ID != "" && p.Title == "Launch teaser" && p.PostStatus == models.PostDraft && p.CreatedAt.Equal(testNow)
	})).Return(models.ContentPost{ID: "p1", Title: "Launch teaser", PostStatus: models.PostDraft}, nil).Once()

	rec := do(r, http.MethodPost, "/api/content-plan", `{"title":"Launch teaser","publishDate":"2024-05-10"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"p1"`)
	content.AssertExpectations(t)
}

func TestCreatePostValidation(t *testing.T) {
	r, content, _, _ := setupContentRouter()

	rec := do(r, http.MethodPost, "/api/content-plan", `{"platform":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/api/content-plan", `{"title":"t","postStatus":"published"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/api/content-plan", `{"title":"t","publishDate":"10/05/2024"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	content.AssertNotCalled(t, "CreatePost", mock.Anything, mock.Anything)
}

func TestUpdatePostNotFound(t *testing.T) {
	r, content, _, _ := setupContentRouter()
	content.On("UpdatePost", mock.Anything, mock.MatchedBy(func(p models.ContentPost) bool {
		return p.ID == "missing" && p.PostStatus == models.PostApproved
	})).Return(nil, repositories.ErrPostNotFound).Once()

	rec := do(r, http.MethodPut, "/api/content-plan/missing", `{"title":"t","postStatus":"approved"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeletePost(t *testing.T) {
	r, content, _, _ := setupContentRouter()
	content.On("DeletePost", mock.Anything, "p1").Return(nil).Once()

	rec := do(r, http.MethodDelete, "/api/content-plan/p1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	content.AssertExpectations(t)
}

func TestAddCommentNotifiesMentions(t *testing.T) {
	r, content, users, notifier := setupContentRouter()
	post := models.ContentPost{ID: "p1", Title: "Launch teaser"}
	stored := models.Comment{ID: "k1", PostID: "p1", AuthorID: "u1", AuthorName: "Alice", Content: "@bob check", Mentions: []string{"u2"}, ReadBy: []string{"u1"}}

	content.On("GetPost", mock.Anything, "p1").Return(post, nil).Once()
	users.On("GetUser", mock.Anything, "u1").Return(models.User{ID: "u1", Name: "Alice"}, nil).Once()
	content.On("AddComment", mock.Anything, mock.MatchedBy(func(c models.Comment) bool {
		return c.PostID == "p1" && c.AuthorID == "u1" && c.AuthorName == "Alice" && c.Content == "@bob check"
	})).Return(stored, nil).Once()
	notifier.On("CommentMentions", mock.Anything, post, stored).Once()

	rec := do(r, http.MethodPost, "/api/content-plan/comments", `{"postId":"p1","content":"@bob check","mentions":["u2"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	content.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestAddCommentValidation(t *testing.T) {
	r, content, _, _ := setupContentRouter()

	rec := do(r, http.MethodPost, "/api/content-plan/comments", `{"postId":"p1","content":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	content.On("GetPost", mock.Anything, "gone").Return(nil, repositories.ErrPostNotFound).Once()
	rec = do(r, http.MethodPost, "/api/content-plan/comments", `{"postId":"gone","content":"hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEditCommentAuthorOnly(t *testing.T) {
	r, content, _, _ := setupContentRouter()
	content.On("GetComment", mock.Anything, "k2").Return(models.Comment{ID: "k2", AuthorID: "u2"}, nil).Once()

	rec := do(r, http.MethodPatch, "/api/content-plan/comments/k2", `{"content":"rewrite"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	content.AssertNotCalled(t, "UpdateComment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	content.On("GetComment", mock.Anything, "k1").Return(models.Comment{ID: "k1", AuthorID: "u1"}, nil).Once()
	content.On("UpdateComment", mock.Anything, "k1", "rewrite", testNow).Return(models.Comment{ID: "k1", Content: "rewrite"}, nil).Once()
	rec = do(r, http.MethodPatch, "/api/content-plan/comments/k1", `{"content":"rewrite"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	content.AssertExpectations(t)
}

func TestDeleteComment(t *testing.T) {
	r, content, _, _ := setupContentRouter()
	content.On("GetComment", mock.Anything, "k1").Return(models.Comment{ID: "k1", AuthorID: "u1"}, nil).Once()
	content.On("DeleteComment", mock.Anything, "k1").Return(nil).Once()

	rec := do(r, http.MethodDelete, "/api/content-plan/comments/k1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	content.AssertExpectations(t)
}

func TestMarkCommentsRead(t *testing.T) {
	r, content, _, _ := setupContentRouter()
	content.On("MarkCommentsRead", mock.Anything, "p1", "u1").Return(nil).Once()
	content.On("MarkCommentsRead", mock.Anything, "nope", "u1").Return(repositories.ErrPostNotFound).Once()

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodPost, "/api/content-plan/p1/read", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/api/content-plan/nope/read", "").Code)
	content.AssertExpectations(t)
}
