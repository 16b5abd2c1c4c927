package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"teamchat/internal/models"
	"teamchat/internal/repositories"
	"teamchat/internal/telemetry"
)

// ContentHandler serves the content-planning board.
type ContentHandler struct {
	contentRepo repositories.ContentRepository
	userRepo    repositories.UserRepository
	notifier    MentionNotifier
	audit       *telemetry.AuditEmitter
	now         func() time.Time
}

func NewContentHandler(contentRepo repositories.ContentRepository, userRepo repositories.UserRepository, notifier MentionNotifier, audit *telemetry.AuditEmitter) *ContentHandler {
	return &ContentHandler{
		contentRepo: contentRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		audit:       audit,
		now:         time.Now,
	}
}

type postRequest struct {
	Title       string            `json:"title" binding:"required"`
	Platform    string            `json:"platform"`
	ContentType string            `json:"contentType"`
	PublishDate string            `json:"publishDate"`
	PublishTime string            `json:"publishTime"`
	PostStatus  models.PostStatus `json:"postStatus"`
}

func (r postRequest) post() (models.ContentPost, bool) {
	if r.PostStatus == "" {
		r.PostStatus = models.PostDraft
	}
	if !r.PostStatus.Valid() {
		return models.ContentPost{}, false
	}
	if r.PublishDate != "" {
		if _, err := time.Parse(time.DateOnly, r.PublishDate); err != nil {
			return models.ContentPost{}, false
		}
	}
	return models.ContentPost{
		Title:       r.Title,
		Platform:    r.Platform,
		ContentType: r.ContentType,
		PublishDate: r.PublishDate,
		PublishTime: r.PublishTime,
		PostStatus:  r.PostStatus,
	}, true
}

// ListPosts handles GET /api/content-plan.
func (h *ContentHandler) ListPosts(c *gin.Context) {
	posts, err := h.contentRepo.ListPosts(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to load posts")
		return
	}
	if posts == nil {
		posts = []models.ContentPost{}
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// CreatePost handles POST /api/content-plan.
func (h *ContentHandler) CreatePost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	post, ok := req.post()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post status or publish date"})
		return
	}
	post.ID = uuid.NewString()
	post.CreatedAt = h.now().UTC()
	post.UpdatedAt = post.CreatedAt

	created, err := h.contentRepo.CreatePost(c.Request.Context(), post)
	if err != nil {
		respondError(c, err, "could not create post")
		return
	}
	emitAudit(h.audit, c, "INFO", "Content post created")
	c.JSON(http.StatusCreated, created)
}

// UpdatePost handles PUT /api/content-plan/:post_id.
func (h *ContentHandler) UpdatePost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	post, ok := req.post()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post status or publish date"})
		return
	}
	post.ID = c.Param("post_id")
	post.UpdatedAt = h.now().UTC()

	updated, err := h.contentRepo.UpdatePost(c.Request.Context(), post)
	if err != nil {
		respondError(c, err, "could not update post")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeletePost handles DELETE /api/content-plan/:post_id.
func (h *ContentHandler) DeletePost(c *gin.Context) {
	if err := h.contentRepo.DeletePost(c.Request.Context(), c.Param("post_id")); err != nil {
		respondError(c, err, "could not delete post")
		return
	}
	emitAudit(h.audit, c, "INFO", "Content post deleted")
	c.Status(http.StatusNoContent)
}

// AddComment handles POST /api/content-plan/comments.
func (h *ContentHandler) AddComment(c *gin.Context) {
	var req struct {
		PostID   string   `json:"postId" binding:"required"`
		Content  string   `json:"content"`
		Mentions []string `json:"mentions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if models.IsBlank(req.Content) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "comment is empty"})
		return
	}

	post, err := h.contentRepo.GetPost(c.Request.Context(), req.PostID)
	if err != nil {
		respondError(c, err, "could not add comment")
		return
	}

	userID := c.GetString("userID")
	author := userID
	if u, err := h.userRepo.GetUser(c.Request.Context(), userID); err == nil {
		author = u.DisplayName()
	}

	comment, err := h.contentRepo.AddComment(c.Request.Context(), models.Comment{
		ID:         uuid.NewString(),
		PostID:     post.ID,
		AuthorID:   userID,
		AuthorName: author,
		Content:    req.Content,
		Mentions:   req.Mentions,
		CreatedAt:  h.now().UTC(),
	})
	if err != nil {
		respondError(c, err, "could not add comment")
		return
	}
	if h.notifier != nil && len(comment.Mentions) > 0 {
		h.notifier.CommentMentions(c.Request.Context(), post, comment)
	}
	c.JSON(http.StatusCreated, comment)
}

// EditComment handles PATCH /api/content-plan/comments/:comment_id.
func (h *ContentHandler) EditComment(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if models.IsBlank(req.Content) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "comment is empty"})
		return
	}

	comment, ok := h.ownComment(c)
	if !ok {
		return
	}
	updated, err := h.contentRepo.UpdateComment(c.Request.Context(), comment.ID, req.Content, h.now().UTC())
	if err != nil {
		respondError(c, err, "could not edit comment")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteComment handles DELETE /api/content-plan/comments/:comment_id.
func (h *ContentHandler) DeleteComment(c *gin.Context) {
	comment, ok := h.ownComment(c)
	if !ok {
		return
	}
	if err := h.contentRepo.DeleteComment(c.Request.Context(), comment.ID); err != nil {
		respondError(c, err, "could not delete comment")
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkCommentsRead handles POST /api/content-plan/:post_id/read.
func (h *ContentHandler) MarkCommentsRead(c *gin.Context) {
	if err := h.contentRepo.MarkCommentsRead(c.Request.Context(), c.Param("post_id"), c.GetString("userID")); err != nil {
		respondError(c, err, "could not mark comments read")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ContentHandler) ownComment(c *gin.Context) (models.Comment, bool) {
	comment, err := h.contentRepo.GetComment(c.Request.Context(), c.Param("comment_id"))
	if err != nil {
		respondError(c, err, "could not load comment")
		return models.Comment{}, false
	}
	if comment.AuthorID != c.GetString("userID") {
		emitAudit(h.audit, c, "ERROR", "not allowed")
		respondError(c, repositories.ErrNotAuthor, "could not load comment")
		return models.Comment{}, false
	}
	return comment, true
}
