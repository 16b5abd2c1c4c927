package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"teamchat/internal/models"
)

// ListPosts fetches the content plan with comments.
func (c *Client) ListPosts(ctx context.Context) ([]models.ContentPost, error) {
	var resp struct {
		Posts []models.ContentPost `json:"posts"`
	}
	err := c.do(ctx, http.MethodGet, "/api/content-plan", nil, &resp)
	return resp.Posts, err
}

// CreatePost adds a post to the plan.
func (c *Client) CreatePost(ctx context.Context, post models.ContentPost) (models.ContentPost, error) {
	var out models.ContentPost
	err := c.do(ctx, http.MethodPost, "/api/content-plan", post, &out)
	return out, err
}

// UpdatePost replaces the editable fields of a post.
func (c *Client) UpdatePost(ctx context.Context, post models.ContentPost) (models.ContentPost, error) {
	var out models.ContentPost
	err := c.do(ctx, http.MethodPut, "/api/content-plan/"+url.PathEscape(post.ID), post, &out)
	return out, err
}

// DeletePost removes a post and its comments.
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	return c.do(ctx, http.MethodDelete, "/api/content-plan/"+url.PathEscape(postID), nil, nil)
}

// AddComment comments on a post.
func (c *Client) AddComment(ctx context.Context, postID, content string, mentions []string) (models.Comment, error) {
	req := struct {
		PostID   string   `json:"postId"`
		Content  string   `json:"content"`
		Mentions []string `json:"mentions,omitempty"`
	}{postID, content, mentions}
	var out models.Comment
	err := c.do(ctx, http.MethodPost, "/api/content-plan/comments", req, &out)
	return out, err
}

// EditComment replaces a comment's content.
func (c *Client) EditComment(ctx context.Context, commentID, content string) (models.Comment, error) {
	req := struct {
		Content string `json:"content"`
	}{content}
	var out models.Comment
	err := c.do(ctx, http.MethodPatch, "/api/content-plan/comments/"+url.PathEscape(commentID), req, &out)
	return out, err
}

// DeleteComment removes a comment.
func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	return c.do(ctx, http.MethodDelete, "/api/content-plan/comments/"+url.PathEscape(commentID), nil, nil)
}

// MarkCommentsRead acknowledges every comment of a post for the caller.
func (c *Client) MarkCommentsRead(ctx context.Context, postID string) error {
	return c.do(ctx, http.MethodPost, "/api/content-plan/"+url.PathEscape(postID)+"/read", nil, nil)
}
