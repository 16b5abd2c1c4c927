// Package planning is the client side of the content-planning board. Comment
// mutations are applied locally first and undone when the server rejects
// them. An undo touches only the comments it changed, so a Load that lands
// while a request is in flight is kept.
package planning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"teamchat/internal/models"
	"teamchat/internal/readstate"
)

// Source is the server side of the board. *apiclient.Client implements it.
type Source interface {
	ListPosts(ctx context.Context) ([]models.ContentPost, error)
	AddComment(ctx context.Context, postID, content string, mentions []string) (models.Comment, error)
	EditComment(ctx context.Context, commentID, content string) (models.Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
	MarkCommentsRead(ctx context.Context, postID string) error
}

var (
	ErrUnknownPost    = errors.New("unknown post")
	ErrUnknownComment = errors.New("unknown comment")
	ErrEmptyComment   = errors.New("comment is empty")
)

// Board holds the posts visible to one user.
type Board struct {
	userID   string
	userName string
	src      Source
	now      func() time.Time

	mu    sync.Mutex
	posts []models.ContentPost
}

func NewBoard(userID, userName string, src Source) *Board {
	return &Board{userID: userID, userName: userName, src: src, now: time.Now}
}

// Load replaces the board with the server's posts.
func (b *Board) Load(ctx context.Context) ([]models.ContentPost, error) {
	posts, err := b.src.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	b.mu.Lock()
	b.posts = clonePosts(posts)
	b.mu.Unlock()
	return clonePosts(posts), nil
}

// Posts returns the current board.
func (b *Board) Posts() []models.ContentPost {
	b.mu.Lock()
	defer b.mu.Unlock()
	return clonePosts(b.posts)
}

// Post looks up one post.
func (b *Board) Post(postID string) (models.ContentPost, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.posts {
		if p.ID == postID {
			return p.Clone(), true
		}
	}
	return models.ContentPost{}, false
}

// mutate applies fn to a copy of the board and swaps it in.
func (b *Board) mutate(fn func(posts []models.ContentPost) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := clonePosts(b.posts)
	if err := fn(next); err != nil {
		return err
	}
	b.posts = next
	return nil
}

// AddComment shows the comment right away and replaces it with the server's
// copy once stored.
func (b *Board) AddComment(ctx context.Context, postID, content string, mentions []string) (models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return models.Comment{}, ErrEmptyComment
	}
	tmpID := "tmp_" + uuid.NewString()
	provisional := models.Comment{
		ID:         tmpID,
		PostID:     postID,
		AuthorID:   b.userID,
		AuthorName: b.userName,
		Content:    content,
		Mentions:   append([]string(nil), mentions...),
		ReadBy:     []string{b.userID},
		CreatedAt:  b.now(),
	}

	err := b.mutate(func(posts []models.ContentPost) error {
		p := findPost(posts, postID)
		if p == nil {
			return fmt.Errorf("comment on %s: %w", postID, ErrUnknownPost)
		}
		p.Comments = append(p.Comments, provisional)
		return nil
	})
	if err != nil {
		return models.Comment{}, err
	}

	saved, err := b.src.AddComment(ctx, postID, content, mentions)
	if err != nil {
		_ = b.mutate(func(posts []models.ContentPost) error {
			if p, i := locateComment(posts, tmpID); p != nil {
				p.Comments = append(p.Comments[:i:i], p.Comments[i+1:]...)
			}
			return nil
		})
		return models.Comment{}, fmt.Errorf("add comment: %w", err)
	}

	_ = b.mutate(func(posts []models.ContentPost) error {
		if p := findPost(posts, postID); p != nil {
			if i := findComment(p.Comments, tmpID); i >= 0 {
				p.Comments[i] = saved.Clone()
			}
		}
		return nil
	})
	return saved, nil
}

// EditComment changes a comment's content. Unchanged content is a no-op.
func (b *Board) EditComment(ctx context.Context, commentID, content string) (models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return models.Comment{}, ErrEmptyComment
	}
	var unchanged bool
	var current models.Comment
	err := b.mutate(func(posts []models.ContentPost) error {
		p, i := locateComment(posts, commentID)
		if p == nil {
			return fmt.Errorf("edit %s: %w", commentID, ErrUnknownComment)
		}
		c := &p.Comments[i]
		current = c.Clone()
		if c.Content == content {
			unchanged = true
			return nil
		}
		at := b.now()
		c.Content = content
		c.UpdatedAt = &at
		return nil
	})
	if err != nil {
		return models.Comment{}, err
	}
	if unchanged {
		return current, nil
	}

	saved, err := b.src.EditComment(ctx, commentID, content)
	if err != nil {
		_ = b.mutate(func(posts []models.ContentPost) error {
			// a reload may already hold the server's copy
			if p, i := locateComment(posts, commentID); p != nil && p.Comments[i].Content == content {
				p.Comments[i] = current
			}
			return nil
		})
		return models.Comment{}, fmt.Errorf("edit comment: %w", err)
	}
	_ = b.mutate(func(posts []models.ContentPost) error {
		if p, i := locateComment(posts, commentID); p != nil {
			p.Comments[i] = saved.Clone()
		}
		return nil
	})
	return saved, nil
}

// DeleteComment hides the comment at once and brings it back if the server
// refuses.
func (b *Board) DeleteComment(ctx context.Context, commentID string) error {
	var removed models.Comment
	var postID string
	var at int
	err := b.mutate(func(posts []models.ContentPost) error {
		p, i := locateComment(posts, commentID)
		if p == nil {
			return fmt.Errorf("delete %s: %w", commentID, ErrUnknownComment)
		}
		removed, postID, at = p.Comments[i].Clone(), p.ID, i
		p.Comments = append(p.Comments[:i:i], p.Comments[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	if err := b.src.DeleteComment(ctx, commentID); err != nil {
		_ = b.mutate(func(posts []models.ContentPost) error {
			p := findPost(posts, postID)
			if p == nil || findComment(p.Comments, commentID) >= 0 {
				return nil
			}
			i := min(at, len(p.Comments))
			p.Comments = append(p.Comments[:i], append([]models.Comment{removed}, p.Comments[i:]...)...)
			return nil
		})
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// MarkRead acknowledges every comment of a post.
func (b *Board) MarkRead(ctx context.Context, postID string) error {
	marked := make(map[string]bool)
	err := b.mutate(func(posts []models.ContentPost) error {
		p := findPost(posts, postID)
		if p == nil {
			return fmt.Errorf("mark read %s: %w", postID, ErrUnknownPost)
		}
		for i := range p.Comments {
			if !p.Comments[i].IsReadBy(b.userID) {
				p.Comments[i].ReadBy = append(p.Comments[i].ReadBy, b.userID)
				marked[p.Comments[i].ID] = true
			}
		}
		return nil
	})
	if err != nil || len(marked) == 0 {
		return err
	}
	if err := b.src.MarkCommentsRead(ctx, postID); err != nil {
		_ = b.mutate(func(posts []models.ContentPost) error {
			p := findPost(posts, postID)
			if p == nil {
				return nil
			}
			for i := range p.Comments {
				if marked[p.Comments[i].ID] {
					p.Comments[i].ReadBy = without(p.Comments[i].ReadBy, b.userID)
				}
			}
			return nil
		})
		log.Warn().Err(err).Str("post_id", postID).Msg("mark comments read failed")
		return fmt.Errorf("mark comments read: %w", err)
	}
	return nil
}

// UnreadComments counts comments on a post by others that the user has not
// acknowledged.
func (b *Board) UnreadComments(postID string) int {
	p, ok := b.Post(postID)
	if !ok {
		return 0
	}
	return readstate.UnreadComments(p.Comments, b.userID)
}

// UnreadTotal sums UnreadComments over the board.
func (b *Board) UnreadTotal() int {
	n := 0
	for _, p := range b.Posts() {
		n += readstate.UnreadComments(p.Comments, b.userID)
	}
	return n
}

func findPost(posts []models.ContentPost, postID string) *models.ContentPost {
	for i := range posts {
		if posts[i].ID == postID {
			return &posts[i]
		}
	}
	return nil
}

func findComment(comments []models.Comment, commentID string) int {
	for i, c := range comments {
		if c.ID == commentID {
			return i
		}
	}
	return -1
}

func locateComment(posts []models.ContentPost, commentID string) (*models.ContentPost, int) {
	for i := range posts {
		if j := findComment(posts[i].Comments, commentID); j >= 0 {
			return &posts[i], j
		}
	}
	return nil, -1
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func clonePosts(in []models.ContentPost) []models.ContentPost {
	out := make([]models.ContentPost, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}
