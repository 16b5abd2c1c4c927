package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"teamchat/internal/models"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
)

// ContentRepository persists the content plan.
type ContentRepository interface {
	ListPosts(ctx context.Context) ([]models.ContentPost, error)
	GetPost(ctx context.Context, postID string) (models.ContentPost, error)
	CreatePost(ctx context.Context, post models.ContentPost) (models.ContentPost, error)
	UpdatePost(ctx context.Context, post models.ContentPost) (models.ContentPost, error)
	DeletePost(ctx context.Context, postID string) error

	AddComment(ctx context.Context, comment models.Comment) (models.Comment, error)
	GetComment(ctx context.Context, commentID string) (models.Comment, error)
	UpdateComment(ctx context.Context, commentID, content string, at time.Time) (models.Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
	MarkCommentsRead(ctx context.Context, postID, userID string) error
}

// ContentRepo is a sqlx implementation of ContentRepository.
type ContentRepo struct {
	db *sqlx.DB
}

// NewContentRepo constructs a ContentRepo.
func NewContentRepo(db *sqlx.DB) *ContentRepo {
	return &ContentRepo{db: db}
}

const (
	postColumns    = `id, title, platform, content_type, publish_date, publish_time, post_status, created_at, updated_at`
	commentColumns = `id, post_id, author_id, author_name, content, mentions, read_by, created_at, updated_at`
)

type commentRow struct {
	ID         string         `db:"id"`
	PostID     string         `db:"post_id"`
	AuthorID   string         `db:"author_id"`
	AuthorName string         `db:"author_name"`
	Content    string         `db:"content"`
	Mentions   pq.StringArray `db:"mentions"`
	ReadBy     pq.StringArray `db:"read_by"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  *time.Time     `db:"updated_at"`
}

func (r commentRow) model() models.Comment {
	c := models.Comment{
		ID:         r.ID,
		PostID:     r.PostID,
		AuthorID:   r.AuthorID,
		AuthorName: r.AuthorName,
		Content:    r.Content,
		Mentions:   []string(r.Mentions),
		ReadBy:     []string(r.ReadBy),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if c.Mentions == nil {
		c.Mentions = []string{}
	}
	if c.ReadBy == nil {
		c.ReadBy = []string{}
	}
	return c
}

// ListPosts returns posts ordered by publish date with their comments.
func (r *ContentRepo) ListPosts(ctx context.Context) ([]models.ContentPost, error) {
	posts := []models.ContentPost{}
	if err := r.db.SelectContext(ctx, &posts, `SELECT `+postColumns+` FROM content_posts
        ORDER BY publish_date ASC, publish_time ASC, created_at ASC`); err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return posts, nil
	}

	var rows []commentRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+commentColumns+` FROM post_comments ORDER BY created_at ASC, seq ASC`); err != nil {
		return nil, err
	}
	byPost := make(map[string][]models.Comment, len(posts))
	for _, row := range rows {
		byPost[row.PostID] = append(byPost[row.PostID], row.model())
	}
	for i := range posts {
		posts[i].Comments = byPost[posts[i].ID]
		if posts[i].Comments == nil {
			posts[i].Comments = []models.Comment{}
		}
	}
	return posts, nil
}

func (r *ContentRepo) GetPost(ctx context.Context, postID string) (models.ContentPost, error) {
	var post models.ContentPost
	err := r.db.GetContext(ctx, &post, `SELECT `+postColumns+` FROM content_posts WHERE id=$1`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ContentPost{}, ErrPostNotFound
	}
	if err != nil {
		return models.ContentPost{}, err
	}

	var rows []commentRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+commentColumns+` FROM post_comments WHERE post_id=$1
        ORDER BY created_at ASC, seq ASC`, postID); err != nil {
		return models.ContentPost{}, err
	}
	post.Comments = make([]models.Comment, len(rows))
	for i, row := range rows {
		post.Comments[i] = row.model()
	}
	return post, nil
}

func (r *ContentRepo) CreatePost(ctx context.Context, post models.ContentPost) (models.ContentPost, error) {
	if _, err := r.db.ExecContext(ctx, `INSERT INTO content_posts (id, title, platform, content_type, publish_date, publish_time, post_status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		post.ID, post.Title, post.Platform, post.ContentType, post.PublishDate, post.PublishTime, post.PostStatus, post.CreatedAt); err != nil {
		return models.ContentPost{}, err
	}
	return r.GetPost(ctx, post.ID)
}

func (r *ContentRepo) UpdatePost(ctx context.Context, post models.ContentPost) (models.ContentPost, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE content_posts SET title=$2, platform=$3, content_type=$4, publish_date=$5,
        publish_time=$6, post_status=$7, updated_at=$8 WHERE id=$1`,
		post.ID, post.Title, post.Platform, post.ContentType, post.PublishDate, post.PublishTime, post.PostStatus, post.UpdatedAt)
	if err != nil {
		return models.ContentPost{}, err
	}
	if count, err := res.RowsAffected(); err != nil {
		return models.ContentPost{}, err
	} else if count == 0 {
		return models.ContentPost{}, ErrPostNotFound
	}
	return r.GetPost(ctx, post.ID)
}

func (r *ContentRepo) DeletePost(ctx context.Context, postID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM content_posts WHERE id=$1`, postID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrPostNotFound
	}
	return nil
}

// AddComment stores a comment; the author has read it by construction.
func (r *ContentRepo) AddComment(ctx context.Context, comment models.Comment) (models.Comment, error) {
	mentions := comment.Mentions
	if mentions == nil {
		mentions = []string{}
	}
	var row commentRow
	err := r.db.GetContext(ctx, &row, `INSERT INTO post_comments (id, post_id, author_id, author_name, content, mentions, read_by, created_at)
        SELECT $1, p.id, $3, $4, $5, $6, ARRAY[$3]::TEXT[], $7 FROM content_posts p WHERE p.id=$2
        RETURNING `+commentColumns,
		comment.ID, comment.PostID, comment.AuthorID, comment.AuthorName, comment.Content, pq.StringArray(mentions), comment.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Comment{}, ErrPostNotFound
	}
	if err != nil {
		return models.Comment{}, err
	}
	return row.model(), nil
}

func (r *ContentRepo) GetComment(ctx context.Context, commentID string) (models.Comment, error) {
	var row commentRow
	err := r.db.GetContext(ctx, &row, `SELECT `+commentColumns+` FROM post_comments WHERE id=$1`, commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Comment{}, ErrCommentNotFound
	}
	if err != nil {
		return models.Comment{}, err
	}
	return row.model(), nil
}

func (r *ContentRepo) UpdateComment(ctx context.Context, commentID, content string, at time.Time) (models.Comment, error) {
	var row commentRow
	err := r.db.GetContext(ctx, &row, `UPDATE post_comments SET content=$2, updated_at=$3 WHERE id=$1
        RETURNING `+commentColumns, commentID, content, at)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Comment{}, ErrCommentNotFound
	}
	if err != nil {
		return models.Comment{}, err
	}
	return row.model(), nil
}

func (r *ContentRepo) DeleteComment(ctx context.Context, commentID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM post_comments WHERE id=$1`, commentID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrCommentNotFound
	}
	return nil
}

// MarkCommentsRead adds userID to read_by of every comment of the post.
func (r *ContentRepo) MarkCommentsRead(ctx context.Context, postID, userID string) error {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM content_posts WHERE id=$1)`, postID); err != nil {
		return err
	}
	if !exists {
		return ErrPostNotFound
	}
	_, err := r.db.ExecContext(ctx, `UPDATE post_comments SET read_by = array_append(read_by, $2)
        WHERE post_id=$1 AND NOT ($2 = ANY(read_by))`, postID, userID)
	return err
}
