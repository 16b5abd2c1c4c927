package models

import "time"

// PostStatus is the workflow state of a planned post.
type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostScheduled PostStatus = "scheduled"
	PostApproved  PostStatus = "approved"
)

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	switch s {
	case PostDraft, PostScheduled, PostApproved:
		return true
	}
	return false
}

// ContentPost is an entry of the content-planning calendar.
type ContentPost struct {
	ID          string     `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Platform    string     `db:"platform" json:"platform"`
	ContentType string     `db:"content_type" json:"contentType"`
	PublishDate string     `db:"publish_date" json:"publishDate"`
	PublishTime string     `db:"publish_time" json:"publishTime,omitempty"`
	PostStatus  PostStatus `db:"post_status" json:"postStatus"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
	Comments    []Comment  `db:"-" json:"comments"`
}

// Clone copies comments and their slices.
func (p ContentPost) Clone() ContentPost {
	out := p
	out.Comments = make([]Comment, len(p.Comments))
	for i, c := range p.Comments {
		out.Comments[i] = c.Clone()
	}
	return out
}

// Comment belongs to a post. ReadBy lists every user that acknowledged it.
type Comment struct {
	ID         string     `json:"id"`
	PostID     string     `json:"postId"`
	AuthorID   string     `json:"authorId"`
	AuthorName string     `json:"authorName"`
	Content    string     `json:"content"`
	Mentions   []string   `json:"mentions"`
	ReadBy     []string   `json:"readBy"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// Clone copies the slices of c.
func (c Comment) Clone() Comment {
	out := c
	out.Mentions = append([]string(nil), c.Mentions...)
	out.ReadBy = append([]string(nil), c.ReadBy...)
	return out
}

// IsReadBy checks the acknowledgement list.
func (c Comment) IsReadBy(userID string) bool {
	for _, id := range c.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}
