package models

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is owned by the identity flow; this service only reads it and keeps
// presence fields current.
type User struct {
	ID       string     `db:"id" json:"id"`
	Name     string     `db:"name" json:"name"`
	Username string     `db:"username" json:"username,omitempty"`
	Email    string     `db:"email" json:"email,omitempty"`
	Role     string     `db:"role" json:"role"`
	IsOnline bool       `db:"is_online" json:"isOnline"`
	LastSeen *time.Time `db:"last_seen" json:"lastSeen,omitempty"`
	Avatar   string     `db:"avatar" json:"avatar,omitempty"`
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.Username != "" {
		return u.Username
	}
	return u.ID
}
