package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Valid reports whether s is one of the known post statuses.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CategoryRef is the part of a category embedded in a post.
type CategoryRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// AuthorRef is the part of a user embedded in a post.
type AuthorRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type Post struct {
	ID            uuid.UUID   `json:"id"`
	Title         string      `json:"title"`
	Content       string      `json:"content"`
	Excerpt       string      `json:"excerpt"`
	Category      CategoryRef `json:"category"`
	Author        AuthorRef   `json:"author"`
	Status        Status      `json:"status"`
	FeaturedImage string      `json:"featuredImage"`
	Views         int64       `json:"views"`
	CreatedAt     time.Time   `json:"createdAt"`
}

type Session struct {
	ID        string
	UserID    uuid.UUID
	ExpiresAt time.Time
}
