package blog

import (
	"context"

	"blog/internal/models"

	"github.com/google/uuid"
)

// PostFilter is the AND of its non-empty parts. Search matches title OR
// content, case-insensitively, as a literal substring.
type PostFilter struct {
	Search   string
	Category *uuid.UUID
	Status   models.Status
}

// PostQuery selects a page of posts ordered by creation time, newest first.
type PostQuery struct {
	Filter PostFilter
	Skip   int
	Limit  int
}

// Store is the persistence collaborator. Lookups of absent rows return
// ErrNotFound and unique violations return ErrConflict; any other error is
// treated as opaque.
type Store interface {
	FindPost(ctx context.Context, id uuid.UUID) (*models.Post, error)
	FindPosts(ctx context.Context, q PostQuery) ([]models.Post, error)
	CountPosts(ctx context.Context, f PostFilter) (int, error)
	CreatePost(ctx context.Context, p *models.Post) error
	UpdatePost(ctx context.Context, p *models.Post) error
	UpdatePostViews(ctx context.Context, id uuid.UUID, views int64) error
	DeletePost(ctx context.Context, id uuid.UUID) error

	ListCategories(ctx context.Context) ([]models.Category, error)
	FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	CreateCategory(ctx context.Context, c *models.Category) error
}
