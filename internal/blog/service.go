// Package blog holds the access rules and query shaping for posts and
// categories. It never authenticates anyone: callers pass the already
// resolved Actor into every mutating call.
package blog

import (
	"context"
	"log"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"blog/internal/models"

	"github.com/google/uuid"
)

const (
	DefaultPage      = 1
	DefaultLimit     = 10
	DefaultMaxLimit  = 100
	MaxExcerptLength = 200
)

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

// CanModify reports whether the actor may update or delete a post written by author.
func (a Actor) CanModify(author uuid.UUID) bool {
	return a.Role == models.RoleAdmin || a.ID == author
}

type Service struct {
	store    Store
	images   ImageRemover
	now      func() time.Time
	maxLimit int
}

// ImageRemover deletes a stored featured image by its public path.
type ImageRemover interface {
	Remove(path string) error
}

type Option func(*Service)

// WithClock replaces time.Now for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithImages lets the service delete featured images that a replace or a
// delete leaves unreferenced.
func WithImages(r ImageRemover) Option {
	return func(s *Service) { s.images = r }
}

// WithMaxPageSize caps the page size a caller may request.
func WithMaxPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now, maxLimit: DefaultMaxLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListParams are the raw list inputs as they arrive from a query string.
type ListParams struct {
	Search   string
	Category string
	Status   string
	Page     string
	Limit    string
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type PostPage struct {
	Posts      []models.Post
	Pagination Pagination
}

// ListPosts returns one page of posts matching the filters.
func (s *Service) ListPosts(ctx context.Context, p ListParams) (*PostPage, error) {
	page := positiveOr(p.Page, DefaultPage)
	limit := positiveOr(p.Limit, DefaultLimit)
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	out := &PostPage{
		Posts:      []models.Post{},
		Pagination: Pagination{Page: page, Limit: limit},
	}

	filter := PostFilter{
		Search: strings.TrimSpace(p.Search),
		Status: models.Status(strings.TrimSpace(p.Status)),
	}
	if c := strings.TrimSpace(p.Category); c != "" {
		id, err := uuid.Parse(c)
		if err != nil {
			// not an id, so no post can reference it
			return out, nil
		}
		filter.Category = &id
	}

	total, err := s.store.CountPosts(ctx, filter)
	if err != nil {
		return nil, storeErr("count posts", err)
	}
	out.Pagination.Total = total
	out.Pagination.TotalPages = (total + limit - 1) / limit

	// past the last page; also keeps (page-1)*limit from overflowing
	if page > out.Pagination.TotalPages {
		return out, nil
	}
	posts, err := s.store.FindPosts(ctx, PostQuery{Filter: filter, Skip: (page - 1) * limit, Limit: limit})
	if err != nil {
		return nil, storeErr("find posts", err)
	}
	if posts != nil {
		out.Posts = posts
	}
	return out, nil
}

// GetPost fetches a post and records one view on it. The increment is a
// plain read-modify-write: concurrent readers may lose views.
func (s *Service) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	post, err := s.store.FindPost(ctx, id)
	if err != nil {
		return nil, storeErr("find post", err)
	}
	post.Views++
	if err := s.store.UpdatePostViews(ctx, post.ID, post.Views); err != nil {
		return nil, storeErr("record view", err)
	}
	return post, nil
}

// PostInput is a create or update payload. Nil fields were not supplied.
type PostInput struct {
	Title    *string
	Content  *string
	Excerpt  *string
	Category *string
	Status   *string
}

// CreatePost stores a new post written by actor. imagePath is the already
// saved upload, or "".
func (s *Service) CreatePost(ctx context.Context, actor Actor, in PostInput, imagePath string) (*models.Post, error) {
	post := &models.Post{
		ID:            uuid.New(),
		Author:        models.AuthorRef{ID: actor.ID},
		Status:        models.StatusDraft,
		FeaturedImage: imagePath,
		CreatedAt:     s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.apply(ctx, post, in); err != nil {
		return nil, err
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, storeErr("create post", err)
	}
	created, err := s.store.FindPost(ctx, post.ID)
	if err != nil {
		return nil, storeErr("find post", err)
	}
	return created, nil
}

// UpdatePost merges in onto an existing post. Only the author or an admin
// may do so. The featured image changes only when imagePath is non-empty.
func (s *Service) UpdatePost(ctx context.Context, actor Actor, id uuid.UUID, in PostInput, imagePath string) (*models.Post, error) {
	post, err := s.store.FindPost(ctx, id)
	if err != nil {
		return nil, storeErr("find post", err)
	}
	if !actor.CanModify(post.Author.ID) {
		return nil, ErrForbidden
	}
	if err := s.apply(ctx, post, in); err != nil {
		return nil, err
	}
	previous := post.FeaturedImage
	if imagePath != "" {
		post.FeaturedImage = imagePath
	}
	if err := s.store.UpdatePost(ctx, post); err != nil {
		return nil, storeErr("update post", err)
	}
	if post.FeaturedImage != previous {
		s.removeImage(previous)
	}
	updated, err := s.store.FindPost(ctx, id)
	if err != nil {
		return nil, storeErr("find post", err)
	}
	return updated, nil
}

// DeletePost removes a post. Only the author or an admin may do so.
func (s *Service) DeletePost(ctx context.Context, actor Actor, id uuid.UUID) error {
	post, err := s.store.FindPost(ctx, id)
	if err != nil {
		return storeErr("find post", err)
	}
	if !actor.CanModify(post.Author.ID) {
		return ErrForbidden
	}
	if err := s.store.DeletePost(ctx, id); err != nil {
		return storeErr("delete post", err)
	}
	s.removeImage(post.FeaturedImage)
	return nil
}

// removeImage is best effort: the post change already happened.
func (s *Service) removeImage(path string) {
	if s.images == nil || path == "" {
		return
	}
	if err := s.images.Remove(path); err != nil {
		log.Printf("blog: remove image %s: %v", path, err)
	}
}

// apply copies the supplied fields of in onto post and validates the result.
// Author, views, image and creation time are never taken from the payload.
func (s *Service) apply(ctx context.Context, post *models.Post, in PostInput) error {
	var categoryRef string
	if in.Title != nil {
		post.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		post.Content = strings.TrimSpace(*in.Content)
	}
	if in.Excerpt != nil {
		post.Excerpt = strings.TrimSpace(*in.Excerpt)
	}
	if in.Category != nil {
		categoryRef = strings.TrimSpace(*in.Category)
	}
	if in.Status != nil {
		post.Status = models.Status(strings.TrimSpace(*in.Status))
	}

	var fields []string
	if post.Title == "" {
		fields = append(fields, "title")
	}
	if post.Content == "" {
		fields = append(fields, "content")
	}
	if (in.Category != nil && categoryRef == "") || (in.Category == nil && post.Category.ID == uuid.Nil) {
		fields = append(fields, "category")
	}
	if !post.Status.Valid() {
		fields = append(fields, "status")
	}
	if utf8.RuneCountInString(post.Excerpt) > MaxExcerptLength {
		fields = append(fields, "excerpt")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}

	if categoryRef == "" {
		return nil
	}
	cid, err := uuid.Parse(categoryRef)
	if err != nil {
		return ErrNotFound
	}
	cat, err := s.store.FindCategory(ctx, cid)
	if err != nil {
		return storeErr("find category", err)
	}
	post.Category = models.CategoryRef{ID: cat.ID, Name: cat.Name}
	return nil
}

func positiveOr(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return def
	}
	return n
}
