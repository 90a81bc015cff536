package blog

import (
	"context"
	"errors"
	"strings"
	"time"

	"blog/internal/models"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Slugify lower-cases name and joins its whitespace-separated words with
// single hyphens, so "Tech  News" becomes "tech-news".
func Slugify(name string) string {
	return strings.Join(strings.Fields(cases.Lower(language.Und).String(norm.NFC.String(name))), "-")
}

// ListCategories returns every category ordered by name.
func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	if cats == nil {
		cats = []models.Category{}
	}
	return cats, nil
}

func (s *Service) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	cat, err := s.store.FindCategory(ctx, id)
	if err != nil {
		return nil, storeErr("find category", err)
	}
	return cat, nil
}

// CreateCategory adds a category. Two names that slugify the same way
// conflict.
func (s *Service) CreateCategory(ctx context.Context, name, description string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Fields: []string{"name"}}
	}
	cat := &models.Category{
		ID:          uuid.New(),
		Name:        name,
		Slug:        Slugify(name),
		Description: strings.TrimSpace(description),
		CreatedAt:   s.now().UTC().Truncate(time.Second),
	}

	_, err := s.store.FindCategoryBySlug(ctx, cat.Slug)
	switch {
	case err == nil:
		return nil, ErrConflict
	case !errors.Is(err, ErrNotFound):
		return nil, storeErr("find category", err)
	}

	if err := s.store.CreateCategory(ctx, cat); err != nil {
		return nil, storeErr("create category", err)
	}
	return cat, nil
}
