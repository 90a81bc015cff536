package blog

import (
	"context"
	"errors"
	"testing"

	"blog/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var errDisk = errors.New("disk I/O error")

// brokenStore fails every call it implements; the embedded nil Store panics
// on anything else.
type brokenStore struct {
	Store
	post *models.Post
}

func (s *brokenStore) FindPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	if s.post != nil {
		p := *s.post
		return &p, nil
	}
	return nil, errDisk
}

func (s *brokenStore) UpdatePostViews(ctx context.Context, id uuid.UUID, views int64) error {
	return errDisk
}

func (s *brokenStore) DeletePost(ctx context.Context, id uuid.UUID) error {
	return errDisk
}

func (s *brokenStore) CountPosts(ctx context.Context, f PostFilter) (int, error) {
	return 0, errDisk
}

func (s *brokenStore) FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return nil, errDisk
}

func TestStoreError_Wraps(t *testing.T) {
	svc := New(&brokenStore{})
	ctx := context.Background()

	_, err := svc.ListPosts(ctx, ListParams{})
	var se *StoreError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "count posts", se.Op)
	require.ErrorIs(t, err, errDisk)
	require.NotErrorIs(t, err, ErrNotFound)

	_, err = svc.GetPost(ctx, uuid.New())
	require.ErrorAs(t, err, &se)
	require.Equal(t, "find post", se.Op)

	_, err = svc.CreateCategory(ctx, "Tech", "")
	require.ErrorAs(t, err, &se)
	require.Equal(t, "find category", se.Op)
}

func TestStoreError_AfterAuthorization(t *testing.T) {
	owner := uuid.New()
	svc := New(&brokenStore{post: &models.Post{ID: uuid.New(), Author: models.AuthorRef{ID: owner}}})
	ctx := context.Background()

	_, err := svc.GetPost(ctx, uuid.New())
	var se *StoreError
	require.ErrorAs(t, err, &se)
	require.Equal(t, "record view", se.Op)

	err = svc.DeletePost(ctx, Actor{ID: uuid.New(), Role: models.RoleUser}, uuid.New())
	require.ErrorIs(t, err, ErrForbidden)

	err = svc.DeletePost(ctx, Actor{ID: owner, Role: models.RoleUser}, uuid.New())
	require.ErrorAs(t, err, &se)
	require.Equal(t, "delete post", se.Op)
}

func TestStoreErr_PassesTaxonomyThrough(t *testing.T) {
	require.NoError(t, storeErr("x", nil))
	require.Same(t, ErrNotFound, storeErr("x", ErrNotFound))
	require.ErrorIs(t, storeErr("x", ErrConflict), ErrConflict)

	wrapped := storeErr("x", errDisk)
	require.EqualError(t, wrapped, "store x: disk I/O error")
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: []string{"title", "content"}}
	require.EqualError(t, err, "invalid or missing fields: title, content")
	require.ErrorIs(t, err, ErrValidation)
}

func TestActor_CanModify(t *testing.T) {
	author := uuid.New()
	same, err := uuid.Parse(author.String())
	require.NoError(t, err)

	require.True(t, Actor{ID: same, Role: models.RoleUser}.CanModify(author))
	require.True(t, Actor{ID: uuid.New(), Role: models.RoleAdmin}.CanModify(author))
	require.False(t, Actor{ID: uuid.New(), Role: models.RoleUser}.CanModify(author))
	require.False(t, Actor{}.CanModify(author))
}
