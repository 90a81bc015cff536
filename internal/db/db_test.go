package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"blog/internal/blog"
	"blog/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	conn, err := Open(SQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, Migrate(context.Background(), conn, SQLite))
	return NewStore(conn, SQLite)
}

func TestOpen_RejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	require.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	s := openTest(t)
	require.NoError(t, Migrate(context.Background(), s.db, SQLite))

	cats, err := s.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, len(defaultCategories))
}

func TestRebind(t *testing.T) {
	q := `SELECT * FROM posts WHERE a = ? AND b LIKE ? ESCAPE '\' LIMIT ?`
	require.Equal(t, q, rebind(SQLite, q))
	require.Equal(t, `SELECT * FROM posts WHERE a = $1 AND b LIKE $2 ESCAPE '\' LIMIT $3`, rebind(Postgres, q))
}

func TestEscapeLike(t *testing.T) {
	require.Equal(t, `100\% \_done\\`, escapeLike(`100% _done\`))
	require.Equal(t, "plain", escapeLike("plain"))
}

func TestTranslate(t *testing.T) {
	require.NoError(t, translate(nil))
	require.ErrorIs(t, translate(sql.ErrNoRows), blog.ErrNotFound)
	require.ErrorIs(t, translate(fmt.Errorf("wrapped: %w", sql.ErrNoRows)), blog.ErrNotFound)
	require.ErrorIs(t, translate(errors.New("constraint failed: UNIQUE constraint failed: categories.slug (2067)")), blog.ErrConflict)
	require.ErrorIs(t, translate(&pgconn.PgError{Code: "23505"}), blog.ErrConflict)

	other := &pgconn.PgError{Code: "23503"}
	require.Same(t, other, translate(other))
}

func TestSearchFolding(t *testing.T) {
	require.Equal(t, "école über strasse", foldText("ÉCOLE Über STRASSE"))
	require.Equal(t, foldText("e\u0301cole"), foldText("\u00c9COLE"))

	cond, args := where(SQLite, blog.PostFilter{Search: "ÉCOLE 50%"})
	require.Contains(t, cond, "fold(p.title) LIKE ?")
	require.Equal(t, []any{`%école 50\%%`, `%école 50\%%`}, args)

	cond, args = where(Postgres, blog.PostFilter{Search: "ÉCOLE"})
	require.Contains(t, cond, "lower(p.content) LIKE ?")
	require.Equal(t, []any{"%école%", "%école%"}, args)
}

func TestStore_CategoryUniqueness(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	c := &models.Category{ID: uuid.New(), Name: "Go", Slug: "go", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateCategory(ctx, c))

	dup := &models.Category{ID: uuid.New(), Name: "Go", Slug: "go-2", CreatedAt: time.Now().UTC()}
	require.ErrorIs(t, s.CreateCategory(ctx, dup), blog.ErrConflict)

	_, err := s.FindCategory(ctx, uuid.New())
	require.ErrorIs(t, err, blog.ErrNotFound)
}

func TestStore_PostRoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	u := &models.User{ID: uuid.New(), Name: "Ann", Email: "ann@example.com", Role: models.RoleUser, PasswordHash: "h", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateUser(ctx, u))
	cat, err := s.FindCategoryBySlug(ctx, "general")
	require.NoError(t, err)

	created := time.Date(2025, 3, 4, 5, 6, 7, 123456000, time.UTC)
	p := &models.Post{
		ID:            uuid.New(),
		Title:         "T",
		Content:       "C",
		Excerpt:       "E",
		Category:      models.CategoryRef{ID: cat.ID},
		Author:        models.AuthorRef{ID: u.ID},
		Status:        models.StatusPublished,
		FeaturedImage: "/uploads/x.png",
		CreatedAt:     created,
	}
	require.NoError(t, s.CreatePost(ctx, p))

	got, err := s.FindPost(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "General", got.Category.Name)
	require.Equal(t, models.AuthorRef{ID: u.ID, Name: "Ann", Email: "ann@example.com"}, got.Author)
	require.Equal(t, models.StatusPublished, got.Status)
	require.Equal(t, "/uploads/x.png", got.FeaturedImage)
	require.True(t, created.Equal(got.CreatedAt), "created_at %v != %v", got.CreatedAt, created)

	require.NoError(t, s.UpdatePostViews(ctx, p.ID, 7))
	got.Title = "T2"
	got.Views = 99 // ignored by UpdatePost
	require.NoError(t, s.UpdatePost(ctx, got))
	got, err = s.FindPost(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "T2", got.Title)
	require.EqualValues(t, 7, got.Views)

	require.NoError(t, s.DeletePost(ctx, p.ID))
	require.ErrorIs(t, s.DeletePost(ctx, p.ID), blog.ErrNotFound)
	require.ErrorIs(t, s.UpdatePostViews(ctx, p.ID, 1), blog.ErrNotFound)
	_, err = s.FindPost(ctx, p.ID)
	require.ErrorIs(t, err, blog.ErrNotFound)
}

func TestStore_Sessions(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	u := &models.User{ID: uuid.New(), Name: "Ann", Email: "ann@example.com", Role: models.RoleAdmin, PasswordHash: "h", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateUser(ctx, u))
	require.ErrorIs(t, s.CreateUser(ctx, &models.User{ID: uuid.New(), Name: "Dup", Email: "ann@example.com", Role: models.RoleUser, PasswordHash: "h", CreatedAt: time.Now().UTC()}), blog.ErrConflict)

	now := time.Now().UTC()
	require.NoError(t, s.CreateSession(ctx, &models.Session{ID: "live", UserID: u.ID, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.CreateSession(ctx, &models.Session{ID: "dead", UserID: u.ID, ExpiresAt: now.Add(-time.Hour)}))

	n, err := s.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	sess, err := s.FindSession(ctx, "live")
	require.NoError(t, err)
	require.Equal(t, u.ID, sess.UserID)
	_, err = s.FindSession(ctx, "dead")
	require.ErrorIs(t, err, blog.ErrNotFound)

	require.NoError(t, s.DeleteUserSessions(ctx, u.ID))
	_, err = s.FindSession(ctx, "live")
	require.ErrorIs(t, err, blog.ErrNotFound)

	byEmail, err := s.FindUserByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, byEmail.Role)
}
