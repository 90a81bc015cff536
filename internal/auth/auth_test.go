package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"blog/internal/blog"
	"blog/internal/db"
	"blog/internal/models"

	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, ttl time.Duration, admins ...string) *Manager {
	t.Helper()
	conn, err := db.Open(db.SQLite, filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.Migrate(context.Background(), conn, db.SQLite))
	return NewManager(db.NewStore(conn, db.SQLite), ttl, admins)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("super-secret")
	require.NoError(t, err)
	require.True(t, CheckPassword("super-secret", hash))
	require.False(t, CheckPassword("wrong", hash))
}

func TestRegister_Validation(t *testing.T) {
	m := newTestManager(t, time.Hour)
	ctx := context.Background()

	_, err := m.Register(ctx, " ", "bad", "123")
	var ve *blog.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, []string{"name", "email", "password"}, ve.Fields)

	u, err := m.Register(ctx, "Ann", " Ann@Example.COM ", "secret123")
	require.NoError(t, err)
	require.Equal(t, "ann@example.com", u.Email)
	require.Equal(t, models.RoleUser, u.Role)
	require.NotEqual(t, "secret123", u.PasswordHash)

	_, err = m.Register(ctx, "Other", "ann@example.com", "secret123")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_AdminEmails(t *testing.T) {
	m := newTestManager(t, time.Hour, "Boss@Example.com")

	u, err := m.Register(context.Background(), "Boss", "boss@example.com", "secret123")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, u.Role)
}

func TestLoginAndAuthenticate(t *testing.T) {
	m := newTestManager(t, time.Hour)
	ctx := context.Background()
	u, err := m.Register(ctx, "Ann", "ann@example.com", "secret123")
	require.NoError(t, err)

	_, _, err = m.Login(ctx, "ann@example.com", "nope-nope")
	require.ErrorIs(t, err, ErrInvalidLogin)
	_, _, err = m.Login(ctx, "nobody@example.com", "secret123")
	require.ErrorIs(t, err, ErrInvalidLogin)

	first, _, err := m.Login(ctx, "ANN@example.com", "secret123")
	require.NoError(t, err)
	token, logged, err := m.Login(ctx, "ann@example.com", "secret123")
	require.NoError(t, err)
	require.Equal(t, u.ID, logged.ID)

	bearer := httptest.NewRequest(http.MethodGet, "/", nil)
	bearer.Header.Set("Authorization", "Bearer "+token)
	got, ok := m.Authenticate(bearer)
	require.True(t, ok)
	require.Equal(t, u.ID, got.ID)

	cookie := httptest.NewRequest(http.MethodGet, "/", nil)
	cookie.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	_, ok = m.Authenticate(cookie)
	require.True(t, ok)

	// a new login replaces earlier sessions
	stale := httptest.NewRequest(http.MethodGet, "/", nil)
	stale.Header.Set("Authorization", "Bearer "+first)
	_, ok = m.Authenticate(stale)
	require.False(t, ok)

	_, ok = m.Authenticate(httptest.NewRequest(http.MethodGet, "/", nil))
	require.False(t, ok)
}

func TestAuthenticate_Expired(t *testing.T) {
	m := newTestManager(t, -time.Minute)
	ctx := context.Background()
	u, err := m.Register(ctx, "Ann", "ann@example.com", "secret123")
	require.NoError(t, err)
	token, err := m.Create(ctx, u.ID)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	_, ok := m.Authenticate(r)
	require.False(t, ok)
}

func TestDestroy(t *testing.T) {
	m := newTestManager(t, time.Hour)
	ctx := context.Background()
	u, err := m.Register(ctx, "Ann", "ann@example.com", "secret123")
	require.NoError(t, err)
	token, err := m.Create(ctx, u.ID)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	r.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	w := httptest.NewRecorder()
	m.Destroy(w, r)

	cleared := w.Result().Cookies()
	require.Len(t, cleared, 1)
	require.Empty(t, cleared[0].Value)
	_, ok := m.Authenticate(r)
	require.False(t, ok)
}

func TestActorFrom(t *testing.T) {
	_, ok := ActorFrom(context.Background())
	require.False(t, ok)

	u := &models.User{Role: models.RoleAdmin}
	actor, ok := ActorFrom(WithUser(context.Background(), u))
	require.True(t, ok)
	require.Equal(t, blog.Actor{ID: u.ID, Role: models.RoleAdmin}, actor)
}
