package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"blog/internal/blog"
	"blog/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const sessionCookie = "blog_session"

const minPasswordLen = 6

var (
	ErrEmailTaken   = errors.New("email already taken")
	ErrInvalidLogin = errors.New("invalid email or password")
)

// Store persists users and sessions.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateSession(ctx context.Context, s *models.Session) error
	FindSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteUserSessions(ctx context.Context, userID uuid.UUID) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type Manager struct {
	store  Store
	maxAge time.Duration
	admins map[string]bool
	secure bool
}

// NewManager builds a session manager. Accounts registered with one of
// adminEmails get the admin role.
func NewManager(store Store, maxAge time.Duration, adminEmails []string) *Manager {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		if e = normalizeEmail(e); e != "" {
			admins[e] = true
		}
	}
	return &Manager{store: store, maxAge: maxAge, admins: admins}
}

// SecureCookies marks session cookies Secure; use behind TLS.
func (m *Manager) SecureCookies(on bool) { m.secure = on }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (m *Manager) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	var fields []string
	if name == "" {
		fields = append(fields, "name")
	}
	if email == "" || !strings.Contains(email, "@") {
		fields = append(fields, "email")
	}
	if len(password) < minPasswordLen {
		fields = append(fields, "password")
	}
	if len(fields) > 0 {
		return nil, &blog.ValidationError{Fields: fields}
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		Role:         models.RoleUser,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	if m.admins[email] {
		u.Role = models.RoleAdmin
	}
	if err := m.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, blog.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	log.Printf("AUTH_REGISTER | uid=%s role=%s", u.ID, u.Role)
	return u, nil
}

// Login checks the credentials and opens a new session, replacing any the
// user already had.
func (m *Manager) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	u, err := m.store.FindUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, blog.ErrNotFound) {
		return "", nil, ErrInvalidLogin
	} else if err != nil {
		return "", nil, err
	}
	if !CheckPassword(password, u.PasswordHash) {
		log.Printf("AUTH_DENIED | uid=%s reason=bad_password", u.ID)
		return "", nil, ErrInvalidLogin
	}

	if err := m.store.DeleteUserSessions(ctx, u.ID); err != nil {
		return "", nil, err
	}
	token, err := m.Create(ctx, u.ID)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Create opens a session for userID and returns its token.
func (m *Manager) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	sess := &models.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(m.maxAge).UTC(),
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return "", err
	}
	return sess.ID, nil
}

func (m *Manager) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(m.maxAge),
	})
}

// Destroy ends the request's session, if any, and clears the cookie.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) {
	if token := tokenFrom(r); token != "" {
		if err := m.store.DeleteSession(r.Context(), token); err != nil {
			log.Printf("auth: delete session: %v", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
	})
}

// tokenFrom reads the session token from the bearer header or the cookie.
func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// Authenticate resolves the request's session to a user.
func (m *Manager) Authenticate(r *http.Request) (*models.User, bool) {
	token := tokenFrom(r)
	if token == "" {
		return nil, false
	}
	sess, err := m.store.FindSession(r.Context(), token)
	if err != nil {
		if !errors.Is(err, blog.ErrNotFound) {
			log.Printf("auth: find session: %v", err)
		}
		return nil, false
	}
	if time.Now().After(sess.ExpiresAt) {
		return nil, false
	}
	u, err := m.store.FindUser(r.Context(), sess.UserID)
	if err != nil {
		return nil, false
	}
	return u, true
}

// CleanupExpired deletes expired sessions every interval until ctx ends.
func (m *Manager) CleanupExpired(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.store.DeleteExpiredSessions(ctx, time.Now())
			if err != nil {
				log.Printf("auth: cleanup sessions: %v", err)
			} else if n > 0 {
				log.Printf("auth: removed %d expired sessions", n)
			}
		}
	}
}

type ctxKeyUser struct{}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser{}, u)
}

func UserFrom(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(ctxKeyUser{}).(*models.User)
	return u, ok && u != nil
}

// ActorFrom returns the identity the blog service needs for the request.
func ActorFrom(ctx context.Context) (blog.Actor, bool) {
	u, ok := UserFrom(ctx)
	if !ok {
		return blog.Actor{}, false
	}
	return blog.Actor{ID: u.ID, Role: u.Role}, true
}

// --- password helpers (bcrypt) ---
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(pw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
