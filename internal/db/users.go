package db

import (
	"context"
	"time"

	"blog/internal/models"

	"github.com/google/uuid"
)

const userSelect = `SELECT id, name, email, role, password_hash, created_at FROM users`

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.exec(ctx, `INSERT INTO users(id,name,email,role,password_hash,created_at) VALUES(?,?,?,?,?,?)`,
		u.ID, u.Name, u.Email, string(u.Role), u.PasswordHash, u.CreatedAt)
	return err
}

func (s *Store) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(s.queryRow(ctx, userSelect+" WHERE id = ?", id))
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.queryRow(ctx, userSelect+" WHERE email = ?", email))
}

func (s *Store) CreateSession(ctx context.Context, sess *models.Session) error {
	_, err := s.exec(ctx, `INSERT INTO sessions(id,user_id,expires_at) VALUES(?,?,?)`,
		sess.ID, sess.UserID, sess.ExpiresAt)
	return err
}

func (s *Store) FindSession(ctx context.Context, id string) (*models.Session, error) {
	var sess models.Session
	err := s.queryRow(ctx, `SELECT id, user_id, expires_at FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &sess.UserID, &sess.ExpiresAt)
	if err != nil {
		return nil, translate(err)
	}
	return &sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.exec(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (s *Store) DeleteUserSessions(ctx context.Context, userID uuid.UUID) error {
	_, err := s.exec(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

// DeleteExpiredSessions removes sessions that expired before now and
// reports how many went.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
