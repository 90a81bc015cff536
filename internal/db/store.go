package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"blog/internal/blog"

	"github.com/jackc/pgx/v5/pgconn"
)

// Store is the SQL implementation of blog.Store and auth.Store.
type Store struct {
	db     *sql.DB
	driver string
}

func NewStore(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

func (s *Store) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	res, err := s.db.ExecContext(ctx, rebind(s.driver, q), args...)
	return res, translate(err)
}

func (s *Store) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, rebind(s.driver, q), args...)
}

func (s *Store) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, rebind(s.driver, q), args...)
}

// mustAffect reports blog.ErrNotFound when a write touched no rows.
func mustAffect(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return blog.ErrNotFound
	}
	return nil
}

// translate maps driver errors onto the blog error taxonomy.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return blog.ErrNotFound
	case isUniqueErr(err):
		return blog.ErrConflict
	}
	return err
}

func isUniqueErr(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// SQLite: "UNIQUE constraint failed: table.column"
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// escapeLike makes s match literally inside a LIKE pattern using \ as escape.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
