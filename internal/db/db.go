package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	SQLite   = "sqlite"
	Postgres = "pgx"
)

// Open connects to the database. SQLite gets a single connection so the
// foreign_keys pragma sticks and writers never contend.
func Open(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case SQLite, Postgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if driver == SQLite && !strings.Contains(dsn, "_time_format") {
		// sortable text timestamps
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_time_format=sqlite"
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == SQLite {
		db.SetMaxOpenConns(1)
		if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
			db.Close()
			return nil, err
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

var defaultCategories = []struct{ name, slug, description string }{
	{"General", "general", "Anything that fits nowhere else"},
	{"News", "news", "Announcements and updates"},
	{"Tutorials", "tutorials", "Step-by-step guides"},
}

func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	ts := "DATETIME"
	if driver == Postgres {
		ts = "TIMESTAMPTZ"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users(
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			role TEXT NOT NULL DEFAULT 'user' CHECK(role IN ('admin','user')),
			password_hash TEXT NOT NULL,
			created_at TIMESTAMP_T NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions(
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires_at TIMESTAMP_T NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS categories(
			id TEXT PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			slug TEXT UNIQUE NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP_T NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS posts(
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			excerpt TEXT NOT NULL DEFAULT '',
			category_id TEXT NOT NULL REFERENCES categories(id),
			author_id TEXT NOT NULL REFERENCES users(id),
			status TEXT NOT NULL DEFAULT 'draft' CHECK(status IN ('draft','published')),
			featured_image TEXT NOT NULL DEFAULT '',
			views BIGINT NOT NULL DEFAULT 0 CHECK(views >= 0),
			created_at TIMESTAMP_T NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS posts_created_at_idx ON posts(created_at);`,
		`CREATE INDEX IF NOT EXISTS posts_category_idx ON posts(category_id);`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, strings.ReplaceAll(s, "TIMESTAMP_T", ts)); err != nil {
			return err
		}
	}

	seed := rebind(driver, `INSERT INTO categories(id,name,slug,description,created_at)
		VALUES(?,?,?,?,?) ON CONFLICT DO NOTHING`)
	now := time.Now().UTC().Truncate(time.Second)
	for _, c := range defaultCategories {
		if _, err := db.ExecContext(ctx, seed, uuid.NewString(), c.name, c.slug, c.description, now); err != nil {
			return err
		}
	}
	return nil
}

// rebind turns ? placeholders into $1, $2, ... for Postgres.
func rebind(driver, q string) string {
	if driver != Postgres {
		return q
	}
	var sb strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			fmt.Fprintf(&sb, "$%d", n)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
