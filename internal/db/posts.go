package db

import (
	"context"
	"fmt"
	"strings"

	"blog/internal/blog"
	"blog/internal/models"

	"github.com/google/uuid"
)

const postSelect = `SELECT p.id, p.title, p.content, p.excerpt, p.status, p.featured_image,
		p.views, p.created_at, c.id, c.name, u.id, u.name, u.email
	FROM posts p
	JOIN categories c ON c.id = p.category_id
	JOIN users u ON u.id = p.author_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.Excerpt, &p.Status, &p.FeaturedImage,
		&p.Views, &p.CreatedAt, &p.Category.ID, &p.Category.Name,
		&p.Author.ID, &p.Author.Name, &p.Author.Email)
	return p, err
}

// where renders f as a SQL condition over the posts alias p.
func where(driver string, f blog.PostFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Search != "" {
		pattern := "%" + escapeLike(foldArg(driver, f.Search)) + "%"
		conds = append(conds, fmt.Sprintf(`(%s LIKE ? ESCAPE '\' OR %s LIKE ? ESCAPE '\')`,
			foldExpr(driver, "p.title"), foldExpr(driver, "p.content")))
		args = append(args, pattern, pattern)
	}
	if f.Category != nil {
		conds = append(conds, "p.category_id = ?")
		args = append(args, *f.Category)
	}
	if f.Status != "" {
		conds = append(conds, "p.status = ?")
		args = append(args, string(f.Status))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) FindPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	p, err := scanPost(s.queryRow(ctx, postSelect+" WHERE p.id = ?", id))
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *Store) FindPosts(ctx context.Context, q blog.PostQuery) ([]models.Post, error) {
	cond, args := where(s.driver, q.Filter)
	args = append(args, q.Limit, q.Skip)
	rows, err := s.query(ctx, postSelect+cond+" ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *Store) CountPosts(ctx context.Context, f blog.PostFilter) (int, error) {
	cond, args := where(s.driver, f)
	var n int
	err := s.queryRow(ctx, "SELECT COUNT(*) FROM posts p"+cond, args...).Scan(&n)
	return n, err
}

func (s *Store) CreatePost(ctx context.Context, p *models.Post) error {
	_, err := s.exec(ctx, `INSERT INTO posts(id,title,content,excerpt,category_id,author_id,status,featured_image,views,created_at)
		VALUES(?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Title, p.Content, p.Excerpt, p.Category.ID, p.Author.ID, string(p.Status), p.FeaturedImage, p.Views, p.CreatedAt)
	return err
}

// UpdatePost writes the editable fields. Author, views and created_at are
// left alone.
func (s *Store) UpdatePost(ctx context.Context, p *models.Post) error {
	return mustAffect(s.exec(ctx, `UPDATE posts SET title=?, content=?, excerpt=?, category_id=?, status=?, featured_image=?
		WHERE id=?`,
		p.Title, p.Content, p.Excerpt, p.Category.ID, string(p.Status), p.FeaturedImage, p.ID))
}

func (s *Store) UpdatePostViews(ctx context.Context, id uuid.UUID, views int64) error {
	return mustAffect(s.exec(ctx, `UPDATE posts SET views=? WHERE id=?`, views, id))
}

func (s *Store) DeletePost(ctx context.Context, id uuid.UUID) error {
	return mustAffect(s.exec(ctx, `DELETE FROM posts WHERE id=?`, id))
}
