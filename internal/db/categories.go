package db

import (
	"context"

	"blog/internal/models"

	"github.com/google/uuid"
)

const categorySelect = `SELECT id, name, slug, description, created_at FROM categories`

func scanCategory(row scanner) (models.Category, error) {
	var c models.Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt)
	return c, err
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.query(ctx, categorySelect+" ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (s *Store) FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := scanCategory(s.queryRow(ctx, categorySelect+" WHERE id = ?", id))
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	c, err := scanCategory(s.queryRow(ctx, categorySelect+" WHERE slug = ?", slug))
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	_, err := s.exec(ctx, `INSERT INTO categories(id,name,slug,description,created_at) VALUES(?,?,?,?,?)`,
		c.ID, c.Name, c.Slug, c.Description, c.CreatedAt)
	return err
}
