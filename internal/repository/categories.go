package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/lib/pq"
)

func (r *Repository) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, COALESCE(description, '') FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		c := &domain.Category{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return categories, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c *domain.Category) error {
	query := `INSERT INTO categories (id, name, description) VALUES ($1, $2, NULLIF($3, ''))`

	_, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.Description)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateCategory
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// DeleteCategory refuses to delete a category that products still reference.
// The products.category_id foreign key is RESTRICT, so the database is the
// enforcement point.
func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return ErrCategoryInUse
		}
		return fmt.Errorf("delete category: %w", err)
	}
	return requireRow(res, ErrCategoryNotFound)
}
