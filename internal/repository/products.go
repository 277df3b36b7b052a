package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/lib/pq"
)

const productColumns = `p.id, p.name, p.price, p.cost, COALESCE(p.category_id::text, ''),
       COALESCE(c.name, ''), p.stock, p.low_stock_threshold,
       COALESCE(p.barcode, ''), COALESCE(p.description, ''), p.created_at`

func (r *Repository) ListProducts(ctx context.Context, filter ProductFilter) ([]*domain.Product, error) {
	query := `SELECT ` + productColumns + `
	          FROM products p
	          LEFT JOIN categories c ON c.id = p.category_id`

	var conditions []string
	var args []interface{}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conditions = append(conditions, fmt.Sprintf("(p.name ILIKE $%d OR c.name ILIKE $%d)", len(args), len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("c.name = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY p.name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

func (r *Repository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + `
	          FROM products p
	          LEFT JOIN categories c ON c.id = p.category_id
	          WHERE p.id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repository) CreateProduct(ctx context.Context, p *domain.Product) error {
	query := `INSERT INTO products (id, name, price, cost, category_id, stock, low_stock_threshold, barcode, description, created_at)
	          VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, $6, $7, NULLIF($8, ''), NULLIF($9, ''), NOW())`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Price, p.Cost, p.CategoryID, p.Stock, p.LowStockThreshold, p.Barcode, p.Description)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *Repository) UpdateProduct(ctx context.Context, p *domain.Product) error {
	query := `UPDATE products
	          SET name = $2, price = $3, cost = $4, category_id = NULLIF($5, '')::uuid,
	              stock = $6, low_stock_threshold = $7, barcode = NULLIF($8, ''), description = NULLIF($9, '')
	          WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Price, p.Cost, p.CategoryID, p.Stock, p.LowStockThreshold, p.Barcode, p.Description)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("update product: %w", err)
	}
	return requireRow(res, ErrProductNotFound)
}

func (r *Repository) DeleteProduct(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return requireRow(res, ErrProductNotFound)
}

func (r *Repository) SetStock(ctx context.Context, productID string, quantity int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET stock = $2 WHERE id = $1`, productID, quantity)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	return requireRow(res, ErrProductNotFound)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Price,
		&p.Cost,
		&p.CategoryID,
		&p.Category,
		&p.Stock,
		&p.LowStockThreshold,
		&p.Barcode,
		&p.Description,
		&p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return p, nil
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
