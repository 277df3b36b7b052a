package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_pos/internal/domain"
)

// CreateSale records a finalized sale. The sale insert, the per-line stock
// decrements and the outbox event share one transaction: if any line's
// product no longer exists, nothing is persisted.
func (r *Repository) CreateSale(ctx context.Context, sale *domain.Sale) error {
	itemsJSON, err := json.Marshal(sale.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal sale items: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sale transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO sales (id, total, tax, discount, payment_method, sale_date, cashier_id, customer_id, items, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, NOW())`

	_, err = tx.ExecContext(ctx, query,
		sale.ID,
		sale.Total,
		sale.Tax,
		sale.Discount,
		sale.PaymentMethod.String(),
		sale.Timestamp,
		sale.CashierID,
		sale.CustomerID,
		itemsJSON)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}

	for _, item := range sale.Items {
		res, err := tx.ExecContext(ctx,
			`UPDATE products SET stock = stock - $2 WHERE id = $1`,
			item.ProductID, item.Quantity)
		if err != nil {
			return fmt.Errorf("decrement stock for %s: %w", item.ProductID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return ErrProductNotFound
		}
	}

	payload, err := json.Marshal(map[string]interface{}{
		"sale_id":        sale.ID,
		"cashier_id":     sale.CashierID,
		"items":          sale.Items,
		"total":          sale.Total,
		"payment_method": sale.PaymentMethod,
		"sale_date":      sale.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sale event payload: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sales_outbox (aggregate_id, event_type, payload, created_at)
		 VALUES ($1, $2, $3, NOW())`,
		sale.ID, "sale.completed", payload)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sale transaction: %w", err)
	}
	return nil
}

func (r *Repository) ListSales(ctx context.Context, filter SaleFilter) ([]*domain.Sale, error) {
	query := `SELECT id, total, tax, discount, payment_method, sale_date, cashier_id, COALESCE(customer_id, ''), items, created_at
	          FROM sales`

	var conditions []string
	var args []interface{}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("sale_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("sale_date <= $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY sale_date DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	var sales []*domain.Sale
	for rows.Next() {
		sale := &domain.Sale{}
		var method string
		var itemsJSON []byte
		if err := rows.Scan(
			&sale.ID,
			&sale.Total,
			&sale.Tax,
			&sale.Discount,
			&method,
			&sale.Timestamp,
			&sale.CashierID,
			&sale.CustomerID,
			&itemsJSON,
			&sale.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan sale row: %w", err)
		}
		sale.PaymentMethod = domain.PaymentMethod(method)
		if err := json.Unmarshal(itemsJSON, &sale.Items); err != nil {
			return nil, fmt.Errorf("unmarshal sale items: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sales, nil
}

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at
		 FROM sales_outbox
		 WHERE processed_at IS NULL
		 ORDER BY id
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		ev := &OutboxEvent{}
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.EventType, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sales_outbox SET processed_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	return nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u := &domain.User{}
	var role string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, role FROM users WHERE email = $1`, email).
		Scan(&u.ID, &u.Name, &u.Email, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	u.Role = domain.Role(role)
	return u, nil
}
