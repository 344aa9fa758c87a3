package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"orderboard/internal/domain"
	apperrors "orderboard/internal/errors"
)

const orderColumns = `id, order_number, quantity, status, created_at, deleted_at`

// MySQLOrderRepository works against either the pool or an open transaction;
// every method takes the executor to run on.
type MySQLOrderRepository struct{}

func NewMySQLOrderRepository() *MySQLOrderRepository {
	return &MySQLOrderRepository{}
}

func (r *MySQLOrderRepository) Insert(ctx context.Context, q sqlx.ExecerContext, orderNumber int64, quantity int) (uint64, error) {
	query := `INSERT INTO orders (order_number, quantity, status) VALUES (?, ?, ?)`

	result, err := q.ExecContext(ctx, query, orderNumber, quantity, domain.OrderStatusPending)
	if err != nil {
		return 0, fmt.Errorf("inserting order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return uint64(id), nil
}

// FindByID returns the order whether or not it was soft-deleted.
func (r *MySQLOrderRepository) FindByID(ctx context.Context, q sqlx.QueryerContext, id uint64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`

	var order domain.Order
	err := sqlx.GetContext(ctx, q, &order, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	return &order, nil
}

func (r *MySQLOrderRepository) FindActiveByID(ctx context.Context, q sqlx.QueryerContext, id uint64) (*domain.Order, error) {
	return r.findActive(ctx, q, id, false)
}

// FindActiveByIDForUpdate locks the row until the surrounding transaction ends.
func (r *MySQLOrderRepository) FindActiveByIDForUpdate(ctx context.Context, q sqlx.QueryerContext, id uint64) (*domain.Order, error) {
	return r.findActive(ctx, q, id, true)
}

func (r *MySQLOrderRepository) findActive(ctx context.Context, q sqlx.QueryerContext, id uint64, lock bool) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ? AND deleted_at IS NULL`
	if lock {
		query += ` FOR UPDATE`
	}

	var order domain.Order
	err := sqlx.GetContext(ctx, q, &order, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying active order by id: %w", err)
	}

	return &order, nil
}

// ListActive returns pending and ready orders that are not deleted, oldest first.
func (r *MySQLOrderRepository) ListActive(ctx context.Context, q sqlx.QueryerContext) ([]domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status IN (?, ?)
		  AND deleted_at IS NULL
		ORDER BY created_at ASC, id ASC
	`

	orders := []domain.Order{}
	if err := sqlx.SelectContext(ctx, q, &orders, query, domain.OrderStatusPending, domain.OrderStatusReady); err != nil {
		return nil, fmt.Errorf("querying active orders: %w", err)
	}

	return orders, nil
}

func (r *MySQLOrderRepository) UpdateStatus(ctx context.Context, q sqlx.ExecerContext, id uint64, status domain.OrderStatus) error {
	query := `UPDATE orders SET status = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := q.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}

	return requireAffected(result, id)
}

func (r *MySQLOrderRepository) UpdateQuantity(ctx context.Context, q sqlx.ExecerContext, id uint64, quantity int) error {
	query := `UPDATE orders SET quantity = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := q.ExecContext(ctx, query, quantity, id)
	if err != nil {
		return fmt.Errorf("updating order quantity: %w", err)
	}

	return requireAffected(result, id)
}

// SoftDelete stamps deleted_at; an already deleted order is reported as not found.
func (r *MySQLOrderRepository) SoftDelete(ctx context.Context, q sqlx.ExecerContext, id uint64) error {
	query := `UPDATE orders SET deleted_at = CURRENT_TIMESTAMP(3) WHERE id = ? AND deleted_at IS NULL`

	result, err := q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("soft deleting order: %w", err)
	}

	return requireAffected(result, id)
}

func (r *MySQLOrderRepository) HardDelete(ctx context.Context, q sqlx.ExecerContext, id uint64) error {
	query := `DELETE FROM orders WHERE id = ? AND deleted_at IS NULL`

	result, err := q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting order: %w", err)
	}

	return requireAffected(result, id)
}

// CountActiveByStatus counts non-deleted orders per active status.
func (r *MySQLOrderRepository) CountActiveByStatus(ctx context.Context, q sqlx.QueryerContext) (map[domain.OrderStatus]int, error) {
	query := `
		SELECT status, COUNT(*) AS total
		FROM orders
		WHERE status IN (?, ?)
		  AND deleted_at IS NULL
		GROUP BY status
	`

	var rows []struct {
		Status domain.OrderStatus `db:"status"`
		Total  int                `db:"total"`
	}
	if err := sqlx.SelectContext(ctx, q, &rows, query, domain.OrderStatusPending, domain.OrderStatusReady); err != nil {
		return nil, fmt.Errorf("counting active orders: %w", err)
	}

	counts := map[domain.OrderStatus]int{
		domain.OrderStatusPending: 0,
		domain.OrderStatusReady:   0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}

	return counts, nil
}

func requireAffected(result sql.Result, id uint64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}

	return nil
}
