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

type MySQLSequenceRepository struct{}

func NewMySQLSequenceRepository() *MySQLSequenceRepository {
	return &MySQLSequenceRepository{}
}

// AllocateNext locks the counter row, advances it by one and returns the new
// value. q must be a transaction that also carries the order insert, so the
// lock is held until both commit or roll back together.
func (r *MySQLSequenceRepository) AllocateNext(ctx context.Context, q sqlx.ExtContext) (int64, error) {
	var current int64
	err := sqlx.GetContext(ctx, q, &current,
		`SELECT current_number FROM order_sequence WHERE id = ? FOR UPDATE`,
		domain.SequenceCounterID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperrors.NewInternalError("order sequence counter is not initialized", err)
	}
	if err != nil {
		return 0, fmt.Errorf("locking order sequence: %w", err)
	}

	next := current + 1

	result, err := q.ExecContext(ctx,
		`UPDATE order_sequence SET current_number = ? WHERE id = ?`,
		next, domain.SequenceCounterID,
	)
	if err != nil {
		return 0, fmt.Errorf("advancing order sequence: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected != 1 {
		return 0, apperrors.NewInternalError(fmt.Sprintf("order sequence update touched %d rows", rowsAffected), nil)
	}

	return next, nil
}

func (r *MySQLSequenceRepository) Current(ctx context.Context, q sqlx.QueryerContext) (int64, error) {
	var counter domain.SequenceCounter
	err := sqlx.GetContext(ctx, q, &counter,
		`SELECT id, current_number FROM order_sequence WHERE id = ?`,
		domain.SequenceCounterID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperrors.NewInternalError("order sequence counter is not initialized", err)
	}
	if err != nil {
		return 0, fmt.Errorf("reading order sequence: %w", err)
	}

	return counter.CurrentNumber, nil
}
