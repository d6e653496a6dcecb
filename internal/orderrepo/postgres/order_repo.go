// Package postgres is the Postgres implementation of orderrepo.Repository:
// plain SQL, errors.Is(sql.ErrNoRows) mapping, RowsAffected() checks on
// every conditional update.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ordertx/internal/domain"
	"ordertx/internal/orderrepo"
)

type repo struct{}

// New returns a Postgres-backed orderrepo.Repository.
func New() orderrepo.Repository {
	return &repo{}
}

func (r *repo) GetByID(ctx context.Context, q domain.Querier, id uuid.UUID) (*domain.Order, error) {
	const query = `
		SELECT id, user_id, amount, status, version, created_at, updated_at
		FROM orders
		WHERE id = $1
	`
	order := &domain.Order{}
	var amount string
	err := q.QueryRowContext(ctx, query, id).Scan(
		&order.ID, &order.UserID, &amount, &order.Status, &order.Version,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	order.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount for order %s: %w", id, err)
	}
	return order, nil
}

func (r *repo) Insert(ctx context.Context, q domain.Querier, order *domain.Order) error {
	const query = `
		INSERT INTO orders (id, user_id, amount, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.ExecContext(ctx, query,
		order.ID, order.UserID, order.Amount.StringFixed(2), order.Status, order.Version,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order %s: %w", order.ID, err)
	}
	return nil
}

func (r *repo) AdvanceToPaymentPending(ctx context.Context, q domain.Querier, orderID uuid.UUID) (int64, bool, error) {
	const query = `
		UPDATE orders
		SET status = $1, version = version + 1, updated_at = now()
		WHERE id = $2 AND status = $3
		RETURNING version
	`
	var version int64
	err := q.QueryRowContext(ctx, query, domain.OrderStatusPaymentPending, orderID, domain.OrderStatusCreated).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("advance order %s to PAYMENT_PENDING: %w", orderID, err)
	}
	return version, true, nil
}

func (r *repo) CommitTerminal(ctx context.Context, q domain.Querier, orderID uuid.UUID, status domain.OrderStatus, expectedVersion int64) (bool, error) {
	const query = `
		UPDATE orders
		SET status = $1, version = version + 1, updated_at = now()
		WHERE id = $2 AND status = $3 AND version = $4
	`
	res, err := q.ExecContext(ctx, query, status, orderID, domain.OrderStatusPaymentPending, expectedVersion)
	if err != nil {
		return false, fmt.Errorf("commit terminal state for order %s: %w", orderID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected for order %s terminal commit: %w", orderID, err)
	}
	return n == 1, nil
}
