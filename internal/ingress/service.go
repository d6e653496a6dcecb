// Package ingress implements order submission: insert the Order and its
// OrderCreated outbox row atomically.
package ingress

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ordertx/internal/domain"
	"ordertx/internal/orderrepo"
	"ordertx/internal/outboxrepo"
	"ordertx/internal/store"
)

// Service implements submitOrder.
type Service struct {
	db     *sql.DB
	orders orderrepo.Repository
	outbox outboxrepo.Repository
}

// New constructs a Service.
func New(db *sql.DB, orders orderrepo.Repository, outbox outboxrepo.Repository) *Service {
	return &Service{db: db, orders: orders, outbox: outbox}
}

// SubmitOrder inserts a new Order and its OrderCreated outbox row in one
// transaction. A validation error from domain.NewOrder is returned as is,
// before any transaction starts; any error inside the transaction rolls
// back both inserts and is wrapped in domain.ErrIngressFailed.
func (s *Service) SubmitOrder(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*domain.Order, error) {
	order, err := domain.NewOrder(userID, amount)
	if err != nil {
		return nil, err
	}

	err = store.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.orders.Insert(ctx, tx, order); err != nil {
			return err
		}
		outRec, err := domain.NewOutboxRecord(domain.AggregateTypeOrder, order.ID, domain.EventTypeOrderCreated, domain.OrderCreatedPayload{
			OrderID: order.ID,
			UserID:  order.UserID,
			Amount:  order.Amount.StringFixed(2),
		})
		if err != nil {
			return err
		}
		return s.outbox.Insert(ctx, tx, outRec)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIngressFailed, err)
	}
	return order, nil
}
