// Package orderrepo persists the Order aggregate. Repository is the seam
// every storage-backed component is defined behind; the postgres
// implementation lives in the postgres subpackage.
package orderrepo

import (
	"context"

	"github.com/google/uuid"

	"ordertx/internal/domain"
)

// Repository is the persistence boundary for Order.
type Repository interface {
	// GetByID returns domain.ErrOrderNotFound if no row exists.
	GetByID(ctx context.Context, q domain.Querier, id uuid.UUID) (*domain.Order, error)

	// Insert writes a brand-new order row. Callers insert the matching
	// OutboxRecord in the same transaction.
	Insert(ctx context.Context, q domain.Querier, order *domain.Order) error

	// AdvanceToPaymentPending runs UPDATE ... WHERE state='CREATED'. ok is
	// false when the conditional predicate matched zero rows (already
	// advanced, or absent) — not an error, a state conflict the caller
	// tolerates.
	AdvanceToPaymentPending(ctx context.Context, q domain.Querier, orderID uuid.UUID) (version int64, ok bool, err error)

	// CommitTerminal runs the conditional update UPDATE ... WHERE
	// state='PAYMENT_PENDING' AND version=expectedVersion. ok is false
	// when the guard did not match (another worker won the race).
	CommitTerminal(ctx context.Context, q domain.Querier, orderID uuid.UUID, status domain.OrderStatus, expectedVersion int64) (ok bool, err error)
}
