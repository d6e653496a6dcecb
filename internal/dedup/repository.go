// Package dedup persists ProcessedEventKey, the ledger the worker checks
// before handling an event and writes to once it commits, so redelivery
// of an already-handled event is a no-op.
package dedup

import (
	"context"

	"github.com/google/uuid"

	"ordertx/internal/domain"
)

// Repository is the persistence boundary for ProcessedEventKey.
type Repository interface {
	// Exists reports whether (eventID, workerKind) has already been
	// recorded as processed.
	Exists(ctx context.Context, q domain.Querier, eventID uuid.UUID, workerKind string) (bool, error)

	// Insert records (eventID, workerKind) as processed. It is idempotent:
	// inserting the same key twice is not an error.
	Insert(ctx context.Context, q domain.Querier, key domain.ProcessedEventKey) error
}
