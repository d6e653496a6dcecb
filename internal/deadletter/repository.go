// Package deadletter persists DeadLetterRecord, the sink for events that
// exhausted retry.
package deadletter

import (
	"context"

	"ordertx/internal/domain"
)

// Repository is the persistence boundary for DeadLetterRecord.
type Repository interface {
	// Insert records a poison event. It is idempotent on event_id: a
	// redelivered event that is dead-lettered twice writes once.
	Insert(ctx context.Context, q domain.Querier, rec domain.DeadLetterRecord) error
}
