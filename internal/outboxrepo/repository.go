// Package outboxrepo persists OutboxRecord, the table the relay drains.
package outboxrepo

import (
	"context"
	"database/sql"

	"ordertx/internal/domain"
)

// Repository is the persistence boundary for OutboxRecord.
type Repository interface {
	// Insert writes a pending outbox row. Callers insert the aggregate
	// mutation in the same transaction.
	Insert(ctx context.Context, q domain.Querier, rec *domain.OutboxRecord) error

	// FetchPendingBatch selects up to limit unpublished rows ordered by
	// (created_at, id) — the relay's publication order — locking them FOR
	// UPDATE SKIP LOCKED so a second relay instance cannot double-claim a
	// row mid-batch.
	FetchPendingBatch(ctx context.Context, tx *sql.Tx, limit int) ([]domain.OutboxRecord, error)

	// MarkPublished sets published=true and published_at=now().
	MarkPublished(ctx context.Context, q domain.Querier, id int64) error
}
