// Package postgres is the Postgres implementation of dedup.Repository:
// an ON CONFLICT DO NOTHING idempotent insert against a
// (event_id, worker_kind) unique key.
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"ordertx/internal/domain"
)

type repo struct{}

// New returns a Postgres-backed dedup.Repository.
func New() *repo {
	return &repo{}
}

func (r *repo) Exists(ctx context.Context, q domain.Querier, eventID uuid.UUID, workerKind string) (bool, error) {
	const query = `
		SELECT EXISTS(
			SELECT 1 FROM processed_events WHERE event_id = $1 AND worker_kind = $2
		)
	`
	var exists bool
	if err := q.QueryRowContext(ctx, query, eventID, workerKind).Scan(&exists); err != nil {
		return false, fmt.Errorf("check processed event %s/%s: %w", eventID, workerKind, err)
	}
	return exists, nil
}

func (r *repo) Insert(ctx context.Context, q domain.Querier, key domain.ProcessedEventKey) error {
	const query = `
		INSERT INTO processed_events (event_id, worker_kind, processed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, worker_kind) DO NOTHING
	`
	_, err := q.ExecContext(ctx, query, key.EventID, key.WorkerKind, key.ProcessedAt)
	if err != nil {
		return fmt.Errorf("insert processed event %s/%s: %w", key.EventID, key.WorkerKind, err)
	}
	return nil
}
