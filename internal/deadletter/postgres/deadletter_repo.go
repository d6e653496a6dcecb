// Package postgres is the Postgres implementation of
// deadletter.Repository, grounded on the same ON CONFLICT DO NOTHING
// idempotent-insert style as dedup/postgres.
package postgres

import (
	"context"
	"fmt"

	"ordertx/internal/domain"
)

type repo struct{}

// New returns a Postgres-backed deadletter.Repository.
func New() *repo {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, q domain.Querier, rec domain.DeadLetterRecord) error {
	const query = `
		INSERT INTO dead_letter_events (event_id, event_type, aggregate_id, payload, failed_at, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING
	`
	_, err := q.ExecContext(ctx, query, rec.EventID, rec.EventType, rec.AggregateID, rec.Payload, rec.FailedAt, rec.Reason)
	if err != nil {
		return fmt.Errorf("insert dead letter event %s: %w", rec.EventID, err)
	}
	return nil
}
