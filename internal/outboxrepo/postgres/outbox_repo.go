// Package postgres is the Postgres implementation of
// outboxrepo.Repository: a FOR UPDATE SKIP LOCKED select ordered by
// (created_at, id), a RowsAffected check on MarkPublished, and
// exposing the aggregate_id column the relay needs for per-aggregate
// partition keying.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"ordertx/internal/domain"
)

type repo struct{}

// New returns a Postgres-backed outboxrepo.Repository.
func New() *repo {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, q domain.Querier, rec *domain.OutboxRecord) error {
	const query = `
		INSERT INTO outbox (event_id, aggregate_type, aggregate_id, event_type, payload, published, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	return q.QueryRowContext(ctx, query,
		rec.EventID, rec.AggregateType, rec.AggregateID, rec.EventType, rec.Payload, rec.Published, rec.CreatedAt,
	).Scan(&rec.ID)
}

func (r *repo) FetchPendingBatch(ctx context.Context, tx *sql.Tx, limit int) ([]domain.OutboxRecord, error) {
	const query = `
		SELECT id, event_id, aggregate_type, aggregate_id, event_type, payload, published, published_at, created_at
		FROM outbox
		WHERE published = false
		ORDER BY created_at ASC, id ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := tx.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending outbox batch: %w", err)
	}
	defer rows.Close()

	var out []domain.OutboxRecord
	for rows.Next() {
		var rec domain.OutboxRecord
		var publishedAt sql.NullTime
		if err := rows.Scan(
			&rec.ID, &rec.EventID, &rec.AggregateType, &rec.AggregateID, &rec.EventType,
			&rec.Payload, &rec.Published, &publishedAt, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		if publishedAt.Valid {
			rec.PublishedAt = &publishedAt.Time
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}
	return out, nil
}

func (r *repo) MarkPublished(ctx context.Context, q domain.Querier, id int64) error {
	const query = `
		UPDATE outbox
		SET published = true, published_at = now()
		WHERE id = $1
	`
	res, err := q.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark outbox row %d published: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected marking outbox row %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("outbox row %d not found", id)
	}
	return nil
}
