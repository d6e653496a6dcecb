// Package relay implements the outbox relay: a poll loop that drains
// unpublished outbox rows to the broker, marking each published in the
// same transaction it was claimed in. It batches claims under a single
// FOR UPDATE SKIP LOCKED transaction so two relay instances can run
// concurrently without double-publishing.
package relay

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ordertx/internal/broker"
	"ordertx/internal/metrics"
	"ordertx/internal/outboxrepo"
)

// Config holds the relay's tunables, sourced from internal/config.
type Config struct {
	Topic        string
	PollInterval time.Duration
	BatchSize    int
	RetryBackoff time.Duration
}

// Relay drains the outbox table to the broker.
type Relay struct {
	db       *sql.DB
	outbox   outboxrepo.Repository
	producer broker.Producer
	metrics  *metrics.RelayMetrics
	logger   *zap.Logger
	cfg      Config
}

// New constructs a Relay.
func New(db *sql.DB, outbox outboxrepo.Repository, producer broker.Producer, m *metrics.RelayMetrics, logger *zap.Logger, cfg Config) *Relay {
	return &Relay{db: db, outbox: outbox, producer: producer, metrics: m, logger: logger, cfg: cfg}
}

// Run polls on a fixed interval until ctx is cancelled. Each tick drains
// up to one batch; a batch that errors backs off before the next tick
// instead of retrying immediately, so a broker outage doesn't spin the
// poll loop.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("relay stopping")
			return
		case <-ticker.C:
			if err := r.drainBatch(ctx); err != nil {
				r.logger.Error("drain batch failed", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(r.cfg.RetryBackoff):
				}
			}
		}
	}
}

// drainBatch claims up to BatchSize pending rows, publishes each to the
// broker keyed by aggregate id, and marks published rows within the same
// transaction that claimed them. A publish failure for one row rolls
// back the whole batch — every row in it stays unpublished and is
// reclaimed on the next tick, guaranteeing at-least-once delivery.
func (r *Relay) drainBatch(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin relay transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	rows, err := r.outbox.FetchPendingBatch(ctx, tx, r.cfg.BatchSize)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("fetch pending batch: %w", err)
	}
	if len(rows) == 0 {
		return tx.Rollback()
	}

	for _, row := range rows {
		payload, err := json.Marshal(row.ToEnvelope())
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("marshal envelope for outbox row %d: %w", row.ID, err)
		}

		if err := r.producer.Produce(ctx, row.AggregateID.String(), r.cfg.Topic, payload); err != nil {
			_ = tx.Rollback()
			r.metrics.PublishErrors.Inc()
			return fmt.Errorf("publish outbox row %d: %w", row.ID, err)
		}

		if err := r.outbox.MarkPublished(ctx, tx, row.ID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("mark outbox row %d published: %w", row.ID, err)
		}
		r.metrics.Published.Inc()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit relay batch: %w", err)
	}
	r.logger.Debug("relay batch published", zap.Int("count", len(rows)))
	return nil
}
