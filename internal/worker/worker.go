// Package worker implements the order-events consumer: a broker consumer
// that applies idempotent, versioned order state transitions with bounded
// retry and a dead-letter path. The state machine is a conditional-update
// sequence; dispatch is by event type, with unhandled types acknowledged
// without effect.
package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"ordertx/internal/dedup"
	"ordertx/internal/deadletter"
	"ordertx/internal/domain"
	"ordertx/internal/metrics"
	"ordertx/internal/orderrepo"
	"ordertx/internal/outboxrepo"
	"ordertx/internal/payment"
)

// Config holds the worker's tunables, sourced from internal/config.
type Config struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

// Worker consumes order-events and drives the Order state machine.
type Worker struct {
	db       *sql.DB
	orders   orderrepo.Repository
	outbox   outboxrepo.Repository
	dedup    dedup.Repository
	dlq      deadletter.Repository
	payments payment.Service
	metrics  *metrics.WorkerMetrics
	counters *Counters
	logger   *zap.Logger
	cfg      Config
}

// New constructs a Worker.
func New(
	db *sql.DB,
	orders orderrepo.Repository,
	outbox outboxrepo.Repository,
	dedupRepo dedup.Repository,
	dlq deadletter.Repository,
	payments payment.Service,
	m *metrics.WorkerMetrics,
	counters *Counters,
	logger *zap.Logger,
	cfg Config,
) *Worker {
	return &Worker{
		db: db, orders: orders, outbox: outbox, dedup: dedupRepo, dlq: dlq,
		payments: payments, metrics: m, counters: counters, logger: logger, cfg: cfg,
	}
}

// Handle is the broker.MessageHandler entry point: decode the envelope,
// dispatch on event type, and run the bounded retry loop around the
// handler for OrderCreated. It always returns nil unless ctx is cancelled
// mid-attempt, so the consumer commits the offset only after the handler
// returns, whether the outcome was a success, a skip, or a dead-letter —
// retry and dead-letter both resolve to "commit", only the failure class
// differs.
func (w *Worker) Handle(ctx context.Context, msg kafka.Message) error {
	var envelope domain.Envelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		w.logger.Error("malformed envelope, skipping", zap.Error(err))
		return nil
	}

	if envelope.EventType != domain.EventTypeOrderCreated {
		w.logger.Debug("event type not handled, acknowledging without effect",
			zap.String("eventType", envelope.EventType), zap.String("eventId", envelope.EventID.String()))
		return nil
	}

	w.logger.Info("event received", zap.String("eventId", envelope.EventID.String()), zap.String("aggregateId", envelope.AggregateID.String()))
	return w.runWithRetry(ctx, envelope)
}

// runWithRetry runs the handler for up to MaxRetries attempts in total,
// with a fixed, cancellable back-off between attempts, then dead-letters
// the event.
func (w *Worker) runWithRetry(ctx context.Context, envelope domain.Envelope) error {
	var lastErr error
	for attempt := 1; attempt <= w.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			w.metrics.EventsRetried.Inc()
			w.counters.retriedEvents.Add(1)
			w.logger.Info("retry scheduled", zap.String("eventId", envelope.EventID.String()), zap.Int("attempt", attempt))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.cfg.RetryBackoff):
			}
		}

		err := w.handleOrderCreated(ctx, envelope)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		lastErr = err
		w.logger.Error("processing error", zap.String("eventId", envelope.EventID.String()), zap.Int("attempt", attempt), zap.Error(err))
	}

	w.deadLetter(ctx, envelope, lastErr)
	return nil
}

// deadLetter records a poison event. A failure to insert is logged, not
// retried or escalated: the event is already lost from the normal
// pipeline, and blocking the partition on a dead-letter write failure
// helps nothing.
func (w *Worker) deadLetter(ctx context.Context, envelope domain.Envelope, cause error) {
	reason := "processing failed after exhausting retries"
	if cause != nil {
		reason = cause.Error()
	}
	rec := domain.DeadLetterRecord{
		EventID:     envelope.EventID,
		EventType:   envelope.EventType,
		AggregateID: envelope.AggregateID,
		Payload:     mustMarshalEnvelope(envelope),
		FailedAt:    time.Now().UTC(),
		Reason:      reason,
	}
	if err := w.dlq.Insert(ctx, w.db, rec); err != nil {
		w.logger.Error("failed to insert dead letter record", zap.String("eventId", envelope.EventID.String()), zap.Error(err))
		return
	}
	w.metrics.DLQEvents.Inc()
	w.counters.dlqEvents.Add(1)
	w.logger.Warn("event moved to dead letter sink", zap.String("eventId", envelope.EventID.String()))
}

func mustMarshalEnvelope(envelope domain.Envelope) json.RawMessage {
	body, err := json.Marshal(envelope)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return body
}

// handleOrderCreated drives an OrderCreated event through the full
// dedup-check, state-advance, payment-call, terminal-commit sequence.
func (w *Worker) handleOrderCreated(ctx context.Context, envelope domain.Envelope) error {
	var payloadBody domain.OrderCreatedPayload
	if err := json.Unmarshal(envelope.Payload, &payloadBody); err != nil {
		return fmt.Errorf("unmarshal OrderCreated payload: %w", err)
	}

	// Dedup pre-check is advisory; the binding commit happens below,
	// inside the same transaction as the terminal state update.
	done, err := w.dedup.Exists(ctx, w.db, envelope.EventID, domain.WorkerKindPayment)
	if err != nil {
		return fmt.Errorf("dedup pre-check: %w", err)
	}
	if done {
		w.metrics.EventsDuplicate.Inc()
		w.counters.duplicatesSkipped.Add(1)
		w.logger.Info("duplicate event", zap.String("eventId", envelope.EventID.String()))
		return nil
	}

	// Advance to PAYMENT_PENDING.
	v1, advanced, err := w.orders.AdvanceToPaymentPending(ctx, w.db, envelope.AggregateID)
	if err != nil {
		return fmt.Errorf("advance to PAYMENT_PENDING: %w", err)
	}
	if !advanced {
		w.logger.Info("state conflict, order already past CREATED", zap.String("orderId", envelope.AggregateID.String()))
		return nil
	}
	w.logger.Info("state change", zap.String("orderId", envelope.AggregateID.String()), zap.String("state", string(domain.OrderStatusPaymentPending)))

	// Invoke payment, outside any transaction.
	amount, err := payloadBody.AmountDecimal()
	if err != nil {
		return fmt.Errorf("parse payment amount: %w", err)
	}
	status, err := w.payments.Charge(ctx, envelope.AggregateID, amount)
	if err != nil {
		var transient *payment.TransientError
		if errors.As(err, &transient) {
			return fmt.Errorf("transient payment error: %w", err)
		}
		status = payment.StatusDeclined
	}
	w.logger.Info("payment result", zap.String("orderId", envelope.AggregateID.String()), zap.String("status", string(status)))

	terminal := domain.OrderStatusPaid
	eventType := domain.EventTypeOrderPaid
	if status != payment.StatusApproved {
		terminal = domain.OrderStatusFailed
		eventType = domain.EventTypeOrderFailed
	}

	// Commit terminal state, follow-up outbox row, and dedup key in one
	// transaction.
	return w.commitTerminal(ctx, envelope, v1, terminal, eventType)
}

func (w *Worker) commitTerminal(ctx context.Context, envelope domain.Envelope, expectedVersion int64, terminal domain.OrderStatus, eventType string) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin terminal commit transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	ok, err := w.orders.CommitTerminal(ctx, tx, envelope.AggregateID, terminal, expectedVersion)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("commit terminal state: %w", err)
	}
	if !ok {
		// Another worker instance already won this race; its commit is
		// authoritative.
		return tx.Rollback()
	}

	outRec, err := domain.NewOutboxRecord(domain.AggregateTypeOrder, envelope.AggregateID, eventType, domain.OrderTerminalPayload{OrderID: envelope.AggregateID})
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("build terminal outbox record: %w", err)
	}
	if err := w.outbox.Insert(ctx, tx, outRec); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert terminal outbox record: %w", err)
	}

	dedupKey := domain.ProcessedEventKey{
		EventID:     envelope.EventID,
		WorkerKind:  domain.WorkerKindPayment,
		ProcessedAt: time.Now().UTC(),
	}
	if err := w.dedup.Insert(ctx, tx, dedupKey); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert dedup key: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit terminal transaction: %w", err)
	}

	if terminal == domain.OrderStatusPaid {
		w.metrics.PaymentsSuccess.Inc()
		w.counters.paymentsSuccess.Add(1)
	} else {
		w.metrics.PaymentsFailed.Inc()
		w.counters.paymentsFailed.Add(1)
	}
	w.metrics.EventsProcessed.Inc()
	w.counters.eventsProcessed.Add(1)
	return nil
}
