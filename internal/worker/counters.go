package worker

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Counters replaces unsynchronized globals with atomic fields: every
// increment is an atomic op, so any goroutine in the worker pool can
// record an outcome without a shared owning task. Snapshot loads each
// field atomically, one after another; the six values are not read as a
// single atomic unit.
type Counters struct {
	eventsProcessed  atomic.Int64
	duplicatesSkipped atomic.Int64
	paymentsSuccess  atomic.Int64
	paymentsFailed   atomic.Int64
	retriedEvents    atomic.Int64
	dlqEvents        atomic.Int64
}

// CounterSnapshot is a point-in-time read of Counters.
type CounterSnapshot struct {
	EventsProcessed   int64
	DuplicatesSkipped int64
	PaymentsSuccess   int64
	PaymentsFailed    int64
	RetriedEvents     int64
	DLQEvents         int64
}

func (c *Counters) Snapshot() CounterSnapshot {
	return CounterSnapshot{
		EventsProcessed:   c.eventsProcessed.Load(),
		DuplicatesSkipped: c.duplicatesSkipped.Load(),
		PaymentsSuccess:   c.paymentsSuccess.Load(),
		PaymentsFailed:    c.paymentsFailed.Load(),
		RetriedEvents:     c.retriedEvents.Load(),
		DLQEvents:         c.dlqEvents.Load(),
	}
}

// RunSnapshotLoop logs a METRICS record every interval until ctx is
// cancelled.
func RunSnapshotLoop(ctx context.Context, counters *Counters, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := counters.Snapshot()
			logger.Info("metrics",
				zap.Int64("eventsProcessed", s.EventsProcessed),
				zap.Int64("duplicatesSkipped", s.DuplicatesSkipped),
				zap.Int64("paymentsSuccess", s.PaymentsSuccess),
				zap.Int64("paymentsFailed", s.PaymentsFailed),
				zap.Int64("retriedEvents", s.RetriedEvents),
				zap.Int64("dlqEvents", s.DLQEvents),
			)
		}
	}
}
