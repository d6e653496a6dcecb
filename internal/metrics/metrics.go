// Package metrics exposes Prometheus counters for the relay and worker:
// a per-process Registry, counters registered at construction, and a
// promhttp.Handler served on /metrics.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RelayMetrics are the counters the relay updates each batch.
type RelayMetrics struct {
	Published     prometheus.Counter
	PublishErrors prometheus.Counter
}

// NewRelayMetrics registers and returns the relay's counters against reg.
func NewRelayMetrics(reg *prometheus.Registry) *RelayMetrics {
	m := &RelayMetrics{
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "outbox_published_total",
			Help: "Total number of outbox rows published to the broker.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "outbox_publish_errors_total",
			Help: "Total number of outbox batches that failed to publish.",
		}),
	}
	reg.MustRegister(m.Published, m.PublishErrors)
	return m
}

// WorkerMetrics are the counters the event worker updates per event.
type WorkerMetrics struct {
	EventsProcessed prometheus.Counter
	EventsDuplicate prometheus.Counter
	PaymentsSuccess prometheus.Counter
	PaymentsFailed  prometheus.Counter
	EventsRetried   prometheus.Counter
	DLQEvents       prometheus.Counter
}

// NewWorkerMetrics registers and returns the worker's counters against reg.
func NewWorkerMetrics(reg *prometheus.Registry) *WorkerMetrics {
	m := &WorkerMetrics{
		EventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "events_processed_total",
			Help: "Total number of OrderCreated events processed to a terminal outcome.",
		}),
		EventsDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "events_duplicate_total",
			Help: "Total number of events skipped because they were already processed.",
		}),
		PaymentsSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payments_success_total",
			Help: "Total number of payments that succeeded.",
		}),
		PaymentsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payments_failed_total",
			Help: "Total number of payments that failed (non-transient).",
		}),
		EventsRetried: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "events_retried_total",
			Help: "Total number of retry attempts after a failed attempt.",
		}),
		DLQEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dlq_events_total",
			Help: "Total number of events moved to the dead-letter sink.",
		}),
	}
	reg.MustRegister(m.EventsProcessed, m.EventsDuplicate, m.PaymentsSuccess, m.PaymentsFailed, m.EventsRetried, m.DLQEvents)
	return m
}

// Serve starts a /metrics endpoint on addr and returns once ctx is
// cancelled and the server has shut down.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
