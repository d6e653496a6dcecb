package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ordertx/internal/broker"
	"ordertx/internal/config"
	"ordertx/internal/deadletter/postgres"
	dedupPostgres "ordertx/internal/dedup/postgres"
	"ordertx/internal/logging"
	"ordertx/internal/metrics"
	orderPostgres "ordertx/internal/orderrepo/postgres"
	outboxPostgres "ordertx/internal/outboxrepo/postgres"
	"ordertx/internal/payment"
	"ordertx/internal/store"
	"ordertx/internal/worker"
)

func main() {
	cfg := config.Load()

	appLogger, err := logging.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()
	appLogger.Info("worker starting")

	db, err := store.ConnectWithRetry(cfg.DB, 10, 5*time.Second, func(attempt int, err error) {
		appLogger.Warn("database connection attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	})
	if err != nil {
		appLogger.Fatal("could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("connected to database")

	registry := prometheus.NewRegistry()
	workerMetrics := metrics.NewWorkerMetrics(registry)
	counters := &worker.Counters{}

	paymentService := payment.NewSimulated(payment.DefaultSimulatedConfig, 1)

	w := worker.New(
		db,
		orderPostgres.New(),
		outboxPostgres.New(),
		dedupPostgres.New(),
		postgres.New(),
		paymentService,
		workerMetrics,
		counters,
		appLogger.With(zap.String("component", "worker")),
		worker.Config{
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := metrics.Serve(ctx, cfg.MetricsAddr, registry); err != nil {
			appLogger.Error("metrics server failed", zap.Error(err))
		}
	}()
	appLogger.Info("worker metrics listening", zap.String("address", cfg.MetricsAddr))

	go worker.RunSnapshotLoop(ctx, counters, cfg.MetricsInterval, appLogger)

	go worker.RunPool(ctx, func() broker.Consumer {
		return broker.NewConsumer(cfg.BrokerAddr, cfg.GroupID, cfg.Topic, appLogger.With(zap.String("component", "consumer")))
	}, w.Handle, cfg.WorkerConcurrency, appLogger)
	appLogger.Info("event worker started", zap.Int("concurrency", cfg.WorkerConcurrency))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("worker shutting down")
	cancel()
	time.Sleep(500 * time.Millisecond)
	appLogger.Info("worker stopped")
}
