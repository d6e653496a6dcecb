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
	"ordertx/internal/logging"
	"ordertx/internal/metrics"
	outboxpostgres "ordertx/internal/outboxrepo/postgres"
	"ordertx/internal/relay"
	"ordertx/internal/store"
)

func main() {
	cfg := config.Load()

	appLogger, err := logging.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()
	appLogger.Info("relay starting")

	db, err := store.ConnectWithRetry(cfg.DB, 10, 5*time.Second, func(attempt int, err error) {
		appLogger.Warn("database connection attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	})
	if err != nil {
		appLogger.Fatal("could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("connected to database")

	producer := broker.NewProducer(cfg.BrokerAddr, appLogger.With(zap.String("component", "producer")))
	defer func() {
		if err := producer.Close(); err != nil {
			appLogger.Error("error closing producer", zap.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	relayMetrics := metrics.NewRelayMetrics(registry)

	r := relay.New(db, outboxpostgres.New(), producer, relayMetrics, appLogger.With(zap.String("component", "relay")), relay.Config{
		Topic:        cfg.Topic,
		PollInterval: cfg.PollInterval,
		BatchSize:    cfg.BatchSize,
		RetryBackoff: cfg.RetryBackoff,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := metrics.Serve(ctx, cfg.MetricsAddr, registry); err != nil {
			appLogger.Error("metrics server failed", zap.Error(err))
		}
	}()
	appLogger.Info("relay metrics listening", zap.String("address", cfg.MetricsAddr))

	go r.Run(ctx)
	appLogger.Info("outbox relay started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("relay shutting down")
	cancel()
	time.Sleep(500 * time.Millisecond)
	appLogger.Info("relay stopped")
}
