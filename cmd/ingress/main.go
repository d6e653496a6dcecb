package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"ordertx/internal/config"
	"ordertx/internal/ingress"
	"ordertx/internal/logging"
	"ordertx/internal/orderrepo/postgres"
	outboxpostgres "ordertx/internal/outboxrepo/postgres"
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
	appLogger.Info("ingress starting")

	db, err := store.ConnectWithRetry(cfg.DB, 10, 5*time.Second, func(attempt int, err error) {
		appLogger.Warn("database connection attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	})
	if err != nil {
		appLogger.Fatal("could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("connected to database")

	m, err := migrate.New("file://migrations", cfg.MigrationDSN())
	if err != nil {
		appLogger.Fatal("failed to create migrate instance", zap.Error(err))
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		appLogger.Fatal("failed to run database migrations", zap.Error(err))
	}
	appLogger.Info("database migrations complete")

	service := ingress.New(db, postgres.New(), outboxpostgres.New())
	router := ingress.NewRouter(service, appLogger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("http server failed", zap.Error(err))
		}
	}()
	appLogger.Info("ingress listening", zap.String("address", server.Addr))

	<-sigChan

	appLogger.Info("ingress shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("graceful shutdown failed", zap.Error(err))
	}
	appLogger.Info("ingress stopped")
}
