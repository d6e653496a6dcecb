// Package config loads process configuration from the environment using
// typed getEnvOrDefault / getEnvAsInt / getEnvAsMillis helpers, no config
// library.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ordertx/internal/store"
)

// Config holds the tunables named in the external interface table, plus
// the worker-concurrency and metrics-listen additions this implementation
// needs that the distilled interface left unstated. The database
// connection is built from DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME
// and DB_SSLMODE; a single DB_DSN connection string is not read.
type Config struct {
	DB store.DBConfig

	BrokerAddr []string
	Topic      string
	GroupID    string

	AppPort int

	PollInterval time.Duration
	BatchSize    int

	MaxRetries      int
	RetryBackoff    time.Duration
	MetricsInterval time.Duration

	WorkerConcurrency int
	MetricsAddr       string
}

// Load reads Config from the environment, applying the defaults named in
// the external interface table.
func Load() *Config {
	cfg := &Config{}

	cfg.DB = store.DBConfig{
		Host:     getEnvOrDefault("DB_HOST", "localhost"),
		Port:     getEnvAsInt("DB_PORT", 5432),
		User:     getEnvOrDefault("DB_USER", "ordertx"),
		Password: getEnvOrDefault("DB_PASSWORD", "ordertx"),
		DBName:   getEnvOrDefault("DB_NAME", "ordertx"),
		SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
	}

	cfg.BrokerAddr = strings.Split(getEnvOrDefault("BROKER_ADDR", "localhost:9092"), ",")
	cfg.Topic = getEnvOrDefault("BROKER_TOPIC", "order-events")
	cfg.GroupID = getEnvOrDefault("WORKER_GROUP_ID", "payment-group")

	cfg.AppPort = getEnvAsInt("APP_PORT", 3000)

	cfg.PollInterval = getEnvAsMillis("POLL_INTERVAL_MS", 1000)
	cfg.BatchSize = getEnvAsInt("BATCH_SIZE", 10)

	cfg.MaxRetries = getEnvAsInt("MAX_RETRIES", 3)
	cfg.RetryBackoff = getEnvAsMillis("RETRY_BACKOFF_MS", 1000)
	cfg.MetricsInterval = getEnvAsMillis("METRICS_INTERVAL_MS", 10000)

	cfg.WorkerConcurrency = getEnvAsInt("WORKER_CONCURRENCY", 4)
	cfg.MetricsAddr = getEnvOrDefault("METRICS_ADDR", ":2112")

	return cfg
}

// MigrationDSN returns the connection string golang-migrate's postgres
// driver expects.
func (c *Config) MigrationDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.DBName, c.DB.SSLMode)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnvOrDefault(key, strconv.Itoa(defaultValue))
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsMillis reads key as an integer count of milliseconds, matching
// the _MS-suffixed option names in the external interface table.
func getEnvAsMillis(key string, defaultMillis int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultMillis)) * time.Millisecond
}
