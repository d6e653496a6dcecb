// Package store owns the database connection lifecycle and the
// WithTransaction helper, per the "database-client
// abstraction" design note: callers get query/withTransaction, never a bare
// connection handle they could leak past the scope that acquired it.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// DBConfig holds the connection parameters for the primary Postgres
// database.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c DBConfig) dsn() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// New opens a connection pool to Postgres and verifies it with a Ping.
func New(cfg DBConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// ConnectWithRetry retries New until it succeeds or attempts are
// exhausted, for startup against a database that may not be ready the
// instant its container starts.
func ConnectWithRetry(cfg DBConfig, attempts int, delay time.Duration, onRetry func(attempt int, err error)) (*sql.DB, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		db, err := New(cfg)
		if err == nil {
			return db, nil
		}
		lastErr = err
		if onRetry != nil {
			onRetry(i+1, err)
		}
		time.Sleep(delay)
	}
	return nil, fmt.Errorf("connect to postgres after %d attempts: %w", attempts, lastErr)
}
