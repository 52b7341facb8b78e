// pkg/db/postgres.go
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// Config holds database connection configuration. Zero pool settings fall
// back to the defaults below.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxLifetime = 5 * time.Minute

	pingAttempts = 5
	pingWait     = 2 * time.Second
)

// DSN renders the lib/pq keyword/value connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// NewPostgresDB opens a pooled sqlx handle and waits for the server to answer,
// retrying the ping a few times so the API can start alongside its database.
func NewPostgresDB(ctx context.Context, cfg Config, logger *slog.Logger) (*sqlx.DB, error) {
	conn, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open PostgreSQL: %w", err)
	}
	conn.SetMaxOpenConns(orDefault(cfg.MaxOpenConns, defaultMaxOpenConns))
	conn.SetMaxIdleConns(orDefault(cfg.MaxIdleConns, defaultMaxIdleConns))
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = defaultConnMaxLifetime
	}
	conn.SetConnMaxLifetime(lifetime)

	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return conn, nil
		}
		if attempt == pingAttempts {
			break
		}
		logger.Warn("Waiting for PostgreSQL", "attempt", attempt, "of", pingAttempts, "error", err)
		select {
		case <-ctx.Done():
			conn.Close()
			return nil, ctx.Err()
		case <-time.After(pingWait):
		}
	}
	conn.Close()
	return nil, fmt.Errorf("ping PostgreSQL after %d attempts: %w", pingAttempts, err)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
