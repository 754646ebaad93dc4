package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"elpbot/core/logger"
)

var (
	// ErrNotConfigured is returned when no connection settings are present.
	ErrNotConfigured = errors.New("database: not configured")
	// ErrUnreachable wraps ping failures; the returned pool stays usable and reconnects lazily.
	ErrUnreachable = errors.New("database: unreachable")
)

const (
	defaultMaxConnections = 4
	pingTimeout           = 5 * time.Second
	idleConnLifetime      = 5 * time.Minute
)

func (c Config) poolSize() int {
	if c.MaxConnections > 0 {
		return c.MaxConnections
	}
	return defaultMaxConnections
}

func (c Config) logTarget() []any {
	host, port, name := c.Target()
	return []any{
		slog.String("driver", "postgres"),
		slog.String("host", host),
		slog.String("port", port),
		slog.String("db", name),
	}
}

// Connect opens and sizes the pool, then pings the server once.
// When the server does not answer the pool is still returned, together with ErrUnreachable.
func Connect(cfg Config) (*sqlx.DB, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	db, err := sqlx.Open("postgres", cfg.URL())
	if err != nil {
		logger.DB.Error("db open failed", append(cfg.logTarget(),
			slog.String("event", "db.connect"),
			slog.String("err", err.Error()),
		)...)
		return nil, fmt.Errorf("db open: %w", err)
	}
	size := cfg.poolSize()
	db.SetMaxOpenConns(size)
	db.SetMaxIdleConns(size)
	db.SetConnMaxIdleTime(idleConnLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	start := time.Now()
	if err := db.PingContext(ctx); err != nil {
		logger.DB.Error("db ping failed", append(cfg.logTarget(),
			slog.String("event", "db.ping"),
			slog.String("status", "fail"),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)...)
		return db, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	logger.DB.Info("db connected", append(cfg.logTarget(),
		slog.String("event", "db.connect"),
		slog.String("status", "ok"),
		slog.Int("pool_open", size),
		slog.Duration("duration", logger.Took(start)),
	)...)
	return db, nil
}
