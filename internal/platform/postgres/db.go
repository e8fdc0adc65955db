package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/phrazzld/spimex-api/internal/config"
	"github.com/phrazzld/spimex-api/internal/redact"
)

// DefaultReadyTimeout bounds how long Open waits for the server to accept
// connections.
const DefaultReadyTimeout = 60 * time.Second

// Open establishes a connection pool to the database described by cfg and
// waits, with exponential backoff, until the server answers a ping.
// Containers start in parallel, so the first pings routinely fail.
func Open(ctx context.Context, cfg config.PostgresConfig, logger *slog.Logger) (*sql.DB, error) {
	return OpenURL(ctx, cfg.URL(), cfg.MaxOpenConns, cfg.MaxIdleConns, DefaultReadyTimeout, logger)
}

// OpenURL is Open with explicit pool limits and readiness timeout.
func OpenURL(
	ctx context.Context,
	dsn string,
	maxOpen, maxIdle int,
	readyTimeout time.Duration,
	logger *slog.Logger,
) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := WaitReady(ctx, db, readyTimeout, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("database connection established", "url", redact.URL(dsn))
	return db, nil
}

// WaitReady pings db until it answers or timeout elapses.
func WaitReady(ctx context.Context, db *sql.DB, timeout time.Duration, logger *slog.Logger) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = timeout

	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	}

	notify := func(err error, next time.Duration) {
		logger.Warn("database not ready, retrying",
			"error", redact.Error(err),
			"retry_in", next.String())
	}

	if err := backoff.RetryNotify(ping, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}
