package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phrazzld/spimex-api/internal/platform/postgres"
	"github.com/phrazzld/spimex-api/internal/scraper"
)

// ServeCmd runs the HTTP API until SIGINT or SIGTERM.
type ServeCmd struct {
	Migrate bool `help:"Apply pending migrations before serving."`
}

// Run implements the serve command.
func (c *ServeCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := bootstrap(g)
	if err != nil {
		return err
	}

	db, err := postgres.Open(ctx, cfg.Postgres, log)
	if err != nil {
		return err
	}

	if c.Migrate {
		if err := postgres.Migrate(ctx, db, "up", log); err != nil {
			_ = db.Close()
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer app.cleanup()

	return app.Run(ctx)
}

// MigrateCmd applies or inspects the schema.
type MigrateCmd struct {
	Command string `arg:"" optional:"" default:"up" enum:"up,down,reset,status,version" help:"Migration command (up, down, reset, status, version)."`
}

// Run implements the migrate command.
func (c *MigrateCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := bootstrap(g)
	if err != nil {
		return err
	}

	db, err := postgres.Open(ctx, cfg.Postgres, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return postgres.Migrate(ctx, db, c.Command, log)
}

// ScrapeCmd runs the scraper once and waits for it to finish.
type ScrapeCmd struct{}

// Run implements the scrape command.
func (c *ScrapeCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := bootstrap(g)
	if err != nil {
		return err
	}

	db, err := postgres.Open(ctx, cfg.Postgres, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	s := scraper.New(cfg.Scraper, postgres.NewPostgresTradingResultStore(db, log), log)
	report, err := s.Run(ctx)
	if err != nil {
		return fmt.Errorf("scrape failed: %w", err)
	}

	log.Info("scrape finished",
		"links", report.Links,
		"files", report.Files,
		"rows", report.Rows,
		"elapsed", report.Elapsed.String())
	return nil
}

// HealthcheckCmd probes GET /health/ and fails unless it answers 200.
// Container health checks run it since the runtime image has no curl.
type HealthcheckCmd struct {
	URL     string        `default:"http://localhost:8000/health/" help:"Health endpoint to probe."`
	Timeout time.Duration `default:"3s" help:"Request timeout."`
}

// Run implements the healthcheck command.
func (c *HealthcheckCmd) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return fmt.Errorf("invalid health URL: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health probe failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health probe returned %d", resp.StatusCode)
	}
	return nil
}
