// Package main implements the spimex-api server binary: the HTTP API plus
// the migration, one-off scrape and health probe commands.
package main

import (
	"fmt"
	"log/slog"

	"github.com/alecthomas/kong"
	"github.com/phrazzld/spimex-api/internal/config"
	"github.com/phrazzld/spimex-api/internal/platform/logger"
)

// Globals are flags shared by every command.
type Globals struct {
	LogLevel string `help:"Override the configured log level (debug, info, warn, error)." env:"LOG_LEVEL_OVERRIDE"`
}

// CLI is the command line of the server binary.
type CLI struct {
	Globals

	Serve       ServeCmd       `cmd:"" default:"withargs" help:"Serve the HTTP API."`
	Migrate     MigrateCmd     `cmd:"" help:"Run database migrations."`
	Scrape      ScrapeCmd      `cmd:"" help:"Run one scraper pass in the foreground."`
	Healthcheck HealthcheckCmd `cmd:"" help:"Probe the health endpoint of a running server."`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("server"),
		kong.Description("SPIMEX oil products trading results API."),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(kctx.Run(&cli.Globals))
}

// bootstrap loads configuration and sets up structured logging.
func bootstrap(g *Globals) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.Server.LogLevel
	if g.LogLevel != "" {
		level = g.LogLevel
	}
	log := logger.Setup(level)

	log.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", level,
		"postgres_host", cfg.Postgres.Host,
		"redis_host", cfg.Redis.Host)
	return cfg, log, nil
}
