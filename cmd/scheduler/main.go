// Package main implements the task scheduler. It publishes periodic tasks
// to the broker; a worker executes them.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/phrazzld/spimex-api/internal/cache"
	"github.com/phrazzld/spimex-api/internal/config"
	"github.com/phrazzld/spimex-api/internal/platform/logger"
	"github.com/phrazzld/spimex-api/internal/task"
)

// CLI is the command line of the scheduler binary.
type CLI struct {
	LogLevel string `help:"Override the configured log level (debug, info, warn, error)."`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("scheduler"),
		kong.Description("Publishes periodic tasks to the broker."),
	)
	kctx.FatalIfErrorf(run(cli))
}

func run(cli CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	level := cfg.Server.LogLevel
	if cli.LogLevel != "" {
		level = cli.LogLevel
	}
	log := logger.Setup(level).With(slog.String("process", "scheduler"))

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("invalid scheduler timezone %q: %w", cfg.Scheduler.Timezone, err)
	}

	brokerClient, err := cache.NewRedisClient(ctx, cfg.Redis.BrokerURL())
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	defer func() { _ = brokerClient.Close() }()

	backendClient, err := cache.NewRedisClient(ctx, cfg.Redis.BackendURL())
	if err != nil {
		return fmt.Errorf("failed to connect to result backend: %w", err)
	}
	defer func() { _ = backendClient.Close() }()

	publisher := task.NewPublisher(
		task.NewRedisBroker(brokerClient, task.DefaultQueueKey),
		task.NewRedisResultBackend(backendClient, cfg.Worker.ResultTTL),
		log,
	)

	scheduler := task.NewScheduler(publisher, loc, log)
	if err := scheduler.Add(task.Entry{
		Name:    task.ResetCacheTask,
		Spec:    cfg.Scheduler.ResetCacheSpec,
		Expires: cfg.Scheduler.ResetCacheExpires,
	}); err != nil {
		return err
	}
	scheduler.Start()

	<-ctx.Done()
	log.Info("shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return scheduler.Stop(stopCtx)
}
