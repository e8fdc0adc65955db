// Package main implements the background task worker. It consumes tasks
// from the Redis broker database and records results in the backend
// database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/phrazzld/spimex-api/internal/cache"
	"github.com/phrazzld/spimex-api/internal/config"
	"github.com/phrazzld/spimex-api/internal/platform/logger"
	"github.com/phrazzld/spimex-api/internal/redact"
	"github.com/phrazzld/spimex-api/internal/task"
	"github.com/redis/go-redis/v9"
)

// CLI is the command line of the worker binary.
type CLI struct {
	LogLevel    string `help:"Override the configured log level (debug, info, warn, error)."`
	Concurrency int    `help:"Override the configured number of concurrent tasks."`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("worker"),
		kong.Description("Runs background tasks published to the broker."),
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
	log := logger.Setup(level).With(slog.String("process", "worker"))

	if cli.Concurrency > 0 {
		cfg.Worker.Concurrency = cli.Concurrency
	}

	clients, err := connect(ctx, log, cfg.Redis.CacheURL(), cfg.Redis.BrokerURL(), cfg.Redis.BackendURL())
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range clients {
			_ = c.Close()
		}
	}()
	cacheClient, brokerClient, backendClient := clients[0], clients[1], clients[2]

	registry := task.NewRegistry()
	registry.Register(task.ResetCacheTask,
		task.NewResetCacheHandler(cache.NewRedisCache(cacheClient, log), log, nil))

	runner := task.NewTaskRunner(
		task.NewRedisBroker(brokerClient, task.DefaultQueueKey),
		task.NewRedisResultBackend(backendClient, cfg.Worker.ResultTTL),
		registry,
		task.TaskRunnerConfig{
			WorkerCount: cfg.Worker.Concurrency,
			QueueSize:   cfg.Worker.QueueSize,
			PollTimeout: cfg.Worker.PollTimeout,
		},
		log,
	)
	runner.Start()

	<-ctx.Done()
	log.Info("shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return runner.Stop(stopCtx)
}

// connect opens one client per logical database, closing the ones already
// opened if a later connection fails.
func connect(ctx context.Context, log *slog.Logger, urls ...string) ([]*redis.Client, error) {
	clients := make([]*redis.Client, 0, len(urls))
	for _, u := range urls {
		c, err := cache.NewRedisClient(ctx, u)
		if err != nil {
			for _, opened := range clients {
				_ = opened.Close()
			}
			return nil, fmt.Errorf("failed to connect to %s: %w", redact.URL(u), err)
		}
		log.Info("redis connection established", "url", redact.URL(u))
		clients = append(clients, c)
	}
	return clients, nil
}
