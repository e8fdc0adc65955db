package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/spimex-api/internal/api"
	"github.com/phrazzld/spimex-api/internal/cache"
	"github.com/phrazzld/spimex-api/internal/config"
	"github.com/phrazzld/spimex-api/internal/events"
	"github.com/phrazzld/spimex-api/internal/platform/postgres"
	"github.com/phrazzld/spimex-api/internal/redact"
	"github.com/phrazzld/spimex-api/internal/scraper"
	"github.com/phrazzld/spimex-api/internal/service"
	"github.com/phrazzld/spimex-api/internal/task"
	"github.com/redis/go-redis/v9"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	cacheClient   *redis.Client
	brokerClient  *redis.Client
	backendClient *redis.Client

	tradingService service.TradingService
	scraper        *scraper.Scraper
}

// newApplication wires stores, cache, services and the scraper around an
// open database connection.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	clients := []struct {
		name string
		url  string
		dst  **redis.Client
	}{
		{"cache", cfg.Redis.CacheURL(), &app.cacheClient},
		{"broker", cfg.Redis.BrokerURL(), &app.brokerClient},
		{"result backend", cfg.Redis.BackendURL(), &app.backendClient},
	}
	for _, c := range clients {
		client, err := cache.NewRedisClient(ctx, c.url)
		if err != nil {
			app.closeRedis()
			return nil, fmt.Errorf("failed to connect to %s: %w", c.name, err)
		}
		*c.dst = client
		logger.Info(c.name+" connection established", "url", redact.URL(c.url))
	}

	resultStore := postgres.NewPostgresTradingResultStore(db, logger)

	var err error
	app.tradingService, err = service.NewTradingService(
		resultStore,
		cache.NewRedisCache(app.cacheClient, logger),
		cfg.Cache.TTL,
		logger,
	)
	if err != nil {
		app.closeRedis()
		return nil, fmt.Errorf("failed to create trading service: %w", err)
	}

	publisher := task.NewPublisher(
		task.NewRedisBroker(app.brokerClient, task.DefaultQueueKey),
		task.NewRedisResultBackend(app.backendClient, cfg.Worker.ResultTTL),
		logger,
	)
	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(newCacheInvalidator(publisher, cfg.Scheduler.ResetCacheExpires, logger))

	app.scraper = scraper.New(cfg.Scraper, resultStore, logger, scraper.WithEmitter(emitter))

	logger.Info("application initialized successfully")
	return app, nil
}

// setupRouter builds the HTTP handler tree.
func (app *application) setupRouter() http.Handler {
	return api.NewRouter(
		api.NewTradingHandler(app.tradingService, app.logger),
		api.NewSystemHandler(app.tradingService, app.scraper, app.logger),
		app.logger,
	)
}

// Run serves HTTP until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.scraper != nil {
		if app.scraper.Running() {
			app.logger.Warn("shutting down while the scraper is running; the partial run is discarded")
		}
		ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		if err := app.scraper.Shutdown(ctx); err != nil {
			app.logger.Error("scraper did not stop in time", "error", err)
		}
		cancel()
	}

	app.closeRedis()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
}

func (app *application) closeRedis() {
	for _, c := range []*redis.Client{app.cacheClient, app.brokerClient, app.backendClient} {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			app.logger.Error("error closing redis connection", "error", err)
		}
	}
}

// newCacheInvalidator queues a reset_cache task whenever a scrape stores new
// rows.
func newCacheInvalidator(p *task.Publisher, expires time.Duration, logger *slog.Logger) events.EventHandler {
	return events.HandlerFunc{
		Type: events.TypeResultsStored,
		Fn: func(ctx context.Context, event *events.Event) error {
			msg, err := p.Publish(ctx, task.ResetCacheTask, nil, expires)
			if err != nil {
				return fmt.Errorf("failed to queue %s: %w", task.ResetCacheTask, err)
			}
			logger.Info("cache reset queued after scrape",
				"task_id", msg.ID,
				"event_id", event.ID)
			return nil
		},
	}
}
