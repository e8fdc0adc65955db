package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phrazzld/spimex-api/internal/config"
	"github.com/phrazzld/spimex-api/internal/domain"
	"github.com/phrazzld/spimex-api/internal/events"
	"github.com/phrazzld/spimex-api/internal/platform/logger"
	"github.com/phrazzld/spimex-api/internal/store"
)

// Report summarizes one scrape.
type Report struct {
	Links   int
	Files   int
	Rows    int
	Elapsed time.Duration
}

// Scraper collects new bulletins from the exchange and stores their rows.
// At most one scrape runs at a time per Scraper.
type Scraper struct {
	cfg     config.ScraperConfig
	client  *http.Client
	store   store.TradingResultStore
	logger  *slog.Logger
	running atomic.Bool
	extract func(path string) ([]domain.TradingResult, error)
	emitter events.EventEmitter

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	retryInterval   time.Duration
	retryMaxElapsed time.Duration
}

// Option customizes a Scraper.
type Option func(*Scraper)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Scraper) { s.client = c }
}

// WithRetry sets the initial backoff interval and the total retry budget of
// listing fetches.
func WithRetry(initial, maxElapsed time.Duration) Option {
	return func(s *Scraper) {
		s.retryInterval = initial
		s.retryMaxElapsed = maxElapsed
	}
}

// WithExtractor replaces the bulletin file parser.
func WithExtractor(fn func(path string) ([]domain.TradingResult, error)) Option {
	return func(s *Scraper) { s.extract = fn }
}

// WithEmitter announces every scrape that stored rows.
func WithEmitter(e events.EventEmitter) Option {
	return func(s *Scraper) { s.emitter = e }
}

// New creates a Scraper.
func New(cfg config.ScraperConfig, resultStore store.TradingResultStore, log *slog.Logger, opts ...Option) *Scraper {
	if log == nil {
		log = slog.Default()
	}
	s := &Scraper{
		cfg:             cfg,
		store:           resultStore,
		logger:          log.With(slog.String("component", "scraper")),
		extract:         ExtractFile,
		retryInterval:   500 * time.Millisecond,
		retryMaxElapsed: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = NewHTTPClient(cfg)
	}
	return s
}

// Running reports whether a scrape is in progress.
func (s *Scraper) Running() bool {
	return s.running.Load()
}

// Run scrapes synchronously. It returns ErrAlreadyRunning when another
// scrape holds the scraper.
func (s *Scraper) Run(ctx context.Context) (*Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer s.running.Store(false)

	return s.run(ctx)
}

// Start launches a scrape in the background and returns immediately.
// The scrape keeps running after ctx's request ends; only its values are
// inherited. Shutdown stops it.
func (s *Scraper) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		defer cancel()
		if _, err := s.run(bg); err != nil {
			logger.FromContextOrDefault(bg, s.logger).Error("scraper failed",
				slog.String("error", err.Error()))
		}
	}()
	return nil
}

// Shutdown cancels a background scrape and waits for it to return, or for
// ctx to end, whichever comes first.
func (s *Scraper) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scraper) run(ctx context.Context) (*Report, error) {
	started := time.Now()
	log := logger.FromContextOrDefault(ctx, s.logger)

	lastDate, hasLast, err := s.store.LastDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read last stored date: %w", err)
	}

	if err := os.MkdirAll(s.cfg.DownloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(s.cfg.DownloadDir); err != nil {
			log.Warn("failed to remove download dir",
				slog.String("dir", s.cfg.DownloadDir),
				slog.String("error", err.Error()))
		}
	}()

	links, err := s.collectLinks(ctx, walkLimits{
		lastDate: lastDate,
		hasLast:  hasLast,
		stopYear: s.cfg.StopYear,
	})
	if err != nil {
		return nil, err
	}

	saved := s.downloadAll(ctx, links, s.cfg.DownloadDir)

	batches, err := s.extractAll(ctx, s.cfg.DownloadDir, saved)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateResults(ctx, batches); err != nil {
		return nil, fmt.Errorf("failed to save trading results: %w", err)
	}

	report := &Report{
		Links:   len(links),
		Files:   len(saved),
		Elapsed: time.Since(started),
	}
	for _, b := range batches {
		report.Rows += len(b)
	}

	log.Info(fmt.Sprintf("The scraper worked in %.4f seconds.", report.Elapsed.Seconds()),
		slog.Int("links", report.Links),
		slog.Int("files", report.Files),
		slog.Int("rows", report.Rows))

	if s.emitter != nil && report.Rows > 0 {
		s.announce(ctx, log, report)
	}
	return report, nil
}

// announce failures are logged only; the rows are already committed.
func (s *Scraper) announce(ctx context.Context, log *slog.Logger, report *Report) {
	event, err := events.NewEvent(events.TypeResultsStored, events.ResultsStored{
		Files: report.Files,
		Rows:  report.Rows,
	})
	if err == nil {
		err = s.emitter.EmitEvent(ctx, event)
	}
	if err != nil {
		log.Warn("failed to announce stored results", slog.String("error", err.Error()))
	}
}
