package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/spimex-api/internal/cache"
	"github.com/phrazzld/spimex-api/internal/domain"
	"github.com/phrazzld/spimex-api/internal/platform/logger"
	"github.com/phrazzld/spimex-api/internal/store"
)

// DynamicsQuery selects one instrument over a date range. Dates are the
// raw YYYY-MM-DD strings received from the client.
type DynamicsQuery struct {
	OilID           string
	DeliveryTypeID  string
	DeliveryBasisID string
	StartDate       string
	EndDate         string
}

// TradingQuery selects the latest results by any combination of
// instrument identifiers.
type TradingQuery struct {
	OilID           string
	DeliveryTypeID  string
	DeliveryBasisID string
	Limit           int
}

// DatabaseStatus reports the database server version and the number of
// stored results. Rows is -1 when the results table does not exist.
type DatabaseStatus struct {
	Version string `json:"version"`
	Rows    int64  `json:"rows"`
}

// TradingService answers read queries over stored bulletin results.
type TradingService interface {
	// LastTradingDates returns the newest days distinct trading dates as
	// YYYY-MM-DD strings, newest first.
	LastTradingDates(ctx context.Context, days int) ([]string, error)

	// Dynamics returns the results of one instrument between two dates.
	Dynamics(ctx context.Context, q DynamicsQuery) ([]domain.TradingResult, error)

	// TradingResults returns the newest results matching q.
	TradingResults(ctx context.Context, q TradingQuery) ([]domain.TradingResult, error)

	// CheckDatabase reports server version and row count.
	CheckDatabase(ctx context.Context) (*DatabaseStatus, error)
}

// tradingServiceImpl implements TradingService with a cache-aside read path.
type tradingServiceImpl struct {
	store  store.TradingResultStore
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewTradingService creates a TradingService. A zero ttl selects
// cache.DefaultTTL.
func NewTradingService(
	resultStore store.TradingResultStore,
	responseCache cache.Cache,
	ttl time.Duration,
	logger *slog.Logger,
) (TradingService, error) {
	if resultStore == nil {
		return nil, domain.NewValidationError("resultStore", "cannot be nil", domain.ErrValidation)
	}
	if responseCache == nil {
		return nil, domain.NewValidationError("responseCache", "cannot be nil", domain.ErrValidation)
	}
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &tradingServiceImpl{
		store:  resultStore,
		cache:  responseCache,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "trading_service")),
	}, nil
}

// LastTradingDatesKey is the cache key of a last trading dates query.
func LastTradingDatesKey(days int) string {
	return fmt.Sprintf("last_tr_dt_%d", days)
}

// DynamicsKey is the cache key of a dynamics query.
func DynamicsKey(q DynamicsQuery) string {
	return fmt.Sprintf("dynamics_%s_%s_%s_%s_%s",
		q.OilID, q.DeliveryTypeID, q.DeliveryBasisID, q.StartDate, q.EndDate)
}

// TradingResultsKey is the cache key of a trading results query. Unset
// identifiers are written as "-".
func TradingResultsKey(q TradingQuery) string {
	return fmt.Sprintf("trade_results_%s_%s_%s_%d",
		orDash(q.OilID), orDash(q.DeliveryTypeID), orDash(q.DeliveryBasisID), q.Limit)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (s *tradingServiceImpl) LastTradingDates(ctx context.Context, days int) ([]string, error) {
	if days < 1 {
		return nil, ErrInvalidDays
	}

	key := LastTradingDatesKey(days)
	var dates []string
	if s.fromCache(ctx, key, &dates) && len(dates) > 0 {
		return dates, nil
	}

	stored, err := s.store.LastTradingDates(ctx, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query last trading dates: %w", err)
	}

	dates = make([]string, 0, len(stored))
	for _, d := range stored {
		dates = append(dates, d.Format(domain.DateLayout))
	}

	s.toCache(ctx, key, dates)
	return dates, nil
}

func (s *tradingServiceImpl) Dynamics(ctx context.Context, q DynamicsQuery) ([]domain.TradingResult, error) {
	start, err := domain.ParseDate(q.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: start_date: %v", ErrInvalidDate, err)
	}
	end, err := domain.ParseDate(q.EndDate)
	if err != nil {
		return nil, fmt.Errorf("%w: end_date: %v", ErrInvalidDate, err)
	}

	key := DynamicsKey(q)
	var results []domain.TradingResult
	if s.fromCache(ctx, key, &results) && len(results) > 0 {
		return results, nil
	}

	results, err = s.store.Dynamics(ctx, store.DynamicsFilter{
		OilID:           q.OilID,
		DeliveryTypeID:  q.DeliveryTypeID,
		DeliveryBasisID: q.DeliveryBasisID,
		Start:           start,
		End:             end,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query dynamics: %w", err)
	}

	s.toCache(ctx, key, results)
	return results, nil
}

func (s *tradingServiceImpl) TradingResults(ctx context.Context, q TradingQuery) ([]domain.TradingResult, error) {
	if q.OilID == "" && q.DeliveryTypeID == "" && q.DeliveryBasisID == "" {
		return nil, ErrMissingFilter
	}
	if q.Limit <= 0 {
		return nil, ErrInvalidLimit
	}

	key := TradingResultsKey(q)
	var results []domain.TradingResult
	if s.fromCache(ctx, key, &results) && len(results) > 0 {
		return results, nil
	}

	results, err := s.store.TradingResults(ctx, store.TradingFilter{
		OilID:           q.OilID,
		DeliveryTypeID:  q.DeliveryTypeID,
		DeliveryBasisID: q.DeliveryBasisID,
		Limit:           q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query trading results: %w", err)
	}

	s.toCache(ctx, key, results)
	return results, nil
}

func (s *tradingServiceImpl) CheckDatabase(ctx context.Context) (*DatabaseStatus, error) {
	version, err := s.store.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query database version: %w", err)
	}

	rows, err := s.store.CountRows(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrTableMissing) {
			return nil, fmt.Errorf("failed to count rows: %w", err)
		}
		rows = -1
	}

	return &DatabaseStatus{Version: version, Rows: rows}, nil
}

// fromCache reports a hit. Read failures are logged and count as a miss.
func (s *tradingServiceImpl) fromCache(ctx context.Context, key string, dest any) bool {
	log := logger.FromContextOrDefault(ctx, s.logger)

	ok, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		log.Warn("cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	if !ok {
		log.Info("no cache for key", slog.String("key", key))
		return false
	}
	log.Info("get and return cache for key", slog.String("key", key))
	return true
}

// toCache stores value. Write failures are logged and otherwise ignored.
func (s *tradingServiceImpl) toCache(ctx context.Context, key string, value any) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		log.Warn("cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	log.Info("set cache for key",
		slog.String("key", key),
		slog.Duration("ttl", s.ttl))
}
