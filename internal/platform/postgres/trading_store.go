package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/spimex-api/internal/domain"
	"github.com/phrazzld/spimex-api/internal/platform/logger"
	"github.com/phrazzld/spimex-api/internal/store"
)

// TableName is the relation that holds bulletin rows.
const TableName = "spimex_trading_results"

const resultColumns = `id, exchange_product_id, exchange_product_name, oil_id,
	delivery_basis_id, delivery_basis_name, delivery_type_id,
	volume, total, count, date, created_on, updated_on`

const insertResultQuery = `
	INSERT INTO spimex_trading_results (
		exchange_product_id, exchange_product_name, oil_id,
		delivery_basis_id, delivery_basis_name, delivery_type_id,
		volume, total, count, date
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// PostgresTradingResultStore implements store.TradingResultStore
// using a PostgreSQL database as the storage backend.
type PostgresTradingResultStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresTradingResultStore creates a store over db.
// If logger is nil, a default logger will be used.
func NewPostgresTradingResultStore(db *sql.DB, logger *slog.Logger) *PostgresTradingResultStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTradingResultStore{
		db:     db,
		logger: logger.With(slog.String("component", "trading_result_store")),
	}
}

// Ensure PostgresTradingResultStore implements store.TradingResultStore interface
var _ store.TradingResultStore = (*PostgresTradingResultStore)(nil)

// CreateResults inserts all batches inside a single transaction. Every row
// is validated before the transaction starts, so an invalid row leaves the
// table untouched.
func (s *PostgresTradingResultStore) CreateResults(ctx context.Context, batches [][]domain.TradingResult) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	total := 0
	for _, batch := range batches {
		for i := range batch {
			if err := batch[i].Validate(); err != nil {
				log.Warn("trading result validation failed during create",
					slog.String("error", err.Error()),
					slog.String("exchange_product_id", batch[i].ExchangeProductID))
				return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
			}
		}
		total += len(batch)
	}

	if total == 0 {
		log.Debug("no trading results to store")
		return nil
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertResultQuery)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, batch := range batches {
			for _, r := range batch {
				if _, err := stmt.ExecContext(ctx,
					r.ExchangeProductID,
					r.ExchangeProductName,
					r.OilID,
					r.DeliveryBasisID,
					r.DeliveryBasisName,
					r.DeliveryTypeID,
					r.Volume,
					r.Total,
					r.Count,
					r.Date,
				); err != nil {
					return MapError(err)
				}
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to create trading results",
			slog.String("error", err.Error()),
			slog.Int("batches", len(batches)),
			slog.Int("rows", total))
		return err
	}

	log.Info("trading results created successfully",
		slog.Int("batches", len(batches)),
		slog.Int("rows", total))
	return nil
}

// LastDate returns the newest stored trading date.
func (s *PostgresTradingResultStore) LastDate(ctx context.Context) (time.Time, bool, error) {
	query := `SELECT date FROM spimex_trading_results ORDER BY date DESC LIMIT 1`

	var date time.Time
	err := s.db.QueryRowContext(ctx, query).Scan(&date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query last trading date",
			slog.String("error", err.Error()))
		return time.Time{}, false, MapError(err)
	}
	return domain.TradingDay(date), true, nil
}

// LastTradingDates returns up to days distinct trading dates, newest first.
func (s *PostgresTradingResultStore) LastTradingDates(ctx context.Context, days int) ([]time.Time, error) {
	query := `
		SELECT DISTINCT date
		FROM spimex_trading_results
		ORDER BY date DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, days)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query last trading dates",
			slog.String("error", err.Error()),
			slog.Int("days", days))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan trading date: %w", err)
		}
		dates = append(dates, domain.TradingDay(d))
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	if dates == nil {
		dates = []time.Time{}
	}
	return dates, nil
}

// Dynamics returns results for one instrument between the filter dates,
// oldest first.
func (s *PostgresTradingResultStore) Dynamics(
	ctx context.Context,
	filter store.DynamicsFilter,
) ([]domain.TradingResult, error) {
	query := `
		SELECT ` + resultColumns + `
		FROM spimex_trading_results
		WHERE oil_id = $1
		  AND delivery_type_id = $2
		  AND delivery_basis_id = $3
		  AND date BETWEEN $4 AND $5
		ORDER BY date, id
	`

	return s.queryResults(ctx, "dynamics", query,
		filter.OilID,
		filter.DeliveryTypeID,
		filter.DeliveryBasisID,
		domain.TradingDay(filter.Start),
		domain.TradingDay(filter.End),
	)
}

// TradingResults returns the newest results matching the filter. Empty
// identifiers are not applied.
func (s *PostgresTradingResultStore) TradingResults(
	ctx context.Context,
	filter store.TradingFilter,
) ([]domain.TradingResult, error) {
	query, args := buildTradingResultsQuery(filter)
	return s.queryResults(ctx, "trading_results", query, args...)
}

// buildTradingResultsQuery assembles the filtered query and its arguments.
func buildTradingResultsQuery(filter store.TradingFilter) (string, []any) {
	var conditions []string
	var args []any

	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("oil_id", filter.OilID)
	add("delivery_type_id", filter.DeliveryTypeID)
	add("delivery_basis_id", filter.DeliveryBasisID)

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(resultColumns)
	b.WriteString(" FROM spimex_trading_results")
	if len(conditions) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conditions, " AND "))
	}
	args = append(args, filter.Limit)
	fmt.Fprintf(&b, " ORDER BY date DESC, id DESC LIMIT $%d", len(args))

	return b.String(), args
}

func (s *PostgresTradingResultStore) queryResults(
	ctx context.Context,
	op string,
	query string,
	args ...any,
) ([]domain.TradingResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query trading results",
			slog.String("operation", op),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	results := []domain.TradingResult{}
	for rows.Next() {
		var r domain.TradingResult
		if err := rows.Scan(
			&r.ID,
			&r.ExchangeProductID,
			&r.ExchangeProductName,
			&r.OilID,
			&r.DeliveryBasisID,
			&r.DeliveryBasisName,
			&r.DeliveryTypeID,
			&r.Volume,
			&r.Total,
			&r.Count,
			&r.Date,
			&r.CreatedOn,
			&r.UpdatedOn,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trading result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	log.Debug("trading results retrieved",
		slog.String("operation", op),
		slog.Int("count", len(results)))
	return results, nil
}

// CountRows returns the number of stored rows, or store.ErrTableMissing
// when migrations have not been applied.
func (s *PostgresTradingResultStore) CountRows(ctx context.Context) (int64, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT to_regclass($1) IS NOT NULL`, "public."+TableName,
	).Scan(&exists)
	if err != nil {
		return 0, MapError(err)
	}
	if !exists {
		return 0, store.ErrTableMissing
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM spimex_trading_results`).Scan(&count); err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

// Version returns the PostgreSQL server version string.
func (s *PostgresTradingResultStore) Version(ctx context.Context) (string, error) {
	var version string
	if err := s.db.QueryRowContext(ctx, `SELECT version()`).Scan(&version); err != nil {
		return "", MapError(err)
	}
	return version, nil
}
