package store

import (
	"context"
	"time"

	"github.com/phrazzld/spimex-api/internal/domain"
)

// DynamicsFilter selects the results of one instrument over a date range.
// All three identifiers are required; Start and End are inclusive.
type DynamicsFilter struct {
	OilID           string
	DeliveryTypeID  string
	DeliveryBasisID string
	Start           time.Time
	End             time.Time
}

// TradingFilter selects the latest results. Empty identifiers are not
// applied; at least one must be set by the caller.
type TradingFilter struct {
	OilID           string
	DeliveryTypeID  string
	DeliveryBasisID string
	Limit           int
}

// TradingResultStore persists and queries bulletin rows.
type TradingResultStore interface {
	// CreateResults saves every batch (one per bulletin file) and commits once.
	CreateResults(ctx context.Context, batches [][]domain.TradingResult) error

	// LastDate returns the newest stored trading date. The boolean is
	// false when the table is empty.
	LastDate(ctx context.Context) (time.Time, bool, error)

	// LastTradingDates returns up to days distinct trading dates, newest first.
	LastTradingDates(ctx context.Context, days int) ([]time.Time, error)

	// Dynamics returns the results matching filter.
	Dynamics(ctx context.Context, filter DynamicsFilter) ([]domain.TradingResult, error)

	// TradingResults returns the newest results matching filter.
	TradingResults(ctx context.Context, filter TradingFilter) ([]domain.TradingResult, error)

	// CountRows returns the number of stored results, or ErrTableMissing.
	CountRows(ctx context.Context) (int64, error)

	// Version reports the database server version string.
	Version(ctx context.Context) (string, error)
}
