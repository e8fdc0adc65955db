package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/spimex-api/internal/cache"
	"github.com/phrazzld/spimex-api/internal/domain"
	"github.com/phrazzld/spimex-api/internal/platform/logger"
	"github.com/phrazzld/spimex-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (TradingService, *MockTradingResultStore, *fakeCache) {
	t.Helper()
	st := &MockTradingResultStore{}
	c := newFakeCache()
	svc, err := NewTradingService(st, c, 0, logger.Discard())
	require.NoError(t, err)
	return svc, st, c
}

func sampleResults() []domain.TradingResult {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	return []domain.TradingResult{{
		ID:                  7,
		ExchangeProductID:   "A592ACH060F",
		ExchangeProductName: "Бензин (АИ-92-К5)",
		OilID:               "A592",
		DeliveryBasisID:     "ACH",
		DeliveryBasisName:   "ст. Ачинск",
		DeliveryTypeID:      "F",
		Volume:              60,
		Total:               3600000,
		Count:               1,
		Date:                day,
		CreatedOn:           day,
		UpdatedOn:           day,
	}}
}

func TestNewTradingService_Validation(t *testing.T) {
	_, err := NewTradingService(nil, newFakeCache(), 0, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = NewTradingService(&MockTradingResultStore{}, nil, 0, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "last_tr_dt_3", LastTradingDatesKey(3))
	assert.Equal(t, "dynamics_A592_F_ACH_2024-03-01_2024-03-31", DynamicsKey(DynamicsQuery{
		OilID: "A592", DeliveryTypeID: "F", DeliveryBasisID: "ACH",
		StartDate: "2024-03-01", EndDate: "2024-03-31",
	}))
	assert.Equal(t, "trade_results_A592_-_-_10", TradingResultsKey(TradingQuery{OilID: "A592", Limit: 10}))
	assert.Equal(t, "trade_results_-_F_ACH_3", TradingResultsKey(TradingQuery{
		DeliveryTypeID: "F", DeliveryBasisID: "ACH", Limit: 3,
	}))
}

func TestLastTradingDates(t *testing.T) {
	t.Run("miss queries store and caches", func(t *testing.T) {
		svc, st, c := newTestService(t)
		st.On("LastTradingDates", mock.Anything, 2).Return([]time.Time{
			time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		}, nil).Once()

		got, err := svc.LastTradingDates(context.Background(), 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"2024-03-05", "2024-03-04"}, got)
		assert.Equal(t, cache.DefaultTTL, c.ttls["last_tr_dt_2"])
		assert.JSONEq(t, `["2024-03-05","2024-03-04"]`, string(c.data["last_tr_dt_2"]))
		st.AssertExpectations(t)
	})

	t.Run("hit skips store and cache write", func(t *testing.T) {
		svc, st, c := newTestService(t)
		c.data["last_tr_dt_1"] = []byte(`["2024-03-05"]`)

		got, err := svc.LastTradingDates(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"2024-03-05"}, got)
		assert.Equal(t, 0, c.sets)
		st.AssertNotCalled(t, "LastTradingDates", mock.Anything, mock.Anything)
	})

	t.Run("cached empty list is a miss", func(t *testing.T) {
		svc, st, c := newTestService(t)
		c.data["last_tr_dt_1"] = []byte(`[]`)
		st.On("LastTradingDates", mock.Anything, 1).Return([]time.Time{}, nil).Once()

		got, err := svc.LastTradingDates(context.Background(), 1)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Equal(t, 1, c.sets)
		st.AssertExpectations(t)
	})

	t.Run("invalid days", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.LastTradingDates(context.Background(), 0)
		assert.ErrorIs(t, err, ErrInvalidDays)
		assert.ErrorIs(t, err, ErrInvalidFilter)
	})

	t.Run("cache failures fall through to store", func(t *testing.T) {
		svc, st, c := newTestService(t)
		c.getErr = errors.New("redis down")
		c.setErr = errors.New("redis down")
		st.On("LastTradingDates", mock.Anything, 1).Return([]time.Time{
			time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		}, nil).Once()

		got, err := svc.LastTradingDates(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"2024-03-05"}, got)
	})
}

func TestDynamics(t *testing.T) {
	q := DynamicsQuery{
		OilID: "A592", DeliveryTypeID: "F", DeliveryBasisID: "ACH",
		StartDate: "2024-03-01", EndDate: "2024-03-31",
	}

	t.Run("miss queries store with parsed dates", func(t *testing.T) {
		svc, st, c := newTestService(t)
		want := sampleResults()
		st.On("Dynamics", mock.Anything, store.DynamicsFilter{
			OilID: "A592", DeliveryTypeID: "F", DeliveryBasisID: "ACH",
			Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		}).Return(want, nil).Once()

		got, err := svc.Dynamics(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Contains(t, c.data, "dynamics_A592_F_ACH_2024-03-01_2024-03-31")
		st.AssertExpectations(t)
	})

	t.Run("hit returns cached results", func(t *testing.T) {
		svc, st, c := newTestService(t)
		require.NoError(t, c.Set(context.Background(), DynamicsKey(q), sampleResults(), time.Hour))
		c.sets = 0

		got, err := svc.Dynamics(context.Background(), q)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "A592ACH060F", got[0].ExchangeProductID)
		assert.Equal(t, 0, c.sets)
		st.AssertNotCalled(t, "Dynamics", mock.Anything, mock.Anything)
	})

	t.Run("invalid date", func(t *testing.T) {
		svc, st, _ := newTestService(t)
		bad := q
		bad.EndDate = "31.03.2024"

		_, err := svc.Dynamics(context.Background(), bad)
		assert.ErrorIs(t, err, ErrInvalidDate)
		assert.ErrorIs(t, err, ErrInvalidFilter)
		assert.Contains(t, err.Error(), "end_date")
		st.AssertNotCalled(t, "Dynamics", mock.Anything, mock.Anything)
	})

	t.Run("store error", func(t *testing.T) {
		svc, st, _ := newTestService(t)
		st.On("Dynamics", mock.Anything, mock.Anything).Return(nil, store.ErrTableMissing).Once()

		_, err := svc.Dynamics(context.Background(), q)
		assert.ErrorIs(t, err, store.ErrTableMissing)
	})
}

func TestTradingResults(t *testing.T) {
	tests := []struct {
		name    string
		query   TradingQuery
		wantErr error
	}{
		{"no filters", TradingQuery{Limit: 10}, ErrMissingFilter},
		{"no filters and bad limit", TradingQuery{Limit: 0}, ErrMissingFilter},
		{"zero limit", TradingQuery{OilID: "A592", Limit: 0}, ErrInvalidLimit},
		{"negative limit", TradingQuery{DeliveryBasisID: "ACH", Limit: -1}, ErrInvalidLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st, _ := newTestService(t)
			_, err := svc.TradingResults(context.Background(), tt.query)
			assert.ErrorIs(t, err, tt.wantErr)
			st.AssertNotCalled(t, "TradingResults", mock.Anything, mock.Anything)
		})
	}

	t.Run("missing filter is not a bad request", func(t *testing.T) {
		assert.False(t, errors.Is(ErrMissingFilter, ErrInvalidFilter))
	})

	t.Run("miss then hit", func(t *testing.T) {
		svc, st, c := newTestService(t)
		q := TradingQuery{OilID: "A592", Limit: 3}
		st.On("TradingResults", mock.Anything, store.TradingFilter{OilID: "A592", Limit: 3}).
			Return(sampleResults(), nil).Once()

		first, err := svc.TradingResults(context.Background(), q)
		require.NoError(t, err)
		second, err := svc.TradingResults(context.Background(), q)
		require.NoError(t, err)

		assert.Equal(t, first[0].ID, second[0].ID)
		assert.Equal(t, 1, c.sets)
		assert.Contains(t, c.data, "trade_results_A592_-_-_3")
		st.AssertExpectations(t)
	})
}

func TestCheckDatabase(t *testing.T) {
	t.Run("table present", func(t *testing.T) {
		svc, st, _ := newTestService(t)
		st.On("Version", mock.Anything).Return("PostgreSQL 16.2", nil)
		st.On("CountRows", mock.Anything).Return(int64(12), nil)

		got, err := svc.CheckDatabase(context.Background())
		require.NoError(t, err)
		assert.Equal(t, &DatabaseStatus{Version: "PostgreSQL 16.2", Rows: 12}, got)
	})

	t.Run("table missing", func(t *testing.T) {
		svc, st, _ := newTestService(t)
		st.On("Version", mock.Anything).Return("PostgreSQL 16.2", nil)
		st.On("CountRows", mock.Anything).Return(int64(0), store.ErrTableMissing)

		got, err := svc.CheckDatabase(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(-1), got.Rows)
	})

	t.Run("database down", func(t *testing.T) {
		svc, st, _ := newTestService(t)
		st.On("Version", mock.Anything).Return("", errors.New("connection refused"))

		_, err := svc.CheckDatabase(context.Background())
		assert.Error(t, err)
	})
}
