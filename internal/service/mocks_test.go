package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/phrazzld/spimex-api/internal/domain"
	"github.com/phrazzld/spimex-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockTradingResultStore mocks the store.TradingResultStore interface
type MockTradingResultStore struct {
	mock.Mock
}

func (m *MockTradingResultStore) CreateResults(ctx context.Context, batches [][]domain.TradingResult) error {
	args := m.Called(ctx, batches)
	return args.Error(0)
}

func (m *MockTradingResultStore) LastDate(ctx context.Context) (time.Time, bool, error) {
	args := m.Called(ctx)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}

func (m *MockTradingResultStore) LastTradingDates(ctx context.Context, days int) ([]time.Time, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]time.Time), args.Error(1)
}

func (m *MockTradingResultStore) Dynamics(
	ctx context.Context,
	filter store.DynamicsFilter,
) ([]domain.TradingResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TradingResult), args.Error(1)
}

func (m *MockTradingResultStore) TradingResults(
	ctx context.Context,
	filter store.TradingFilter,
) ([]domain.TradingResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TradingResult), args.Error(1)
}

func (m *MockTradingResultStore) CountRows(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTradingResultStore) Version(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// fakeCache is an in-memory cache.Cache that records writes.
type fakeCache struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
	sets   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *fakeCache) Get(_ context.Context, key string, dest any) (bool, error) {
	if c.getErr != nil {
		return false, c.getErr
	}
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *fakeCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = raw
	c.ttls[key] = ttl
	return nil
}

func (c *fakeCache) Flush(context.Context) (bool, error) {
	c.data = map[string][]byte{}
	return true, nil
}
