package api

import (
	"context"
	"sync/atomic"

	"github.com/phrazzld/spimex-api/internal/domain"
	"github.com/phrazzld/spimex-api/internal/scraper"
	"github.com/phrazzld/spimex-api/internal/service"
	"github.com/stretchr/testify/mock"
)

// MockTradingService is a testify mock of service.TradingService.
type MockTradingService struct {
	mock.Mock
}

var _ service.TradingService = (*MockTradingService)(nil)

func (m *MockTradingService) LastTradingDates(ctx context.Context, days int) ([]string, error) {
	args := m.Called(ctx, days)
	dates, _ := args.Get(0).([]string)
	return dates, args.Error(1)
}

func (m *MockTradingService) Dynamics(ctx context.Context, q service.DynamicsQuery) ([]domain.TradingResult, error) {
	args := m.Called(ctx, q)
	results, _ := args.Get(0).([]domain.TradingResult)
	return results, args.Error(1)
}

func (m *MockTradingService) TradingResults(ctx context.Context, q service.TradingQuery) ([]domain.TradingResult, error) {
	args := m.Called(ctx, q)
	results, _ := args.Get(0).([]domain.TradingResult)
	return results, args.Error(1)
}

func (m *MockTradingService) CheckDatabase(ctx context.Context) (*service.DatabaseStatus, error) {
	args := m.Called(ctx)
	status, _ := args.Get(0).(*service.DatabaseStatus)
	return status, args.Error(1)
}

// fakeScraper records Start calls.
type fakeScraper struct {
	running  atomic.Bool
	startErr error
	starts   atomic.Int32
}

func (f *fakeScraper) Running() bool { return f.running.Load() }

func (f *fakeScraper) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	if !f.running.CompareAndSwap(false, true) {
		return scraper.ErrAlreadyRunning
	}
	f.starts.Add(1)
	return nil
}
