package task

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/phrazzld/spimex-api/internal/cache"
	"github.com/phrazzld/spimex-api/internal/platform/logger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_AddInvalidSpec(t *testing.T) {
	s := NewScheduler(NewPublisher(newMemBroker(), nil, logger.Discard()), nil, logger.Discard())

	err := s.Add(Entry{Name: ResetCacheTask, Spec: "not a cron"})
	assert.Error(t, err)

	require.NoError(t, s.Add(Entry{Name: ResetCacheTask, Spec: "11 14 * * *", Expires: 300 * time.Second}))
	assert.Len(t, s.cron.Entries(), 1)
}

func TestScheduler_FirePublishesExpiringMessage(t *testing.T) {
	broker := newMemBroker()
	backend := newMemBackend()
	s := NewScheduler(NewPublisher(broker, backend, logger.Discard()), time.UTC, logger.Discard())

	s.fire(Entry{Name: ResetCacheTask, Spec: "11 14 * * *", Expires: 300 * time.Second})

	require.Len(t, broker.ch, 1)
	msg := <-broker.ch
	assert.Equal(t, ResetCacheTask, msg.Name)
	require.NotNil(t, msg.ExpiresAt)
	assert.Equal(t, 300*time.Second, msg.ExpiresAt.Sub(msg.EnqueuedAt))
	assert.Equal(t, TaskStatusPending, backend.final(msg.ID))
}

func TestScheduler_StartStop(t *testing.T) {
	broker := newMemBroker()
	s := NewScheduler(NewPublisher(broker, nil, logger.Discard()), time.UTC, logger.Discard())
	require.NoError(t, s.Add(Entry{Name: "tick", Spec: "@every 1s"}))

	s.Start()
	select {
	case msg := <-broker.ch:
		assert.Equal(t, "tick", msg.Name)
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled task was not published")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}

func newFlushTarget(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisCache(client, logger.Discard()), mr
}

func TestResetCacheHandler(t *testing.T) {
	c, mr := newFlushTarget(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "last_tr_dt_1", []string{"2024-03-05"}, time.Hour))
	require.NoError(t, c.Set(ctx, "trade_results_A592_-_-_10", []int{1}, time.Hour))

	stamp := time.Date(2024, 3, 5, 14, 11, 0, 0, time.UTC)
	var buf bytes.Buffer
	h := NewResetCacheHandler(c, slog.New(slog.NewTextHandler(&buf, nil)), func() time.Time { return stamp })

	require.NoError(t, h(ctx, json.RawMessage(`{}`)))
	assert.Empty(t, mr.Keys())
	assert.Contains(t, buf.String(), "Cache has been flushed at 2024-03-05_14:11:00")
}

func TestResetCacheHandler_ServerDown(t *testing.T) {
	c, mr := newFlushTarget(t)
	mr.Close()

	h := NewResetCacheHandler(c, logger.Discard(), nil)
	assert.Error(t, h(context.Background(), nil))
}

// stubCache refuses every flush.
type stubCache struct{ cache.Cache }

func (stubCache) Flush(context.Context) (bool, error) { return false, nil }

func TestResetCacheHandler_NotAcknowledged(t *testing.T) {
	h := NewResetCacheHandler(stubCache{}, logger.Discard(), nil)
	err := h(context.Background(), nil)
	assert.ErrorIs(t, err, ErrCacheNotFlushed)
}
