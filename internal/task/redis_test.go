package task

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedisBroker_FIFO(t *testing.T) {
	client, mr := newTestRedis(t)
	broker := NewRedisBroker(client, "")
	ctx := context.Background()
	now := time.Now()

	first, err := NewMessage("first", nil, 0, now)
	require.NoError(t, err)
	second, err := NewMessage("second", map[string]string{"k": "v"}, time.Minute, now)
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, first))
	require.NoError(t, broker.Publish(ctx, second))

	assert.True(t, mr.Exists(DefaultQueueKey))
	n, err := broker.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	got, err := broker.Consume(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "first", got.Name)

	got, err = broker.Consume(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.ID, got.ID)
	assert.JSONEq(t, `{"k":"v"}`, string(got.Payload))
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, second.ExpiresAt.Equal(*got.ExpiresAt))
}

func TestRedisBroker_ConsumeTimeout(t *testing.T) {
	client, _ := newTestRedis(t)
	broker := NewRedisBroker(client, "test:queue")

	got, err := broker.Consume(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisBroker_CorruptMessage(t *testing.T) {
	client, mr := newTestRedis(t)
	broker := NewRedisBroker(client, "test:queue")

	_, err := mr.Lpush("test:queue", "not json")
	require.NoError(t, err)

	_, err = broker.Consume(context.Background(), time.Second)
	assert.Error(t, err)
}

func TestRedisResultBackend(t *testing.T) {
	client, mr := newTestRedis(t)
	backend := NewRedisResultBackend(client, 24*time.Hour)
	ctx := context.Background()
	id := uuid.New()

	got, err := backend.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, TaskStatusPending, got.Status)
	assert.Equal(t, id, got.ID)

	require.NoError(t, backend.SetStatus(ctx, Result{
		ID:        id,
		Name:      ResetCacheTask,
		Status:    TaskStatusFailure,
		Error:     "boom",
		UpdatedAt: time.Now().UTC(),
	}))

	got, err = backend.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, TaskStatusFailure, got.Status)
	assert.Equal(t, ResetCacheTask, got.Name)
	assert.Equal(t, "boom", got.Error)

	assert.Equal(t, 24*time.Hour, mr.TTL(resultKeyPrefix+id.String()))
}

func TestRedisResultBackend_ServerDown(t *testing.T) {
	client, mr := newTestRedis(t)
	backend := NewRedisResultBackend(client, time.Hour)
	mr.Close()

	err := backend.SetStatus(context.Background(), Result{ID: uuid.New(), Status: TaskStatusStarted})
	assert.Error(t, err)

	_, err = backend.Get(context.Background(), uuid.New())
	assert.Error(t, err)
}
