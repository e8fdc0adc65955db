package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueKey is the Redis list holding pending messages.
const DefaultQueueKey = "spimex:tasks"

// resultKeyPrefix namespaces task results in the backend database.
const resultKeyPrefix = "spimex:task-result:"

// RedisBroker is a FIFO queue on a Redis list: LPUSH to publish, BRPOP
// to consume.
type RedisBroker struct {
	client redis.UniversalClient
	key    string
}

// NewRedisBroker creates a broker on the given list key.
func NewRedisBroker(client redis.UniversalClient, key string) *RedisBroker {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisBroker{client: client, key: key}
}

var _ Broker = (*RedisBroker)(nil)

// Publish implements Broker.
func (b *RedisBroker) Publish(ctx context.Context, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if err := b.client.LPush(ctx, b.key, raw).Err(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", msg.Name, err)
	}
	return nil
}

// Consume implements Broker.
func (b *RedisBroker) Consume(ctx context.Context, wait time.Duration) (*Message, error) {
	res, err := b.client.BRPop(ctx, wait, b.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to consume: %w", err)
	}

	// BRPOP replies with [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of %d elements", len(res))
	}

	var msg Message
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	return &msg, nil
}

// Len returns the number of queued messages.
func (b *RedisBroker) Len(ctx context.Context) (int64, error) {
	return b.client.LLen(ctx, b.key).Result()
}

// RedisResultBackend keeps one JSON document per task with a TTL.
type RedisResultBackend struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisResultBackend creates a backend whose records expire after ttl.
func NewRedisResultBackend(client redis.UniversalClient, ttl time.Duration) *RedisResultBackend {
	return &RedisResultBackend{client: client, ttl: ttl}
}

var _ ResultBackend = (*RedisResultBackend)(nil)

// SetStatus implements ResultBackend.
func (b *RedisResultBackend) SetStatus(ctx context.Context, result Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := b.client.Set(ctx, resultKeyPrefix+result.ID.String(), raw, b.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store result of %s: %w", result.ID, err)
	}
	return nil
}

// Get implements ResultBackend. A task without a record is PENDING.
func (b *RedisResultBackend) Get(ctx context.Context, id uuid.UUID) (*Result, error) {
	raw, err := b.client.Get(ctx, resultKeyPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &Result{ID: id, Status: TaskStatusPending}, nil
		}
		return nil, fmt.Errorf("failed to read result of %s: %w", id, err)
	}

	var r Result
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("failed to decode result of %s: %w", id, err)
	}
	return &r, nil
}
