package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending TaskStatus = "PENDING"
	TaskStatusStarted TaskStatus = "STARTED"
	TaskStatusSuccess TaskStatus = "SUCCESS"
	TaskStatusFailure TaskStatus = "FAILURE"
	TaskStatusRevoked TaskStatus = "REVOKED"
)

// Common task errors
var (
	// ErrUnknownTask is returned for messages naming no registered handler.
	ErrUnknownTask = errors.New("unknown task")

	// ErrTaskExpired is recorded for messages consumed after their expiry.
	ErrTaskExpired = errors.New("task expired")
)

// Message is the unit placed on the broker.
type Message struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
}

// NewMessage builds a message for the named task. A positive expires sets
// the time after which workers revoke the message instead of running it.
func NewMessage(name string, payload any, expires time.Duration, now time.Time) (Message, error) {
	msg := Message{
		ID:         uuid.New(),
		Name:       name,
		EnqueuedAt: now.UTC(),
	}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Message{}, fmt.Errorf("failed to encode payload of %s: %w", name, err)
		}
		msg.Payload = raw
	}

	if expires > 0 {
		at := msg.EnqueuedAt.Add(expires)
		msg.ExpiresAt = &at
	}
	return msg, nil
}

// Expired reports whether the message must not run at now.
func (m Message) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && now.After(*m.ExpiresAt)
}

// Handler executes one task.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Broker transports messages between publishers and workers.
type Broker interface {
	// Publish appends msg to the queue.
	Publish(ctx context.Context, msg Message) error

	// Consume waits up to wait for the next message. It returns nil, nil
	// when nothing arrived in time.
	Consume(ctx context.Context, wait time.Duration) (*Message, error)
}

// Result is the recorded outcome of a task.
type Result struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Status    TaskStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ResultBackend stores task outcomes.
type ResultBackend interface {
	// SetStatus records the status of a task.
	SetStatus(ctx context.Context, result Result) error

	// Get returns the recorded status of a task.
	Get(ctx context.Context, id uuid.UUID) (*Result, error)
}
