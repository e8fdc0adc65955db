package task

import (
	"context"
	"log/slog"
	"time"
)

// Publisher sends named tasks to the broker and marks them PENDING.
type Publisher struct {
	broker  Broker
	backend ResultBackend
	logger  *slog.Logger
	now     func() time.Time
}

// NewPublisher creates a Publisher. backend may be nil.
func NewPublisher(broker Broker, backend ResultBackend, logger *slog.Logger) *Publisher {
	return &Publisher{broker: broker, backend: backend, logger: logger, now: time.Now}
}

// Publish enqueues the named task. A positive expires makes workers revoke
// the message if it is still queued after that long.
func (p *Publisher) Publish(ctx context.Context, name string, payload any, expires time.Duration) (Message, error) {
	msg, err := NewMessage(name, payload, expires, p.now())
	if err != nil {
		return Message{}, err
	}

	if p.backend != nil {
		if err := p.backend.SetStatus(ctx, Result{
			ID:        msg.ID,
			Name:      msg.Name,
			Status:    TaskStatusPending,
			UpdatedAt: msg.EnqueuedAt,
		}); err != nil {
			p.logger.Warn("failed to record pending task", "task_id", msg.ID, "error", err)
		}
	}

	if err := p.broker.Publish(ctx, msg); err != nil {
		return Message{}, err
	}

	p.logger.Info("task published", "task_id", msg.ID, "task_name", name, "expires_at", msg.ExpiresAt)
	return msg, nil
}
