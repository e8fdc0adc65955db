package task

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Common errors returned by the TaskQueue
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// TaskQueueReader provides read-only access to the message channel
// allowing workers to consume messages without the ability to enqueue
type TaskQueueReader interface {
	// GetChannel returns a read-only channel for consuming messages
	GetChannel() <-chan Message
}

// TaskQueue is the bounded in-memory buffer between the broker consumer
// and the worker pool.
type TaskQueue struct {
	mu     sync.Mutex
	tasks  chan Message
	logger *slog.Logger
	closed bool
}

// NewTaskQueue creates a new task queue with the specified buffer size
func NewTaskQueue(size int, logger *slog.Logger) *TaskQueue {
	return &TaskQueue{
		tasks:  make(chan Message, size),
		logger: logger,
	}
}

// Enqueue adds a message to the queue for processing.
// Returns an error if the queue is full or closed
func (q *TaskQueue) Enqueue(msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- msg:
		q.logger.Debug("task enqueued",
			"task_id", msg.ID,
			"task_name", msg.Name,
			"queue_len", len(q.tasks),
			"queue_cap", cap(q.tasks))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.tasks))
	}
}

// Close closes the task queue, preventing further submission. Messages
// already buffered are still delivered.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.tasks)
		q.logger.Info("task queue closed")
	}
}

// GetChannel returns a read-only channel for consuming messages
func (q *TaskQueue) GetChannel() <-chan Message {
	return q.tasks
}
