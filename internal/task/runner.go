package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process messages
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// PollTimeout bounds each blocking read from the broker, and with it
	// how quickly Stop is noticed by the consumer
	PollTimeout time.Duration
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount: 2,
		QueueSize:   100,
		PollTimeout: 5 * time.Second,
	}
}

// TaskRunner consumes messages from a broker and executes them on a
// worker pool, recording every outcome in the result backend.
type TaskRunner struct {
	broker   Broker
	backend  ResultBackend
	registry *Registry
	queue    *TaskQueue
	pool     *WorkerPool

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     TaskRunnerConfig
	logger     *slog.Logger
	now        func() time.Time

	// retryDelay is the pause after a broker error or a full queue
	retryDelay time.Duration
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(
	broker Broker,
	backend ResultBackend,
	registry *Registry,
	config TaskRunnerConfig,
	logger *slog.Logger,
) *TaskRunner {
	defaults := DefaultTaskRunnerConfig()
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = defaults.PollTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &TaskRunner{
		broker:     broker,
		backend:    backend,
		registry:   registry,
		queue:      NewTaskQueue(config.QueueSize, logger),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger,
		now:        time.Now,
		retryDelay: time.Second,
	}
	r.pool = NewWorkerPool(r.queue, r.processMessage, WorkerPoolConfig{WorkerCount: config.WorkerCount}, logger)
	return r
}

// Start launches the worker pool and the broker consumer.
func (r *TaskRunner) Start() {
	r.pool.Start()

	r.wg.Add(1)
	go r.consume()

	r.logger.Info("task runner started",
		"worker_count", r.config.WorkerCount,
		"queue_size", r.config.QueueSize,
		"tasks", r.registry.Names())
}

// Stop stops consuming, lets the workers finish the buffered messages and
// cancels whatever is still running when ctx ends.
func (r *TaskRunner) Stop(ctx context.Context) error {
	r.cancelFunc()
	r.wg.Wait()
	r.queue.Close()

	done := make(chan struct{})
	go func() {
		r.pool.Drain()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("task runner stopped")
		return nil
	case <-ctx.Done():
		r.pool.Stop()
		<-done
		return fmt.Errorf("task runner stopped before draining: %w", ctx.Err())
	}
}

// consume moves messages from the broker into the in-memory queue.
func (r *TaskRunner) consume() {
	defer r.wg.Done()

	for {
		if r.ctx.Err() != nil {
			return
		}

		msg, err := r.broker.Consume(r.ctx, r.config.PollTimeout)
		if err != nil {
			if r.ctx.Err() != nil {
				return
			}
			r.logger.Error("failed to consume from broker", "error", err)
			r.sleep()
			continue
		}
		if msg == nil {
			continue
		}

		r.enqueue(*msg)
	}
}

// enqueue waits for room in the queue. A message that cannot be queued
// before shutdown is returned to the broker.
func (r *TaskRunner) enqueue(msg Message) {
	for {
		err := r.queue.Enqueue(msg)
		if err == nil {
			return
		}
		if !errors.Is(err, ErrQueueFull) || !r.sleep() {
			r.requeue(msg)
			return
		}
	}
}

func (r *TaskRunner) requeue(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.broker.Publish(ctx, msg); err != nil {
		r.logger.Error("failed to return message to broker",
			"task_id", msg.ID,
			"task_name", msg.Name,
			"error", err)
		return
	}
	r.logger.Info("returned message to broker", "task_id", msg.ID, "task_name", msg.Name)
}

// sleep pauses for retryDelay and reports false if the runner stopped.
func (r *TaskRunner) sleep() bool {
	t := time.NewTimer(r.retryDelay)
	defer t.Stop()

	select {
	case <-r.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// processMessage executes one message and records its outcome.
func (r *TaskRunner) processMessage(ctx context.Context, msg Message) error {
	logger := r.logger.With("task_id", msg.ID, "task_name", msg.Name)

	if msg.Expired(r.now()) {
		logger.Warn("task expired, revoking", "expires_at", msg.ExpiresAt)
		r.record(ctx, msg, TaskStatusRevoked, ErrTaskExpired)
		return nil
	}

	handler, err := r.registry.Lookup(msg.Name)
	if err != nil {
		r.record(ctx, msg, TaskStatusFailure, err)
		return err
	}

	r.record(ctx, msg, TaskStatusStarted, nil)
	logger.Info("processing task")

	start := time.Now()
	if err := runHandler(ctx, handler, msg.Payload); err != nil {
		r.record(ctx, msg, TaskStatusFailure, err)
		return err
	}

	r.record(ctx, msg, TaskStatusSuccess, nil)
	logger.Info("task completed successfully", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (r *TaskRunner) record(ctx context.Context, msg Message, status TaskStatus, cause error) {
	result := Result{
		ID:        msg.ID,
		Name:      msg.Name,
		Status:    status,
		UpdatedAt: r.now().UTC(),
	}
	if cause != nil {
		result.Error = cause.Error()
	}

	if err := r.backend.SetStatus(context.WithoutCancel(ctx), result); err != nil {
		r.logger.Error("failed to record task status",
			"task_id", msg.ID,
			"status", status,
			"error", err)
	}
}

func runHandler(ctx context.Context, h Handler, payload json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return h(ctx, payload)
}
