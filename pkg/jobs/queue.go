// Package jobs runs background work on a bounded in-memory worker pool.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by TryEnqueue when the buffer has no room.
var ErrQueueFull = errors.New("queue full")

// Handler processes a single payload.
type Handler[T any] func(ctx context.Context, payload T) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

type task[T any] struct {
	payload T
	attempt int
}

// Queue dispatches payloads to a fixed number of goroutines and retries
// failures with a constant delay.
type Queue[T any] struct {
	name    string
	handler Handler[T]
	cfg     QueueConfig
	logger  *zap.Logger

	tasks   chan task[T]
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	retries sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewQueue builds a queue. Call Start before enqueueing.
func NewQueue[T any](name string, handler Handler[T], cfg QueueConfig) *Queue[T] {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 64
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue[T]{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  cfg.Logger.With(zap.String("queue", name)),
		tasks:   make(chan task[T], cfg.BufferSize),
	}
}

// Start launches the workers. Subsequent calls are no-ops.
func (q *Queue[T]) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers))
}

// Stop drains buffered tasks, then stops the workers.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	q.mu.Unlock()

	q.cancel()
	q.retries.Wait()
	q.wg.Wait()
	q.drain()
	q.logger.Info("queue stopped")
}

// Enqueue blocks until the payload is buffered or ctx is done.
func (q *Queue[T]) Enqueue(ctx context.Context, payload T) error {
	qctx, err := q.running()
	if err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-qctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, qctx.Err())
	case q.tasks <- task[T]{payload: payload}:
		return nil
	}
}

// TryEnqueue buffers the payload without blocking.
func (q *Queue[T]) TryEnqueue(payload T) error {
	if _, err := q.running(); err != nil {
		return err
	}
	select {
	case q.tasks <- task[T]{payload: payload}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue[T]) running() (context.Context, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.started {
		return nil, fmt.Errorf("queue %s not started", q.name)
	}
	return q.ctx, nil
}

func (q *Queue[T]) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case t := <-q.tasks:
			q.run(q.ctx, t)
		}
	}
}

func (q *Queue[T]) run(ctx context.Context, t task[T]) {
	err := q.handler(ctx, t.payload)
	if err == nil {
		return
	}
	t.attempt++
	if t.attempt > q.cfg.MaxRetries {
		q.logger.Error("task exceeded retries", zap.Int("attempt", t.attempt), zap.Error(err))
		return
	}
	q.logger.Warn("task failed, retrying", zap.Int("attempt", t.attempt), zap.Error(err))

	q.retries.Add(1)
	go func() {
		defer q.retries.Done()
		timer := time.NewTimer(q.cfg.RetryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.run(context.Background(), t)
		case <-timer.C:
			select {
			case q.tasks <- t:
			case <-q.ctx.Done():
				q.run(context.Background(), t)
			}
		}
	}()
}

// drain runs whatever is still buffered once, without retries.
func (q *Queue[T]) drain() {
	for {
		select {
		case t := <-q.tasks:
			if err := q.handler(context.Background(), t.payload); err != nil {
				q.logger.Warn("task dropped during shutdown", zap.Error(err))
			}
		default:
			return
		}
	}
}
