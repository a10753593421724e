// Package jobs provides a small in-process worker queue. The console uses it
// for fire-and-forget persistence work (the audit trail) where the enqueueing
// request must not wait on, or fail because of, the write.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handler processes one queued item. A non-nil error triggers a retry.
type Handler[T any] func(context.Context, T) error

// Options configures the worker pool.
type Options struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

type item[T any] struct {
	value   T
	attempt int
}

// Queue fans queued items out to a fixed set of workers. Stop closes intake
// and drains everything already buffered before returning, so items accepted
// by Enqueue are never dropped by shutdown.
type Queue[T any] struct {
	name    string
	handler Handler[T]
	opts    Options

	items chan item[T]
	ctx   context.Context
	wg    sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// New builds a queue with the provided handler. Start must be called before
// Enqueue accepts items.
func New[T any](name string, handler Handler[T], opts Options) *Queue[T] {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = opts.Workers * 8
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Queue[T]{
		name:    name,
		handler: handler,
		opts:    opts,
		items:   make(chan item[T], opts.BufferSize),
	}
}

// Start launches the workers. Handlers run on a context detached from ctx's
// cancellation so buffered items still complete during shutdown drain.
func (q *Queue[T]) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx = context.WithoutCancel(ctx)
	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.opts.Logger.Sugar().Infow("queue started", "queue", q.name, "workers", q.opts.Workers)
}

// Stop refuses further items, drains the buffer and waits for the workers.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	if !q.started || q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.items)
	q.mu.Unlock()

	q.wg.Wait()
	q.opts.Logger.Sugar().Infow("queue drained", "queue", q.name)
}

// Enqueue hands an item to the pool without blocking on a full buffer.
func (q *Queue[T]) Enqueue(value T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if q.stopped {
		return fmt.Errorf("queue %s stopped", q.name)
	}
	select {
	case q.items <- item[T]{value: value}:
		return nil
	default:
		return fmt.Errorf("queue %s full", q.name)
	}
}

func (q *Queue[T]) worker() {
	defer q.wg.Done()
	for it := range q.items {
		q.process(it)
	}
}

// process retries in place rather than re-enqueueing, so a failing item
// cannot outlive the drain.
func (q *Queue[T]) process(it item[T]) {
	for {
		err := q.handler(q.ctx, it.value)
		if err == nil {
			return
		}
		it.attempt++
		if it.attempt >= q.opts.MaxRetries {
			q.opts.Logger.Sugar().Errorw("job exceeded retries", "queue", q.name, "attempts", it.attempt, "error", err)
			return
		}
		q.opts.Logger.Sugar().Warnw("job failed, retrying", "queue", q.name, "attempt", it.attempt, "error", err)
		time.Sleep(q.opts.RetryDelay)
	}
}
