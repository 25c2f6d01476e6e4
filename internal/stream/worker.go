package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

var (
	ErrClosed    = errors.New("stream: closed")
	ErrQueueFull = errors.New("stream: worker queue full")
)

// DefaultQueueSize bounds the number of sessions waiting behind the running one.
const DefaultQueueSize = 8

// Task is one unit of work on the worker. ctx is cancelled when the worker
// shuts down.
type Task func(ctx context.Context)

// Worker runs submitted tasks one at a time, in submission order, on a
// single goroutine. Every device call goes through it.
type Worker struct {
	logger *slog.Logger
	tasks  chan Task
	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewWorker(queueSize int, logger *slog.Logger) *Worker {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		logger: logger,
		tasks:  make(chan Task, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	w.wg.Go(w.loop)
	return w
}

func (w *Worker) loop() {
	for task := range w.tasks {
		if w.ctx.Err() != nil {
			// Shutting down: pending tasks are dropped.
			continue
		}
		w.run(task)
	}
}

func (w *Worker) run(task Task) {
	var catcher panics.Catcher
	catcher.Try(func() { task(w.ctx) })
	if r := catcher.Recovered(); r != nil {
		w.logger.Error("Worker task panicked", "panic", r.Value, "stack", string(r.Stack))
	}
}

// Submit queues task without blocking.
func (w *Worker) Submit(task Task) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrClosed
	}

	select {
	case w.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Sync waits until every task submitted before it has finished.
func (w *Worker) Sync(ctx context.Context) error {
	done := make(chan struct{})
	barrier := func(context.Context) { close(done) }

	if err := w.enqueue(ctx, barrier); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-w.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue is Submit that waits for queue space.
func (w *Worker) enqueue(ctx context.Context, task Task) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrClosed
	}

	select {
	case w.tasks <- task:
		return nil
	case <-w.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels the running task, discards pending ones and waits for the
// worker goroutine to exit. Later submissions fail with ErrClosed.
func (w *Worker) Close() {
	w.cancel()

	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.tasks)
	}
	w.mu.Unlock()

	w.wg.Wait()
}
