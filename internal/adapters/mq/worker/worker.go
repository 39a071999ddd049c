// Package worker runs handlers over items read from a queue.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/adcraft/pkg/logger"
	"github.com/okian/adcraft/pkg/metrics"
)

const (
	defaultName             = "worker"
	defaultWorkerMultiplier = 2
	poolShutdownTimeout     = 30 * time.Second
)

// Handler processes one item. A returned error is logged and counted; the
// worker keeps running.
type Handler[T any] func(ctx context.Context, item T) error

// Queue defines how workers receive items.
type Queue[T any] interface {
	Dequeue(ctx context.Context) <-chan T
}

// Worker processes items from a queue until it is drained, stopped or ctx ends.
type Worker[T any] struct {
	name    string
	queue   Queue[T]
	handler Handler[T]
	logger  logger.Logger

	stop chan struct{}
	done chan struct{}
}

func newWorker[T any](name string, q Queue[T], h Handler[T], l logger.Logger, stop chan struct{}) *Worker[T] {
	return &Worker[T]{
		name:    name,
		queue:   q,
		handler: h,
		logger:  l.Named(name),
		stop:    stop,
		done:    make(chan struct{}),
	}
}

// Run starts the worker loop.
func (w *Worker[T]) Run(ctx context.Context) {
	defer close(w.done)
	metrics.AddWorkerActive(1)
	defer metrics.AddWorkerActive(-1)

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case item, ok := <-items:
			if !ok {
				return
			}
			w.process(ctx, item)
		}
	}
}

func (w *Worker[T]) process(ctx context.Context, item T) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordWorkerError()
			w.logger.Error(ctx, "handler panicked", logger.Any("panic", r))
		}
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := w.handler(ctx, item); err != nil {
		metrics.RecordWorkerError()
		w.logger.Error(ctx, "error processing item", logger.Error(err))
	}
}

// Pool manages a fixed set of workers sharing one queue.
type Pool[T any] struct {
	name    string
	queue   Queue[T]
	workers []*Worker[T]
	logger  logger.Logger

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
}

// NewPool creates a pool. Without WithSize it starts 2×NumCPU workers.
func NewPool[T any](q Queue[T], h Handler[T], opts ...Option) *Pool[T] {
	o := options{name: defaultName, size: runtime.NumCPU() * defaultWorkerMultiplier}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get()
	}

	p := &Pool[T]{
		name:   o.name,
		queue:  q,
		logger: o.logger.Named(o.name + "-pool"),
		stop:   make(chan struct{}),
	}
	p.workers = make([]*Worker[T], o.size)
	for i := range p.workers {
		p.workers[i] = newWorker(o.name+"-"+strconv.Itoa(i), q, h, o.logger, p.stop)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool[T]) Size() int { return len(p.workers) }

// Start starts all workers.
func (p *Pool[T]) Start(ctx context.Context) {
	p.started.Store(true)
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue and waits for workers to drain it. A pool that was
// never started returns at once. If ctx ends first (or after
// poolShutdownTimeout) the workers are told to stop and the remaining items
// are dropped.
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	if !p.started.Load() {
		p.stopOnce.Do(func() { close(p.stop) })
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.stopOnce.Do(func() { close(p.stop) })
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("shutdown %s pool: %w", p.name, shutdownCtx.Err())
		}
	}
	p.stopOnce.Do(func() { close(p.stop) })
	return nil
}
