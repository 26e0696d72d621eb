package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/platinummonkey/carebase/pkg/observability"
)

var (
	// ErrPoolClosed is returned by Submit after Shutdown
	ErrPoolClosed = errors.New("worker pool shut down")

	// ErrQueueFull is returned by Submit when every queue slot is taken
	ErrQueueFull = errors.New("worker pool queue full")
)

// Task is a unit of background work
type Task func(ctx context.Context) error

// Pool runs submitted tasks on a fixed set of workers. Each task runs under
// its own timeout; errors and panics are logged and never reach the caller.
type Pool struct {
	name    string
	timeout time.Duration
	logger  *observability.Logger

	tasks chan Task
	wg    sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	// guards closed and the close of tasks against concurrent Submit
	mu     sync.RWMutex
	closed bool

	failed  atomic.Int64
	dropped atomic.Int64
}

// NewPool starts workers goroutines draining a queue of the given size
func NewPool(name string, workers, queue int, timeout time.Duration, logger *observability.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queue < 0 {
		queue = 0
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		name:    name,
		timeout: timeout,
		logger:  logger.WithField("pool", name),
		tasks:   make(chan Task, queue),
		ctx:     ctx,
		cancel:  cancel,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Submit queues task without blocking
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		p.dropped.Add(1)
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish. When
// ctx ends first, running tasks are cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return fmt.Errorf("%s pool shutdown: %w", p.name, ctx.Err())
	}
}

// Failed returns how many tasks returned an error or panicked
func (p *Pool) Failed() int64 {
	return p.failed.Load()
}

// Dropped returns how many tasks were refused because the queue was full
func (p *Pool) Dropped() int64 {
	return p.dropped.Load()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task Task) {
	defer observability.RecoverPanicWithCallback(p.logger, p.name, func(interface{}) {
		p.failed.Add(1)
	})

	ctx := p.ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := task(ctx); err != nil {
		p.failed.Add(1)
		p.logger.WithError(err).Warn("Background task failed")
	}
}
