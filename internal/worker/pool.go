package worker

import (
	"context"
	"errors"
	"sync"

	"tryon/internal/infra"
)

// ErrQueueFull is returned when a task cannot be enqueued without blocking.
var ErrQueueFull = errors.New("worker: task queue is full")

// ErrStopped is returned when the pool is no longer accepting tasks.
var ErrStopped = errors.New("worker: pool stopped")

// Task is one unit of background work. The context passed in is the pool's
// run context; a task started before shutdown runs to completion.
type Task func(ctx context.Context)

// Pool runs fire-and-forget tasks on a fixed set of goroutines. Submission
// never blocks the caller: the queue is bounded and a full queue is reported
// as an error so the HTTP layer can shed load instead of hanging.
type Pool struct {
	tasks   chan Task
	workers int
	logger  infra.Logger

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// NewPool creates a pool with the given worker count and queue capacity.
func NewPool(workers, queueSize int, logger infra.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		tasks:   make(chan Task, queueSize),
		workers: workers,
		logger:  logger,
	}
}

// Start launches the workers. Tasks submitted before Start are queued.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.logger.Info().Int("workers", p.workers).Msg("worker: pool started")
}

// Submit enqueues a task without blocking.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks and waits for queued work to drain.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info().Msg("worker: pool stopped")
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	p.logger.Debug().Int("worker_id", id).Msg("worker: started")
	for task := range p.tasks {
		task(ctx)
	}
	p.logger.Debug().Int("worker_id", id).Msg("worker: finished")
}
