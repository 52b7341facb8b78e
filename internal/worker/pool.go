// internal/worker/pool.go
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"wallet-ledger/internal/metrics"
)

// ErrClosed is returned by Submit after Shutdown.
var ErrClosed = errors.New("worker pool is shut down")

// ErrQueueFull is returned when a job is dropped because the queue is at capacity.
var ErrQueueFull = errors.New("worker queue is full")

// Job is a unit of background work. The context is cancelled on Shutdown
// only if draining exceeds the shutdown deadline.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pool runs jobs on a fixed set of goroutines fed by a bounded queue.
type Pool struct {
	jobs    chan Job
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.RWMutex
	closed  bool
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPool starts size workers over a queue of the given capacity.
func NewPool(size, capacity int, m *metrics.Metrics, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if capacity < 0 {
		capacity = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobs:    make(chan Job, capacity),
		ctx:     ctx,
		cancel:  cancel,
		metrics: m,
		logger:  logger,
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.work()
	}
	return p
}

func (p *Pool) work() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.run(job)
	}
}

func (p *Pool) run(job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("background job panicked", "job", job.Name, "panic", r)
		}
	}()
	if err := job.Run(p.ctx); err != nil {
		p.logger.Warn("background job failed", "job", job.Name, "error", err)
	}
}

// Submit enqueues job without blocking. A full queue drops the job; durable
// state lets the retrier and commission sweep recover it.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		p.metrics.WorkerDropped()
		p.logger.Warn("worker queue full, dropping job", "job", job.Name)
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish. If ctx
// expires first, running jobs are cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
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
		<-done
		return ctx.Err()
	}
}
