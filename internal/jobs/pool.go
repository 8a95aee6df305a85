package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultWorkers bounds concurrent jobs at the process level. Each job fans
// out many vision calls, so running more jobs at once mostly trades rate
// limit headroom for queue latency.
const DefaultWorkers = 2

// ErrPoolClosed is returned by Submit after Shutdown has begun.
var ErrPoolClosed = errors.New("worker pool is shut down")

// Runner executes one job to a terminal state. Implementations must honor
// context cancellation cooperatively: a cancelled context means the job's
// results will be discarded, not that work is force-killed.
type Runner interface {
	Run(ctx context.Context, job *Job)
}

// Pool is a bounded worker pool for analysis jobs. The job record must be
// durably stored before Submit, the pool itself keeps no persistent state.
type Pool struct {
	runner Runner
	sem    chan struct{}
	logger *slog.Logger

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	closed  bool
	wg      sync.WaitGroup
}

// NewPool creates a pool running at most workers jobs concurrently.
func NewPool(runner Runner, workers int, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		runner:     runner,
		sem:        make(chan struct{}, workers),
		logger:     logger,
		baseCtx:    ctx,
		baseCancel: cancel,
		cancels:    make(map[string]context.CancelFunc),
	}
}

// Submit hands a pending job to the pool. It never blocks on worker
// availability; the job waits for a slot in its own goroutine. The caller
// is responsible for having created the job record already.
func (p *Pool) Submit(job *Job) error {
	if job == nil || job.ID == "" {
		return errors.New("submit: job has no ID")
	}
	if job.Status != StatusPending {
		return fmt.Errorf("submit: job %s is %s, want pending", job.ID, job.Status)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	jobCtx, cancel := context.WithCancel(p.baseCtx)
	p.cancels[job.ID] = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer p.forget(job.ID)

		select {
		case p.sem <- struct{}{}:
			defer func() { <-p.sem }()
		case <-jobCtx.Done():
			p.logger.Debug("job cancelled before a worker picked it up", "job_id", job.ID)
			return
		}

		p.logger.Info("job started", "job_id", job.ID, "mode", job.Mode)
		p.runner.Run(jobCtx, job)
		p.logger.Info("job finished", "job_id", job.ID)
	}()
	return nil
}

// Cancel signals the job's context. It reports whether the job was known to
// the pool. In-flight work runs to natural completion; the status reader is
// what makes the cancellation stick.
func (p *Pool) Cancel(jobID string) bool {
	p.mu.Lock()
	cancel, ok := p.cancels[jobID]
	p.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Wait blocks until every submitted job has finished, without cancelling
// anything.
func (p *Pool) Wait() { p.wg.Wait() }

// Shutdown stops accepting jobs, cancels everything in flight, and waits
// for workers to drain or the context to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.baseCancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker pool drain: %w", ctx.Err())
	}
}

func (p *Pool) forget(jobID string) {
	p.mu.Lock()
	if cancel, ok := p.cancels[jobID]; ok {
		cancel()
		delete(p.cancels, jobID)
	}
	p.mu.Unlock()
}
