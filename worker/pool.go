package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	syncservice "github.com/jordan-quiroz/sync-service"
	"github.com/jordan-quiroz/sync-service/job"
	"github.com/jordan-quiroz/sync-service/queue"
)

// Pool manages the worker goroutines that poll the queue and execute
// jobs through the Executor. The deployment default is a single
// goroutine gated to one dispatch per second: one sync at a time, so a
// shared rate-limited upstream never sees overlapping bursts.
type Pool struct {
	store        job.Store
	executor     *Executor
	queueName    string
	concurrency  int
	pollInterval time.Duration
	limiter      *queue.Manager
	logger       *slog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	activeMu   sync.Mutex
	activeJobs map[string]context.CancelFunc
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithConcurrency sets the number of worker goroutines.
func WithConcurrency(n int) PoolOption {
	return func(p *Pool) { p.concurrency = n }
}

// WithPollInterval sets how often idle workers poll for new jobs.
func WithPollInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.pollInterval = d }
}

// WithLimiter sets the dispatch limiter.
func WithLimiter(m *queue.Manager) PoolOption {
	return func(p *Pool) { p.limiter = m }
}

// NewPool creates a worker pool for the given queue.
func NewPool(store job.Store, executor *Executor, queueName string, logger *slog.Logger, opts ...PoolOption) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		store:        store,
		executor:     executor,
		queueName:    queueName,
		concurrency:  1,
		pollInterval: time.Second,
		logger:       logger,
		stopCh:       make(chan struct{}),
		activeJobs:   make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the worker goroutines. It returns immediately.
func (p *Pool) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	p.running = true

	p.logger.Info("worker pool starting",
		slog.String("queue", p.queueName),
		slog.Int("concurrency", p.concurrency),
	)

	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.dequeueLoop()
	}
	return nil
}

// Stop signals all workers to stop and waits for the in-flight job to
// finish. If the context has a deadline, active jobs are cancelled when
// time runs out.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	p.logger.Info("worker pool stopping", slog.String("queue", p.queueName))
	close(p.stopCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
	case <-ctx.Done():
		p.logger.Warn("worker pool shutdown timed out, cancelling active jobs")
		p.cancelActiveJobs()
		p.wg.Wait()
	}
	return nil
}

// dequeueLoop is run by each worker goroutine.
func (p *Pool) dequeueLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		j, err := p.store.DequeueJob(context.Background(), p.queueName)
		if err != nil {
			if !errors.Is(err, syncservice.ErrNoJob) {
				p.logger.Error("dequeue error", slog.String("error", err.Error()))
			}
			p.sleep()
			continue
		}

		// Throughput gate, independent of the queue's delay mechanism.
		if p.limiter != nil && !p.limiter.Acquire(p.queueName) {
			// Return the job to pending with a small delay.
			j.State = job.StatePending
			j.RunAt = syncservice.Now().Add(p.pollInterval)
			if updateErr := p.store.UpdateJob(context.Background(), j); updateErr != nil {
				p.logger.Error("failed to re-enqueue rate-limited job",
					slog.String("job_id", j.ID),
					slog.String("error", updateErr.Error()),
				)
			}
			p.sleep()
			continue
		}

		ctx, cancel := context.WithCancel(context.Background())
		p.trackJob(j.ID, cancel)

		execErr := p.executor.Execute(ctx, j)

		p.untrackJob(j.ID)
		cancel()
		if p.limiter != nil {
			p.limiter.Release(p.queueName)
		}

		switch {
		case execErr != nil:
			p.logger.Error("job failed",
				slog.String("job_id", j.ID),
				slog.String("job_name", j.Name),
				slog.String("error", execErr.Error()),
			)
		default:
			p.logger.Info("job completed",
				slog.String("job_id", j.ID),
				slog.String("job_name", j.Name),
				slog.String("result", string(j.Result)),
			)
		}
	}
}

func (p *Pool) sleep() {
	select {
	case <-time.After(p.pollInterval):
	case <-p.stopCh:
	}
}

func (p *Pool) trackJob(jobID string, cancel context.CancelFunc) {
	p.activeMu.Lock()
	p.activeJobs[jobID] = cancel
	p.activeMu.Unlock()
}

func (p *Pool) untrackJob(jobID string) {
	p.activeMu.Lock()
	delete(p.activeJobs, jobID)
	p.activeMu.Unlock()
}

func (p *Pool) cancelActiveJobs() {
	p.activeMu.Lock()
	defer p.activeMu.Unlock()
	for jobID, cancel := range p.activeJobs {
		p.logger.Warn("cancelling active job", slog.String("job_id", jobID))
		cancel()
	}
}
