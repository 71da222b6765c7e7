package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	syncservice "github.com/jordan-quiroz/sync-service"
	"github.com/jordan-quiroz/sync-service/backoff"
	"github.com/jordan-quiroz/sync-service/job"
	"github.com/jordan-quiroz/sync-service/queue"
	"github.com/jordan-quiroz/sync-service/record"
	"github.com/jordan-quiroz/sync-service/schedule"
	"github.com/jordan-quiroz/sync-service/syncer"
	"github.com/jordan-quiroz/sync-service/worker"
)

// Deps bundles the swappable backends the engine wires together. Jobs is
// typically the Redis store and the record stores the Mongo store, but
// any implementation of the interfaces works (the memory store in tests).
type Deps struct {
	Jobs     job.Store
	Sessions record.SessionStore
	Contacts record.ContactStore
	Groups   record.GroupStore
	Statuses record.StatusStore
	Upstream syncer.Upstream
}

// Engine owns the running components of the sync service.
type Engine struct {
	cfg      syncservice.Config
	registry *job.Registry
	jobStore job.Store

	q         *queue.Queue
	limiter   *queue.Manager
	orch      *syncer.Orchestrator
	pool      *worker.Pool
	scheduler *schedule.Scheduler

	jobOpts []job.Option
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine and every component it builds.
func WithLogger(logger *slog.Logger) Option {
	return func(eng *Engine) {
		eng.logger = logger
	}
}

// Build creates an Engine from configuration and backends. Nothing runs
// until Start.
func Build(cfg syncservice.Config, deps Deps, opts ...Option) (*Engine, error) {
	if deps.Jobs == nil {
		return nil, syncservice.ErrNoStore
	}
	if deps.Sessions == nil || deps.Contacts == nil || deps.Groups == nil || deps.Statuses == nil {
		return nil, fmt.Errorf("engine: record stores are required")
	}
	if deps.Upstream == nil {
		return nil, fmt.Errorf("engine: upstream client is required")
	}

	eng := &Engine{
		cfg:      cfg,
		registry: job.NewRegistry(),
		jobStore: deps.Jobs,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(eng)
	}

	// Per-job retry and retention policy comes from configuration; the
	// scheduler stamps it onto every job it enqueues.
	eng.jobOpts = []job.Option{
		job.WithMaxAttempts(cfg.MaxAttempts),
		job.WithBackoff(cfg.RetryBackoff),
		job.WithKeepCompleted(cfg.KeepCompleted),
		job.WithKeepFailed(cfg.KeepFailed),
	}

	eng.q = queue.New(cfg.QueueName, deps.Jobs, eng.logger)

	eng.orch = syncer.New(deps.Upstream, deps.Contacts, deps.Groups, deps.Statuses, eng.logger)
	job.RegisterDefinition(eng.registry, job.NewDefinition(syncer.JobName,
		func(ctx context.Context, req syncer.Request) (any, error) {
			return eng.orch.Sync(ctx, req.TenantID, req.SessionPhone)
		}))

	eng.limiter = queue.NewManager(queue.Config{
		Name:           cfg.QueueName,
		MaxConcurrency: cfg.Concurrency,
		RateLimit:      cfg.DispatchRate,
		RateBurst:      1,
	})

	executor := worker.NewExecutor(eng.registry, deps.Jobs, eng.logger,
		worker.WithBackoffStrategy(backoff.NewFixed(cfg.RetryBackoff)))
	eng.pool = worker.NewPool(deps.Jobs, executor, cfg.QueueName, eng.logger,
		worker.WithConcurrency(cfg.Concurrency),
		worker.WithPollInterval(cfg.PollInterval),
		worker.WithLimiter(eng.limiter),
	)

	eng.scheduler = schedule.New(deps.Sessions, eng.q, cfg.CronSpec, eng.logger,
		schedule.WithStagger(cfg.StaggerInterval),
		schedule.WithJobOptions(eng.jobOpts...),
	)

	return eng, nil
}

// Start begins job processing: the scheduler arms the cron trigger and
// the worker pool starts polling the queue.
func (eng *Engine) Start(ctx context.Context) error {
	if err := eng.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("engine: start scheduler: %w", err)
	}
	if err := eng.pool.Start(ctx); err != nil {
		return fmt.Errorf("engine: start pool: %w", err)
	}
	eng.logger.Info("engine started",
		slog.String("queue", eng.cfg.QueueName),
		slog.String("cron", eng.cfg.CronSpec),
	)
	return nil
}

// Stop gracefully shuts down the engine: the scheduler stops enqueuing
// first, then the pool drains within the context deadline.
func (eng *Engine) Stop(ctx context.Context) error {
	if err := eng.scheduler.Stop(ctx); err != nil {
		eng.logger.Error("scheduler stop error", slog.String("error", err.Error()))
	}
	return eng.pool.Stop(ctx)
}

// TriggerSync enqueues an immediate sync job for one tenant, outside the
// cron cycle. The configured retry and retention policy applies.
func (eng *Engine) TriggerSync(ctx context.Context, tenantID, sessionPhone string, opts ...job.Option) (*job.Job, error) {
	payload, err := json.Marshal(syncer.Request{TenantID: tenantID, SessionPhone: sessionPhone})
	if err != nil {
		return nil, fmt.Errorf("engine: marshal sync request: %w", err)
	}
	all := append(append([]job.Option{}, eng.jobOpts...), opts...)
	return eng.q.Enqueue(ctx, syncer.JobName, payload, all...)
}

// SyncAll runs one full scheduling pass immediately: every known tenant
// gets a staggered sync job, exactly as the cron trigger would enqueue.
func (eng *Engine) SyncAll(ctx context.Context) {
	eng.scheduler.RunNow(ctx)
}

// Registry returns the job registry.
func (eng *Engine) Registry() *job.Registry { return eng.registry }

// Queue returns the sync queue.
func (eng *Engine) Queue() *queue.Queue { return eng.q }

// Scheduler returns the cron scheduler.
func (eng *Engine) Scheduler() *schedule.Scheduler { return eng.scheduler }

// Orchestrator returns the sync orchestrator.
func (eng *Engine) Orchestrator() *syncer.Orchestrator { return eng.orch }

// Limiter returns the queue dispatch limiter.
func (eng *Engine) Limiter() *queue.Manager { return eng.limiter }
