// Package worker consumes the job queue: an Executor runs a single job
// through its registered handler and applies the retry and retention
// policy, and a Pool manages the dequeue goroutines with a dispatch
// rate limit.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	syncservice "github.com/jordan-quiroz/sync-service"
	"github.com/jordan-quiroz/sync-service/backoff"
	"github.com/jordan-quiroz/sync-service/job"
)

// Executor runs one job through the registered handler, then handles
// retry scheduling, terminal-state updates, and history pruning.
type Executor struct {
	registry *job.Registry
	store    job.Store
	bo       backoff.Strategy
	logger   *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithBackoffStrategy sets the retry delay strategy applied to jobs that
// carry no per-job backoff. Defaults to backoff.DefaultStrategy().
func WithBackoffStrategy(b backoff.Strategy) ExecutorOption {
	return func(e *Executor) { e.bo = b }
}

// NewExecutor creates an Executor.
func NewExecutor(registry *job.Registry, store job.Store, logger *slog.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{
		registry: registry,
		store:    store,
		bo:       backoff.DefaultStrategy(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs a claimed job.
// On success: marks completed, stores the handler result, prunes the
// completed history to the job's KeepCompleted bound.
// On failure with attempts remaining: marks retrying after the job's
// backoff, or the executor's strategy when the job carries none.
// On failure with attempts exhausted: marks failed and prunes the
// failed history to KeepFailed. The job is never silently dropped.
func (e *Executor) Execute(ctx context.Context, j *job.Job) error {
	handler, ok := e.registry.Get(j.Name)
	if !ok {
		return e.handleFailure(ctx, j, fmt.Errorf("no handler registered for job %q", j.Name))
	}

	result, err := handler(ctx, j.Payload)
	if err != nil {
		return e.handleFailure(ctx, j, err)
	}
	return e.handleSuccess(ctx, j, result)
}

// handleSuccess marks the job as completed and prunes old history.
func (e *Executor) handleSuccess(ctx context.Context, j *job.Job, result []byte) error {
	now := syncservice.Now()
	j.AttemptsMade++
	j.State = job.StateCompleted
	j.CompletedAt = &now
	j.Result = result
	j.Touch()

	if updateErr := e.store.UpdateJob(ctx, j); updateErr != nil {
		e.logger.Error("failed to update job after success",
			slog.String("job_id", j.ID),
			slog.String("job_name", j.Name),
			slog.String("error", updateErr.Error()),
		)
		return updateErr
	}

	e.prune(ctx, j.Queue, job.StateCompleted, j.KeepCompleted)
	return nil
}

// handleFailure counts the attempt and either schedules a retry or
// marks the job failed.
func (e *Executor) handleFailure(ctx context.Context, j *job.Job, handlerErr error) error {
	j.AttemptsMade++
	j.LastError = handlerErr.Error()
	j.Touch()

	if j.AttemptsMade < j.MaxAttempts {
		return e.scheduleRetry(ctx, j, handlerErr)
	}
	return e.markFailed(ctx, j, handlerErr)
}

// scheduleRetry sets the job to retrying after its backoff. The per-job
// backoff wins; jobs without one fall back to the executor's strategy.
func (e *Executor) scheduleRetry(ctx context.Context, j *job.Job, handlerErr error) error {
	delay := j.Backoff
	if delay <= 0 {
		delay = e.bo.Delay(j.AttemptsMade)
	}
	j.State = job.StateRetrying
	j.RunAt = syncservice.Now().Add(delay)

	if updateErr := e.store.UpdateJob(ctx, j); updateErr != nil {
		e.logger.Error("failed to update job for retry",
			slog.String("job_id", j.ID),
			slog.String("error", updateErr.Error()),
		)
		return updateErr
	}

	e.logger.Info("job scheduled for retry",
		slog.String("job_id", j.ID),
		slog.String("job_name", j.Name),
		slog.Int("attempt", j.AttemptsMade),
		slog.Int("max_attempts", j.MaxAttempts),
		slog.Duration("backoff", delay),
	)

	return fmt.Errorf("job %s attempt %d/%d: %w", j.Name, j.AttemptsMade, j.MaxAttempts, handlerErr)
}

// markFailed records the terminal failure and prunes old history.
func (e *Executor) markFailed(ctx context.Context, j *job.Job, handlerErr error) error {
	now := syncservice.Now()
	j.State = job.StateFailed
	j.CompletedAt = &now

	if updateErr := e.store.UpdateJob(ctx, j); updateErr != nil {
		e.logger.Error("failed to update job as failed",
			slog.String("job_id", j.ID),
			slog.String("error", updateErr.Error()),
		)
		return updateErr
	}

	e.prune(ctx, j.Queue, job.StateFailed, j.KeepFailed)

	e.logger.Warn("job failed after exhausting attempts",
		slog.String("job_id", j.ID),
		slog.String("job_name", j.Name),
		slog.Int("attempts", j.AttemptsMade),
		slog.String("error", handlerErr.Error()),
	)

	return handlerErr
}

// prune trims terminal-state history. Pruning is best effort; the next
// terminal job tries again.
func (e *Executor) prune(ctx context.Context, queue string, state job.State, keep int) {
	if err := e.store.PruneJobs(ctx, queue, state, keep); err != nil {
		e.logger.Warn("prune failed",
			slog.String("queue", queue),
			slog.String("state", string(state)),
			slog.String("error", err.Error()),
		)
	}
}
