package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jordan-quiroz/sync-service/job"
)

// Queue is a named handle over a job store. It is the enqueue side of
// the durable, at-least-once delayed queue; the worker pool is the
// consume side.
type Queue struct {
	name   string
	store  job.Store
	logger *slog.Logger
}

// New creates a Queue over the given store.
func New(name string, store job.Store, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{name: name, store: store, logger: logger}
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// Store returns the underlying job store.
func (q *Queue) Store() job.Store { return q.store }

// Enqueue persists a new job and returns its handle. Delivery happens no
// earlier than the configured delay after enqueue (best effort, not
// exact). Identical payloads are not deduplicated.
func (q *Queue) Enqueue(ctx context.Context, name string, payload []byte, opts ...job.Option) (*job.Job, error) {
	j := job.New(q.name, name, payload, opts...)
	if err := q.store.EnqueueJob(ctx, j); err != nil {
		return nil, fmt.Errorf("queue %q: enqueue %q: %w", q.name, name, err)
	}

	q.logger.Debug("job enqueued",
		slog.String("queue", q.name),
		slog.String("job_id", j.ID),
		slog.String("job_name", name),
		slog.Time("run_at", j.RunAt),
	)
	return j, nil
}

// Counts returns the number of jobs in the given state on this queue.
func (q *Queue) Counts(ctx context.Context, state job.State) (int64, error) {
	return q.store.CountJobs(ctx, job.CountOpts{Queue: q.name, State: state})
}
