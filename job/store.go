package job

import "context"

// ListOpts controls pagination and filtering for job list queries.
type ListOpts struct {
	// Limit is the maximum number of jobs to return. Zero means no limit.
	Limit int
	// Offset is the number of jobs to skip.
	Offset int
	// Queue filters by queue name. Empty means all queues.
	Queue string
}

// CountOpts controls filtering for job count queries.
type CountOpts struct {
	// Queue filters by queue name. Empty means all queues.
	Queue string
	// State filters by job state. Empty means all states.
	State State
}

// Store defines the persistence contract for the job queue. Backends
// provide at-least-once, delayed delivery: a dequeued job may be
// re-delivered after a crash, so handlers must be idempotent.
type Store interface {
	// EnqueueJob persists a new job in pending state.
	EnqueueJob(ctx context.Context, j *Job) error

	// DequeueJob atomically claims one due job (pending or retrying,
	// RunAt <= now) from the queue, sets it to running, and returns it.
	// Jobs are ordered by RunAt. Returns ErrNoJob when nothing is due.
	DequeueJob(ctx context.Context, queue string) (*Job, error)

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*Job, error)

	// UpdateJob persists changes to an existing job.
	UpdateJob(ctx context.Context, j *Job) error

	// DeleteJob removes a job by ID.
	DeleteJob(ctx context.Context, jobID string) error

	// ListJobsByState returns jobs matching the given state, oldest first.
	ListJobsByState(ctx context.Context, state State, opts ListOpts) ([]*Job, error)

	// CountJobs returns the number of jobs matching the given options.
	CountJobs(ctx context.Context, opts CountOpts) (int64, error)

	// PruneJobs drops all but the newest keep jobs in the given terminal
	// state on the given queue. A negative keep is a no-op.
	PruneJobs(ctx context.Context, queue string, state State, keep int) error
}
