package job

import (
	"time"

	"github.com/google/uuid"

	syncservice "github.com/jordan-quiroz/sync-service"
)

// State represents the lifecycle state of a job.
type State string

const (
	// StatePending means the job is waiting for its RunAt to pass and a
	// worker to pick it up.
	StatePending State = "pending"
	// StateRunning means a worker is currently executing the job.
	StateRunning State = "running"
	// StateCompleted means the job finished successfully.
	StateCompleted State = "completed"
	// StateFailed means the job exhausted its attempts and will not be
	// retried. It is retained (bounded) for inspection.
	StateFailed State = "failed"
	// StateRetrying means the job failed and is scheduled for another
	// attempt after its backoff interval.
	StateRetrying State = "retrying"
)

// Job represents one request to sync a single tenant.
type Job struct {
	syncservice.Entity

	ID      string `json:"id"`
	Name    string `json:"name"`
	Queue   string `json:"queue"`
	Payload []byte `json:"payload"`
	State   State  `json:"state"`

	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int `json:"max_attempts"`
	// AttemptsMade counts tries that have finished (success or failure).
	AttemptsMade int `json:"attempts_made"`
	// Backoff is the fixed wait between a failed attempt and the next.
	Backoff time.Duration `json:"backoff"`

	// KeepCompleted and KeepFailed bound the per-queue history retained
	// after this job reaches a terminal state.
	KeepCompleted int `json:"keep_completed"`
	KeepFailed    int `json:"keep_failed"`

	LastError string `json:"last_error,omitempty"`
	// Result is the JSON-encoded value returned by the handler on the
	// successful attempt.
	Result []byte `json:"result,omitempty"`

	// RunAt is the earliest time the job may be dequeued.
	RunAt       time.Time  `json:"run_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// New creates a pending job for the given queue with the given payload,
// applying opts on top of DefaultOptions.
func New(queue, name string, payload []byte, opts ...Option) *Job {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	now := syncservice.Now()
	return &Job{
		Entity:        syncservice.NewEntity(),
		ID:            uuid.NewString(),
		Name:          name,
		Queue:         queue,
		Payload:       payload,
		State:         StatePending,
		MaxAttempts:   o.MaxAttempts,
		Backoff:       o.Backoff,
		KeepCompleted: o.KeepCompleted,
		KeepFailed:    o.KeepFailed,
		RunAt:         now.Add(o.Delay),
	}
}

// Terminal reports whether the job is in a terminal state.
func (j *Job) Terminal() bool {
	return j.State == StateCompleted || j.State == StateFailed
}
