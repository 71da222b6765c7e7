package mongo

import (
	"time"

	syncservice "github.com/jordan-quiroz/sync-service"
	"github.com/jordan-quiroz/sync-service/job"
)

// ── Job model ─────────────────────────────────────────────────────

type jobModel struct {
	ID            string     `bson:"_id"`
	Name          string     `bson:"name"`
	Queue         string     `bson:"queue"`
	Payload       []byte     `bson:"payload"`
	State         string     `bson:"state"`
	MaxAttempts   int        `bson:"max_attempts"`
	AttemptsMade  int        `bson:"attempts_made"`
	Backoff       int64      `bson:"backoff"`
	KeepCompleted int        `bson:"keep_completed"`
	KeepFailed    int        `bson:"keep_failed"`
	LastError     string     `bson:"last_error"`
	Result        []byte     `bson:"result,omitempty"`
	RunAt         time.Time  `bson:"run_at"`
	StartedAt     *time.Time `bson:"started_at,omitempty"`
	CompletedAt   *time.Time `bson:"completed_at,omitempty"`
	CreatedAt     time.Time  `bson:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at"`
}

func toJobModel(j *job.Job) *jobModel {
	return &jobModel{
		ID:            j.ID,
		Name:          j.Name,
		Queue:         j.Queue,
		Payload:       j.Payload,
		State:         string(j.State),
		MaxAttempts:   j.MaxAttempts,
		AttemptsMade:  j.AttemptsMade,
		Backoff:       j.Backoff.Nanoseconds(),
		KeepCompleted: j.KeepCompleted,
		KeepFailed:    j.KeepFailed,
		LastError:     j.LastError,
		Result:        j.Result,
		RunAt:         j.RunAt,
		StartedAt:     j.StartedAt,
		CompletedAt:   j.CompletedAt,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
	}
}

func fromJobModel(m *jobModel) *job.Job {
	return &job.Job{
		Entity: syncservice.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            m.ID,
		Name:          m.Name,
		Queue:         m.Queue,
		Payload:       m.Payload,
		State:         job.State(m.State),
		MaxAttempts:   m.MaxAttempts,
		AttemptsMade:  m.AttemptsMade,
		Backoff:       time.Duration(m.Backoff),
		KeepCompleted: m.KeepCompleted,
		KeepFailed:    m.KeepFailed,
		LastError:     m.LastError,
		Result:        m.Result,
		RunAt:         m.RunAt,
		StartedAt:     m.StartedAt,
		CompletedAt:   m.CompletedAt,
	}
}
