// Package schedule enqueues one sync job per known tenant on a cron
// trigger, staggered so the upstream API never sees a burst.
package schedule

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/jordan-quiroz/sync-service/job"
	"github.com/jordan-quiroz/sync-service/record"
	"github.com/jordan-quiroz/sync-service/syncer"
)

// Enqueuer is the enqueue side of the job queue. queue.Queue satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload []byte, opts ...job.Option) (*job.Job, error)
}

// cronParser supports standard 5-field cron and descriptors like "@daily".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSpec validates a cron expression against the scheduler's parser.
func ParseSpec(spec string) (cronlib.Schedule, error) {
	return cronParser.Parse(spec)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithStagger sets the per-tenant delay step. The i-th tenant's job is
// delayed i*stagger.
func WithStagger(d time.Duration) Option {
	return func(s *Scheduler) { s.stagger = d }
}

// WithJobOptions sets the retry and retention policy attached to every
// enqueued sync job.
func WithJobOptions(opts ...job.Option) Option {
	return func(s *Scheduler) { s.jobOpts = opts }
}

// Scheduler enumerates tenant sessions on each trigger firing and
// enqueues one staggered sync job per tenant.
type Scheduler struct {
	sessions record.SessionStore
	enqueuer Enqueuer
	spec     string
	stagger  time.Duration
	jobOpts  []job.Option
	logger   *slog.Logger

	runner *cronlib.Cron
}

// New creates a Scheduler with the given cron spec.
func New(sessions record.SessionStore, enqueuer Enqueuer, spec string, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		sessions: sessions,
		enqueuer: enqueuer,
		spec:     spec,
		stagger:  time.Minute,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the trigger and launches the cron runner.
func (s *Scheduler) Start(_ context.Context) error {
	s.runner = cronlib.New(cronlib.WithParser(cronParser))
	_, err := s.runner.AddFunc(s.spec, func() {
		s.logger.Info("sync trigger fired", slog.String("spec", s.spec))
		s.RunNow(context.Background())
	})
	if err != nil {
		return err
	}

	s.runner.Start()
	s.logger.Info("scheduler started", slog.String("spec", s.spec))
	return nil
}

// Stop halts the trigger and waits for a running enqueue pass to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.runner == nil {
		return nil
	}
	select {
	case <-s.runner.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.logger.Info("scheduler stopped")
	return nil
}

// RunNow performs one scheduling pass: enumerate all tenant sessions
// and enqueue one sync job per tenant with an increasing delay offset.
// Enumeration and enqueue errors are logged, never fatal; the next
// trigger gets a fresh attempt.
func (s *Scheduler) RunNow(ctx context.Context) {
	sessions, err := s.sessions.ListSessions(ctx)
	if err != nil {
		s.logger.Error("list sessions failed", slog.String("error", err.Error()))
		return
	}
	if len(sessions) == 0 {
		s.logger.Warn("no tenant sessions found, nothing to schedule")
		return
	}

	s.logger.Info("scheduling tenant syncs", slog.Int("tenants", len(sessions)))

	queued := 0
	for i, sess := range sessions {
		payload, err := json.Marshal(syncer.Request{
			TenantID:     sess.TenantID,
			SessionPhone: sess.Phone,
		})
		if err != nil {
			s.logger.Error("marshal sync request failed",
				slog.String("tenant_id", sess.TenantID),
				slog.String("error", err.Error()),
			)
			continue
		}

		delay := time.Duration(i) * s.stagger
		opts := append([]job.Option{job.WithDelay(delay)}, s.jobOpts...)
		j, err := s.enqueuer.Enqueue(ctx, syncer.JobName, payload, opts...)
		if err != nil {
			s.logger.Error("enqueue sync job failed",
				slog.String("tenant_id", sess.TenantID),
				slog.String("error", err.Error()),
			)
			continue
		}

		queued++
		s.logger.Info("sync job queued",
			slog.String("tenant_id", sess.TenantID),
			slog.String("job_id", j.ID),
			slog.Duration("delay", delay),
		)
	}

	s.logger.Info("scheduling pass finished",
		slog.Int("tenants", len(sessions)),
		slog.Int("queued", queued),
	)
}
