package job

import "time"

// Options configures per-job behavior: delayed delivery, retry budget,
// backoff, and history retention.
type Options struct {
	// Delay postpones delivery: the job becomes eligible no earlier than
	// enqueue time plus Delay (best effort, not exact).
	Delay time.Duration

	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// Backoff is the fixed wait between a failed attempt and the next.
	Backoff time.Duration

	// KeepCompleted is how many completed jobs to retain per queue.
	KeepCompleted int

	// KeepFailed is how many failed jobs to retain per queue.
	KeepFailed int
}

// DefaultOptions returns the retry and retention policy the scheduler
// attaches to sync jobs.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:   2,
		Backoff:       time.Minute,
		KeepCompleted: 20,
		KeepFailed:    50,
	}
}

// Option is a functional option for configuring a job.
type Option func(*Options)

// WithDelay postpones delivery by d.
func WithDelay(d time.Duration) Option {
	return func(o *Options) { o.Delay = d }
}

// WithMaxAttempts sets the total number of tries, including the first.
func WithMaxAttempts(n int) Option {
	return func(o *Options) { o.MaxAttempts = n }
}

// WithBackoff sets the fixed wait before a retry.
func WithBackoff(d time.Duration) Option {
	return func(o *Options) { o.Backoff = d }
}

// WithKeepCompleted bounds the completed-job history retained per queue.
func WithKeepCompleted(n int) Option {
	return func(o *Options) { o.KeepCompleted = n }
}

// WithKeepFailed bounds the failed-job history retained per queue.
func WithKeepFailed(n int) Option {
	return func(o *Options) { o.KeepFailed = n }
}
