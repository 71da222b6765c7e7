package syncservice

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds the full service configuration.
type Config struct {
	// MongoURI is the MongoDB connection string for the entity store.
	MongoURI string

	// MongoDatabase is the database name. Empty means the database
	// embedded in the connection string.
	MongoDatabase string

	// RedisAddr is the host:port of the Redis broker backing the job queue.
	RedisAddr string

	// RedisPassword is the optional broker password.
	RedisPassword string

	// RedisDB is the Redis logical database index.
	RedisDB int

	// APIBaseURL is the base URL of the Evolution API instance.
	APIBaseURL string

	// APIKey is the static apikey header value for all upstream calls.
	APIKey string

	// CronSpec is the cron expression for the nightly sync trigger.
	CronSpec string

	// QueueName is the fixed job queue name.
	QueueName string

	// Concurrency is the number of jobs processed simultaneously.
	// The deployment default is 1: a shared rate-limited upstream must
	// never see overlapping sync bursts.
	Concurrency int

	// DispatchRate is the maximum sustained jobs per second dispatched
	// by the worker, independent of the queue's own delay mechanism.
	DispatchRate float64

	// PollInterval is how often idle workers poll the queue.
	PollInterval time.Duration

	// StaggerInterval is the per-tenant delay step applied by the
	// scheduler: the i-th tenant's job is delayed i*StaggerInterval.
	StaggerInterval time.Duration

	// MaxAttempts is the total number of tries per sync job.
	MaxAttempts int

	// RetryBackoff is the fixed wait before a failed job is retried.
	RetryBackoff time.Duration

	// KeepCompleted and KeepFailed bound the job history retained for
	// diagnostics after completion and after exhausting retries.
	KeepCompleted int
	KeepFailed    int

	// ShutdownTimeout is the maximum wait for the in-flight job during
	// graceful shutdown.
	ShutdownTimeout time.Duration

	// Timezone is the fixed zone for all persisted timestamps.
	Timezone string

	// LogLevel is the minimum slog level (debug, info, warn, error).
	LogLevel string
}

// DefaultConfig returns a Config with the production defaults.
func DefaultConfig() Config {
	return Config{
		MongoURI:        "mongodb://localhost:27017/extraerinfo",
		RedisAddr:       "localhost:6379",
		APIBaseURL:      "http://evolution-api:8080",
		CronSpec:        "0 0 * * *",
		QueueName:       "sync-contacts-groups",
		Concurrency:     1,
		DispatchRate:    1,
		PollInterval:    time.Second,
		StaggerInterval: time.Minute,
		MaxAttempts:     2,
		RetryBackoff:    time.Minute,
		KeepCompleted:   20,
		KeepFailed:      50,
		ShutdownTimeout: 30 * time.Second,
		Timezone:        DefaultTimezone,
		LogLevel:        "info",
	}
}

// LoadConfig reads configuration from the environment, falling back to
// DefaultConfig values.
func LoadConfig() (Config, error) {
	def := DefaultConfig()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("MONGODB_URI", def.MongoURI)
	v.SetDefault("MONGODB_DATABASE", def.MongoDatabase)
	v.SetDefault("REDIS_ADDR", def.RedisAddr)
	v.SetDefault("REDIS_PASSWORD", def.RedisPassword)
	v.SetDefault("REDIS_DB", def.RedisDB)
	v.SetDefault("WHATSAPP_API_URL", def.APIBaseURL)
	v.SetDefault("WHATSAPP_API_KEY", def.APIKey)
	v.SetDefault("SYNC_CRON_TIME", def.CronSpec)
	v.SetDefault("SYNC_QUEUE", def.QueueName)
	v.SetDefault("SYNC_CONCURRENCY", def.Concurrency)
	v.SetDefault("SYNC_DISPATCH_RATE", def.DispatchRate)
	v.SetDefault("SYNC_POLL_INTERVAL", def.PollInterval)
	v.SetDefault("SYNC_STAGGER", def.StaggerInterval)
	v.SetDefault("SYNC_MAX_ATTEMPTS", def.MaxAttempts)
	v.SetDefault("SYNC_RETRY_BACKOFF", def.RetryBackoff)
	v.SetDefault("SYNC_KEEP_COMPLETED", def.KeepCompleted)
	v.SetDefault("SYNC_KEEP_FAILED", def.KeepFailed)
	v.SetDefault("SYNC_SHUTDOWN_TIMEOUT", def.ShutdownTimeout)
	v.SetDefault("SYNC_TIMEZONE", def.Timezone)
	v.SetDefault("LOG_LEVEL", def.LogLevel)

	cfg := Config{
		MongoURI:        v.GetString("MONGODB_URI"),
		MongoDatabase:   v.GetString("MONGODB_DATABASE"),
		RedisAddr:       v.GetString("REDIS_ADDR"),
		RedisPassword:   v.GetString("REDIS_PASSWORD"),
		RedisDB:         v.GetInt("REDIS_DB"),
		APIBaseURL:      v.GetString("WHATSAPP_API_URL"),
		APIKey:          v.GetString("WHATSAPP_API_KEY"),
		CronSpec:        v.GetString("SYNC_CRON_TIME"),
		QueueName:       v.GetString("SYNC_QUEUE"),
		Concurrency:     v.GetInt("SYNC_CONCURRENCY"),
		DispatchRate:    v.GetFloat64("SYNC_DISPATCH_RATE"),
		PollInterval:    v.GetDuration("SYNC_POLL_INTERVAL"),
		StaggerInterval: v.GetDuration("SYNC_STAGGER"),
		MaxAttempts:     v.GetInt("SYNC_MAX_ATTEMPTS"),
		RetryBackoff:    v.GetDuration("SYNC_RETRY_BACKOFF"),
		KeepCompleted:   v.GetInt("SYNC_KEEP_COMPLETED"),
		KeepFailed:      v.GetInt("SYNC_KEEP_FAILED"),
		ShutdownTimeout: v.GetDuration("SYNC_SHUTDOWN_TIMEOUT"),
		Timezone:        v.GetString("SYNC_TIMEZONE"),
		LogLevel:        v.GetString("LOG_LEVEL"),
	}

	if err := SetTimezone(cfg.Timezone); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
