// Command sync-service runs the WhatsApp contact and group sync daemon:
// a nightly cron trigger enqueues one staggered job per tenant, and a
// rate-limited worker syncs each tenant's contacts and groups from the
// Evolution API into MongoDB. Redis backs the durable job queue.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	syncservice "github.com/jordan-quiroz/sync-service"
	"github.com/jordan-quiroz/sync-service/engine"
	"github.com/jordan-quiroz/sync-service/evolution"
	mongostore "github.com/jordan-quiroz/sync-service/store/mongo"
	redisstore "github.com/jordan-quiroz/sync-service/store/redis"
)

func main() {
	cfg, err := syncservice.LoadConfig()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	// MongoDB: entity store for sessions, contacts, groups and statuses.
	mongoClient, err := mongod.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Error("mongodb connect failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Error("mongodb disconnect error", slog.String("error", err.Error()))
		}
	}()

	db := mongoClient.Database(databaseName(cfg))
	records := mongostore.New(db, mongostore.WithLogger(logger))
	if err := records.Ping(ctx); err != nil {
		logger.Error("mongodb ping failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := records.Migrate(ctx); err != nil {
		logger.Error("mongodb migration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Redis: durable broker for the job queue.
	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}()

	jobs := redisstore.New(redisClient, redisstore.WithLogger(logger))
	if err := jobs.Ping(ctx); err != nil {
		logger.Error("redis ping failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	upstream := evolution.NewClient(cfg.APIBaseURL, cfg.APIKey, evolution.WithLogger(logger))

	eng, err := engine.Build(cfg, engine.Deps{
		Jobs:     jobs,
		Sessions: records,
		Contacts: records,
		Groups:   records,
		Statuses: records,
		Upstream: upstream,
	}, engine.WithLogger(logger))
	if err != nil {
		logger.Error("failed to build engine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := eng.Start(ctx); err != nil {
		logger.Error("failed to start engine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("sync service running",
		slog.String("queue", cfg.QueueName),
		slog.String("cron", cfg.CronSpec),
		slog.String("timezone", cfg.Timezone),
	)

	// Wait for shutdown signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := eng.Stop(shutdownCtx); err != nil {
		logger.Error("engine shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("goodbye")
}

// databaseName resolves the Mongo database: the explicit config value
// wins, otherwise the path component of the connection URI.
func databaseName(cfg syncservice.Config) string {
	if cfg.MongoDatabase != "" {
		return cfg.MongoDatabase
	}
	uri := cfg.MongoURI
	if i := strings.Index(uri, "?"); i >= 0 {
		uri = uri[:i]
	}
	if i := strings.LastIndex(uri, "/"); i >= 0 && i+1 < len(uri) {
		if name := uri[i+1:]; !strings.Contains(name, ":") {
			return name
		}
	}
	return "extraerinfo"
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
