// Package mongo provides the MongoDB persistence backend: the document
// store for sessions, contacts, groups and sync statuses, plus a
// secondary job.Store for deployments without Redis.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jordan-quiroz/sync-service/job"
	"github.com/jordan-quiroz/sync-service/record"
)

// Collection name constants.
const (
	colSessions = "whatsappSessions"
	colContacts = "contacts"
	colGroups   = "groups"
	colStatuses = "syncStatuses"
	colJobs     = "syncJobs"
)

// Ensure Store implements all subsystem interfaces at compile time.
var (
	_ job.Store           = (*Store)(nil)
	_ record.SessionStore = (*Store)(nil)
	_ record.ContactStore = (*Store)(nil)
	_ record.GroupStore   = (*Store)(nil)
	_ record.StatusStore  = (*Store)(nil)
)

// Store is a MongoDB implementation of the record stores and job.Store.
// The caller owns the *mongo.Database lifecycle; Store never closes it.
type Store struct {
	db     *mongod.Database
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a new MongoDB store. The caller owns the db lifecycle --
// the Store will not close it on Close().
func New(db *mongod.Database, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying *mongo.Database for advanced usage.
func (s *Store) DB() *mongod.Database {
	return s.db
}

// Migrate creates indexes for all collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}

		_, err := s.db.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("sync/mongo: migrate %s indexes: %w", col, err)
		}
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Close is a no-op because the caller owns the *mongo.Database lifecycle.
func (s *Store) Close() error {
	return nil
}

// ── helpers ──────────────────────────────────────────────────────

// isNoDocuments returns true when err indicates no MongoDB documents found.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// isDuplicateKey checks if a MongoDB error is a duplicate key violation.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "duplicate key") ||
		strings.Contains(err.Error(), "E11000")
}

// migrationIndexes returns the index definitions for all collections.
func migrationIndexes() map[string][]mongod.IndexModel {
	return map[string][]mongod.IndexModel{
		colSessions: {
			{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
		colContacts: {
			// Merge key.
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "phoneNumber", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "sessionPhone", Value: 1}}},
		},
		colGroups: {
			// Merge key.
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "groupId", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "sessionPhone", Value: 1}}},
		},
		colStatuses: {
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "sessionPhone", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colJobs: {
			// Dequeue index: queue + state + run_at.
			{Keys: bson.D{
				{Key: "queue", Value: 1},
				{Key: "state", Value: 1},
				{Key: "run_at", Value: 1},
			}},
			// State index.
			{Keys: bson.D{{Key: "state", Value: 1}}},
		},
	}
}
