package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	syncservice "github.com/jordan-quiroz/sync-service"
	"github.com/jordan-quiroz/sync-service/job"
)

// EnqueueJob persists a new job in pending state.
func (s *Store) EnqueueJob(ctx context.Context, j *job.Job) error {
	m := toJobModel(j)
	_, err := s.db.Collection(colJobs).InsertOne(ctx, m)
	if err != nil {
		if isDuplicateKey(err) {
			return syncservice.ErrJobAlreadyExists
		}
		return fmt.Errorf("sync/mongo: enqueue job: %w", err)
	}
	return nil
}

// DequeueJob atomically claims one due job from the given queue. Uses
// FindOneAndUpdate for atomic claim to prevent double-delivery.
func (s *Store) DequeueJob(ctx context.Context, queue string) (*job.Job, error) {
	t := syncservice.Now()
	col := s.db.Collection(colJobs)

	filter := bson.M{
		"state":  bson.M{"$in": []string{string(job.StatePending), string(job.StateRetrying)}},
		"queue":  queue,
		"run_at": bson.M{"$lte": t},
	}

	update := bson.M{
		"$set": bson.M{
			"state":      string(job.StateRunning),
			"started_at": t,
			"updated_at": t,
		},
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "run_at", Value: 1}})

	var m jobModel
	err := col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, syncservice.ErrNoJob
		}
		return nil, fmt.Errorf("sync/mongo: dequeue job: %w", err)
	}

	return fromJobModel(&m), nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*job.Job, error) {
	col := s.db.Collection(colJobs)
	var m jobModel
	err := col.FindOne(ctx, bson.M{"_id": jobID}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, syncservice.ErrJobNotFound
		}
		return nil, fmt.Errorf("sync/mongo: get job: %w", err)
	}
	return fromJobModel(&m), nil
}

// UpdateJob persists changes to an existing job.
func (s *Store) UpdateJob(ctx context.Context, j *job.Job) error {
	m := toJobModel(j)
	m.UpdatedAt = syncservice.Now()
	col := s.db.Collection(colJobs)
	res, err := col.ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("sync/mongo: update job: %w", err)
	}
	if res.MatchedCount == 0 {
		return syncservice.ErrJobNotFound
	}
	return nil
}

// DeleteJob removes a job by ID.
func (s *Store) DeleteJob(ctx context.Context, jobID string) error {
	col := s.db.Collection(colJobs)
	res, err := col.DeleteOne(ctx, bson.M{"_id": jobID})
	if err != nil {
		return fmt.Errorf("sync/mongo: delete job: %w", err)
	}
	if res.DeletedCount == 0 {
		return syncservice.ErrJobNotFound
	}
	return nil
}

// ListJobsByState returns jobs matching the given state, oldest first.
func (s *Store) ListJobsByState(ctx context.Context, state job.State, opts job.ListOpts) ([]*job.Job, error) {
	col := s.db.Collection(colJobs)
	filter := bson.M{"state": string(state)}

	if opts.Queue != "" {
		filter["queue"] = opts.Queue
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := col.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("sync/mongo: list jobs by state: %w", err)
	}
	defer cursor.Close(ctx)

	var models []jobModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("sync/mongo: list jobs decode: %w", err)
	}

	jobs := make([]*job.Job, 0, len(models))
	for i := range models {
		jobs = append(jobs, fromJobModel(&models[i]))
	}
	return jobs, nil
}

// CountJobs returns the number of jobs matching the given options.
func (s *Store) CountJobs(ctx context.Context, opts job.CountOpts) (int64, error) {
	col := s.db.Collection(colJobs)
	filter := bson.M{}

	if opts.Queue != "" {
		filter["queue"] = opts.Queue
	}
	if opts.State != "" {
		filter["state"] = string(opts.State)
	}

	count, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("sync/mongo: count jobs: %w", err)
	}
	return count, nil
}

// PruneJobs drops all but the newest keep jobs in the given terminal
// state on the given queue.
func (s *Store) PruneJobs(ctx context.Context, queue string, state job.State, keep int) error {
	if keep < 0 {
		return nil
	}
	col := s.db.Collection(colJobs)
	filter := bson.M{"queue": queue, "state": string(state)}

	// Skip the newest keep, collect the rest for deletion.
	findOpts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetSkip(int64(keep)).
		SetProjection(bson.M{"_id": 1})

	cursor, err := col.Find(ctx, filter, findOpts)
	if err != nil {
		return fmt.Errorf("sync/mongo: prune find: %w", err)
	}
	defer cursor.Close(ctx)

	var stale []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &stale); err != nil {
		return fmt.Errorf("sync/mongo: prune decode: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	ids := make([]string, 0, len(stale))
	for _, doc := range stale {
		ids = append(ids, doc.ID)
	}

	if _, err := col.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return fmt.Errorf("sync/mongo: prune delete: %w", err)
	}
	return nil
}
