package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	syncservice "github.com/jordan-quiroz/sync-service"
	"github.com/jordan-quiroz/sync-service/job"
)

// EnqueueJob stores the job as a Hash and adds it to the queue's
// delayed-delivery Sorted Set, scored by RunAt.
func (s *Store) EnqueueJob(ctx context.Context, j *job.Job) error {
	key := jobKey(j.ID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("sync/redis: enqueue check exists: %w", err)
	}
	if exists > 0 {
		return syncservice.ErrJobAlreadyExists
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, jobToMap(j))
	pipe.SAdd(ctx, jobIDsKey, j.ID)
	pipe.ZAdd(ctx, pendingKey(j.Queue), goredis.Z{
		Score:  float64(j.RunAt.UnixMilli()),
		Member: j.ID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sync/redis: enqueue job: %w", err)
	}
	return nil
}

// DequeueJob claims the earliest due job. The ZRem is the atomic claim:
// if another consumer removed the member first, the candidate is
// skipped and the next one tried.
func (s *Store) DequeueJob(ctx context.Context, queue string) (*job.Job, error) {
	now := syncservice.Now()
	qk := pendingKey(queue)

	ids, err := s.client.ZRangeByScore(ctx, qk, &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: 8,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("sync/redis: dequeue range: %w", err)
	}

	for _, id := range ids {
		removed, remErr := s.client.ZRem(ctx, qk, id).Result()
		if remErr != nil {
			return nil, fmt.Errorf("sync/redis: dequeue claim: %w", remErr)
		}
		if removed == 0 {
			continue // lost the race for this member
		}

		key := jobKey(id)
		ts := now.Format(time.RFC3339Nano)
		if err := s.client.HSet(ctx, key,
			"state", string(job.StateRunning),
			"started_at", ts,
			"updated_at", ts,
		).Err(); err != nil {
			return nil, fmt.Errorf("sync/redis: dequeue update: %w", err)
		}

		return s.getJobByKey(ctx, key)
	}

	return nil, syncservice.ErrNoJob
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID string) (*job.Job, error) {
	return s.getJobByKey(ctx, jobKey(jobID))
}

// UpdateJob persists changes to an existing job and moves it between
// the pending set and the bounded history sets to match its state.
func (s *Store) UpdateJob(ctx context.Context, j *job.Job) error {
	key := jobKey(j.ID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("sync/redis: update job exists: %w", err)
	}
	if exists == 0 {
		return syncservice.ErrJobNotFound
	}

	now := syncservice.Now()
	fields := jobToMap(j)
	fields["updated_at"] = now.Format(time.RFC3339Nano)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fields)

	switch j.State {
	case job.StatePending, job.StateRetrying:
		// Back into the delayed-delivery set at the new RunAt.
		pipe.ZAdd(ctx, pendingKey(j.Queue), goredis.Z{
			Score:  float64(j.RunAt.UnixMilli()),
			Member: j.ID,
		})
	case job.StateCompleted, job.StateFailed:
		pipe.ZRem(ctx, pendingKey(j.Queue), j.ID)
		pipe.ZAdd(ctx, historyKey(j.Queue, string(j.State)), goredis.Z{
			Score:  float64(now.UnixMilli()),
			Member: j.ID,
		})
	case job.StateRunning:
		pipe.ZRem(ctx, pendingKey(j.Queue), j.ID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sync/redis: update job: %w", err)
	}
	return nil
}

// DeleteJob removes a job by ID from the hash and every index.
func (s *Store) DeleteJob(ctx context.Context, jobID string) error {
	key := jobKey(jobID)

	q, err := s.client.HGet(ctx, key, "queue").Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return syncservice.ErrJobNotFound
		}
		return fmt.Errorf("sync/redis: delete job get queue: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, jobIDsKey, jobID)
	pipe.ZRem(ctx, pendingKey(q), jobID)
	pipe.ZRem(ctx, historyKey(q, string(job.StateCompleted)), jobID)
	pipe.ZRem(ctx, historyKey(q, string(job.StateFailed)), jobID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sync/redis: delete job: %w", err)
	}
	return nil
}

// ListJobsByState returns jobs matching the given state, oldest first.
func (s *Store) ListJobsByState(ctx context.Context, state job.State, opts job.ListOpts) ([]*job.Job, error) {
	ids, err := s.client.SMembers(ctx, jobIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("sync/redis: list jobs smembers: %w", err)
	}

	jobs := make([]*job.Job, 0, len(ids))
	for _, id := range ids {
		j, getErr := s.getJobByKey(ctx, jobKey(id))
		if getErr != nil {
			continue // skip missing
		}
		if j.State != state {
			continue
		}
		if opts.Queue != "" && j.Queue != opts.Queue {
			continue
		}
		jobs = append(jobs, j)
	}

	sortByCreatedAt(jobs)

	if opts.Offset > 0 {
		if opts.Offset >= len(jobs) {
			return nil, nil
		}
		jobs = jobs[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(jobs) {
		jobs = jobs[:opts.Limit]
	}
	return jobs, nil
}

// CountJobs returns the number of jobs matching the given options.
func (s *Store) CountJobs(ctx context.Context, opts job.CountOpts) (int64, error) {
	ids, err := s.client.SMembers(ctx, jobIDsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("sync/redis: count smembers: %w", err)
	}

	var count int64
	for _, id := range ids {
		j, getErr := s.getJobByKey(ctx, jobKey(id))
		if getErr != nil {
			continue
		}
		if opts.State != "" && j.State != opts.State {
			continue
		}
		if opts.Queue != "" && j.Queue != opts.Queue {
			continue
		}
		count++
	}
	return count, nil
}

// PruneJobs drops all but the newest keep jobs from the queue's history
// set for the given terminal state.
func (s *Store) PruneJobs(ctx context.Context, queue string, state job.State, keep int) error {
	if keep < 0 {
		return nil
	}
	hk := historyKey(queue, string(state))

	// Members are scored by completion time; everything below the top
	// keep goes, hashes included.
	stale, err := s.client.ZRange(ctx, hk, 0, int64(-keep-1)).Result()
	if err != nil {
		return fmt.Errorf("sync/redis: prune range: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	for _, id := range stale {
		pipe.Del(ctx, jobKey(id))
		pipe.SRem(ctx, jobIDsKey, id)
	}
	pipe.ZRemRangeByRank(ctx, hk, 0, int64(-keep-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("sync/redis: prune: %w", err)
	}
	return nil
}

// ── helpers ──

func (s *Store) getJobByKey(ctx context.Context, key string) (*job.Job, error) {
	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("sync/redis: get job: %w", err)
	}
	if len(vals) == 0 {
		return nil, syncservice.ErrJobNotFound
	}
	return mapToJob(vals), nil
}

func jobToMap(j *job.Job) map[string]any {
	m := map[string]any{
		"id":             j.ID,
		"name":           j.Name,
		"queue":          j.Queue,
		"payload":        string(j.Payload),
		"state":          string(j.State),
		"max_attempts":   strconv.Itoa(j.MaxAttempts),
		"attempts_made":  strconv.Itoa(j.AttemptsMade),
		"backoff":        strconv.FormatInt(int64(j.Backoff), 10),
		"keep_completed": strconv.Itoa(j.KeepCompleted),
		"keep_failed":    strconv.Itoa(j.KeepFailed),
		"last_error":     j.LastError,
		"result":         string(j.Result),
		"run_at":         j.RunAt.Format(time.RFC3339Nano),
		"created_at":     j.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":     j.UpdatedAt.Format(time.RFC3339Nano),
	}
	if j.StartedAt != nil {
		m["started_at"] = j.StartedAt.Format(time.RFC3339Nano)
	}
	if j.CompletedAt != nil {
		m["completed_at"] = j.CompletedAt.Format(time.RFC3339Nano)
	}
	return m
}

func mapToJob(m map[string]string) *job.Job {
	maxAttempts, _ := strconv.Atoi(m["max_attempts"])     //nolint:errcheck // best-effort parse from trusted Redis data
	attemptsMade, _ := strconv.Atoi(m["attempts_made"])   //nolint:errcheck // best-effort parse from trusted Redis data
	backoff, _ := strconv.ParseInt(m["backoff"], 10, 64)  //nolint:errcheck // best-effort parse from trusted Redis data
	keepCompleted, _ := strconv.Atoi(m["keep_completed"]) //nolint:errcheck // best-effort parse from trusted Redis data
	keepFailed, _ := strconv.Atoi(m["keep_failed"])       //nolint:errcheck // best-effort parse from trusted Redis data

	runAt, _ := time.Parse(time.RFC3339Nano, m["run_at"])         //nolint:errcheck // best-effort parse from trusted Redis data
	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"]) //nolint:errcheck // best-effort parse from trusted Redis data
	updatedAt, _ := time.Parse(time.RFC3339Nano, m["updated_at"]) //nolint:errcheck // best-effort parse from trusted Redis data

	j := &job.Job{
		ID:            m["id"],
		Name:          m["name"],
		Queue:         m["queue"],
		Payload:       []byte(m["payload"]),
		State:         job.State(m["state"]),
		MaxAttempts:   maxAttempts,
		AttemptsMade:  attemptsMade,
		Backoff:       time.Duration(backoff),
		KeepCompleted: keepCompleted,
		KeepFailed:    keepFailed,
		LastError:     m["last_error"],
		RunAt:         runAt,
	}
	j.CreatedAt = createdAt
	j.UpdatedAt = updatedAt

	if m["result"] != "" {
		j.Result = []byte(m["result"])
	}
	if v, ok := m["started_at"]; ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			j.StartedAt = &t
		}
	}
	if v, ok := m["completed_at"]; ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			j.CompletedAt = &t
		}
	}
	return j
}

func sortByCreatedAt(jobs []*job.Job) {
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.Before(jobs[k].CreatedAt)
	})
}
