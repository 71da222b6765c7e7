// Package queue provides the durable sync-job queue handle and the
// dispatch limiter consumed by the worker pool.
//
// # Queue
//
// [Queue] is a named handle over a [job.Store]. Enqueue persists a job
// for delayed delivery; the queue does not deduplicate payloads: if the
// scheduler enqueues a tenant twice, two independent jobs run.
//
//	q := queue.New("sync-contacts-groups", store, logger)
//	q.Enqueue(ctx, "sync-tenant", payload,
//	    job.WithDelay(time.Minute),
//	    job.WithMaxAttempts(2),
//	)
//
// # Manager
//
// [Manager] enforces dispatch throughput at dequeue time, independent of
// the queue's own delay mechanism. It uses a token-bucket rate limiter
// (golang.org/x/time/rate) and an active-count gate for concurrency:
//
//	m := queue.NewManager(queue.Config{Name: q.Name(), RateLimit: 1, MaxConcurrency: 1})
//	if m.Acquire(q.Name()) {
//	    defer m.Release(q.Name())
//	    // process the job
//	}
//
// Queues without a [Config] have no limits beyond the pool-wide concurrency.
package queue
