// Package job defines the sync job entity, its state machine, typed
// definitions, and the store interface implemented by the queue backends.
//
// # Job Entity
//
// A [Job] is one request to sync a single tenant. It embeds
// [syncservice.Entity] for timestamps, carries a JSON payload, and
// progresses through a state machine:
//
//	pending → running → completed
//	pending → running → retrying → running → ...
//	pending → running → failed
//
// Delivery is at-least-once and delayed: RunAt is the earliest time the
// job may be dequeued. Completed and failed jobs are retained for
// inspection, bounded per job by KeepCompleted and KeepFailed: a job
// that exhausts its attempts is never silently dropped.
//
// # Defining a Job
//
// Use [Definition] with a typed handler. The payload is JSON-serialized
// at enqueue time and deserialized before the handler runs; the handler's
// return value is serialized back onto the job as its result:
//
//	var SyncTenant = job.NewDefinition("sync-tenant",
//	    func(ctx context.Context, p SyncPayload) (any, error) {
//	        return orchestrator.Sync(ctx, p.TenantID, p.SessionPhone)
//	    },
//	)
package job
