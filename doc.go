// Package syncservice periodically synchronizes per-tenant WhatsApp
// contact and group lists from an Evolution API instance into MongoDB.
//
// The service is composed of small subsystem packages wired together by
// the engine package:
//
//   - schedule enumerates tenant sessions on a cron trigger and enqueues
//     one staggered sync job per tenant.
//   - job and queue define the durable, delayed-delivery job queue with
//     per-job retry and retention policy.
//   - worker consumes the queue with bounded concurrency and a
//     token-bucket dispatch limiter.
//   - syncer drives a single tenant's sync run: status update, upstream
//     connection check, contact and group fetch, idempotent bulk merge.
//   - record defines the synced entities and their store contracts;
//     store/mongo, store/redis and store/memory provide backends.
//
// Delivery is at-least-once: a job may run more than once under retry,
// and every persistent effect of a sync run is an idempotent upsert.
package syncservice
