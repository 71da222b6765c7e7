// Package store documents the backend layout. Each backend implements
// the subsystem contracts it can serve:
//
//   - store/redis: the durable job queue broker (job.Store). This is
//     the production queue backend.
//   - store/mongo: the entity store (record.SessionStore,
//     record.ContactStore, record.GroupStore, record.StatusStore) and a
//     secondary job.Store for single-database deployments.
//   - store/memory: everything, in memory, for tests and development.
//
// Store handles are process-wide singletons: connections are
// established once at startup, injected into components, and torn down
// once at shutdown.
package store
