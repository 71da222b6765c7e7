// Package syncer drives one tenant's sync run from start to finish:
//
//	start → status:syncing → connection-check
//	      → contacts-sync → groups-sync → status:success
//	      | status:error(not-connected)
//	      | status:error(api-failure)
//
// Business failures (upstream not connected, upstream call failures,
// malformed payloads) are caught here, recorded into the tenant's sync
// status, and embedded in the returned [Result]. They never reach the
// queue's retry policy; the next scheduled trigger re-attempts them.
// The error return of [Orchestrator.Sync] is reserved for
// infrastructure failures (status-store writes), which the queue
// retries.
package syncer
