// Package engine wires the sync subsystems together: the job registry,
// the queue, the rate-limited worker pool, the sync orchestrator and the
// cron scheduler. It is the single place where configuration becomes
// running components, so main stays a thin shell around Build/Start/Stop.
package engine
