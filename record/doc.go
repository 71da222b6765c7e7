// Package record defines the synced entities (tenant sessions,
// contacts, groups, and per-tenant sync statuses) together with the
// store contracts the backends implement.
//
// Contacts and groups are written exclusively through idempotent bulk
// merges keyed by their natural keys ((tenant, phone number) and
// (tenant, group ID)); they are never deleted by this service. Merge
// counts are affected rows (upserted + modified), not distinct
// real-world entities.
package record
