package record

import "context"

// SessionStore lists the tenants known to the system.
type SessionStore interface {
	// ListSessions returns all tenant sessions sorted by tenant ID, so
	// the scheduler's stagger order is reproducible across runs.
	ListSessions(ctx context.Context) ([]*Session, error)

	// GetSession retrieves the session for a tenant.
	GetSession(ctx context.Context, tenantID string) (*Session, error)
}

// ContactStore persists synced contacts.
type ContactStore interface {
	// MergeContacts upserts the drafts keyed by (TenantID, PhoneNumber)
	// in a single batched write: all provided fields plus the
	// modification timestamp are set on every write, the creation
	// timestamp only on insert. Returns the number of affected rows
	// (upserted + modified). An empty input is a no-op returning 0, and
	// re-merging identical drafts changes no semantic content.
	MergeContacts(ctx context.Context, contacts []Contact) (int64, error)

	// GetContact retrieves a contact by its natural key.
	GetContact(ctx context.Context, tenantID, phoneNumber string) (*Contact, error)
}

// GroupStore persists synced groups with the same merge semantics as
// ContactStore, keyed by (TenantID, GroupID).
type GroupStore interface {
	MergeGroups(ctx context.Context, groups []Group) (int64, error)
	GetGroup(ctx context.Context, tenantID, groupID string) (*Group, error)
}

// StatusStore tracks per-tenant sync lifecycle records.
type StatusStore interface {
	// UpsertStatus applies a partial update to the (tenantID,
	// sessionPhone) record, creating it on first write. See
	// StatusUpdate for which fields are written.
	UpsertStatus(ctx context.Context, tenantID, sessionPhone string, upd StatusUpdate) error

	// GetStatus retrieves the status record for a tenant session.
	GetStatus(ctx context.Context, tenantID, sessionPhone string) (*Status, error)
}
