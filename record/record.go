package record

import (
	"time"

	syncservice "github.com/jordan-quiroz/sync-service"
)

// Session identifies a syncable tenant. Sessions are provisioned
// elsewhere; this service only reads them.
type Session struct {
	syncservice.Entity `bson:",inline"`

	TenantID   string `json:"tenant_id" bson:"userId"`
	InstanceID string `json:"instance_id,omitempty" bson:"instanceId,omitempty"`
	// Phone is the upstream account identifier. Optional.
	Phone  string `json:"phone,omitempty" bson:"phoneNumber,omitempty"`
	Status string `json:"status,omitempty" bson:"status,omitempty"`
}

// Contact is one synced WhatsApp contact, unique per
// (TenantID, PhoneNumber).
type Contact struct {
	syncservice.Entity `bson:",inline"`

	TenantID     string `json:"tenant_id" bson:"userId"`
	SessionPhone string `json:"session_phone" bson:"sessionPhone"`
	PhoneNumber  string `json:"phone_number" bson:"phoneNumber"`
	// WID is the upstream identifier.
	WID        string  `json:"wid,omitempty" bson:"wid,omitempty"`
	Name       string  `json:"name" bson:"name"`
	ProfilePic *string `json:"profile_pic" bson:"profilePic"`
	IsBusiness bool    `json:"is_business" bson:"isBusiness"`
}

// Group is one synced WhatsApp group, unique per (TenantID, GroupID).
type Group struct {
	syncservice.Entity `bson:",inline"`

	TenantID     string `json:"tenant_id" bson:"userId"`
	SessionPhone string `json:"session_phone" bson:"sessionPhone"`
	GroupID      string `json:"group_id" bson:"groupId"`
	Name         string `json:"name" bson:"name"`
	Participants int    `json:"participants" bson:"participants"`
}

// Status is the durable state machine record for a tenant's sync
// lifecycle, one row per (TenantID, SessionPhone):
//
//	idle → syncing → (idle-success | idle-error)
//
// IsSyncing is true only between the start and the end of exactly one
// in-flight run; a new run overwrites a stale record rather than
// appending. A record left IsSyncing=true with an old UpdatedAt marks a
// run abandoned by a crash.
type Status struct {
	syncservice.Entity `bson:",inline"`

	TenantID      string     `json:"tenant_id" bson:"userId"`
	SessionPhone  string     `json:"session_phone" bson:"sessionPhone"`
	IsSyncing     bool       `json:"is_syncing" bson:"isSyncing"`
	LastSync      *time.Time `json:"last_sync" bson:"lastSync"`
	TotalContacts int        `json:"total_contacts" bson:"totalContacts"`
	TotalGroups   int        `json:"total_groups" bson:"totalGroups"`
	Error         *string    `json:"error" bson:"error"`
}

// StatusUpdate is a partial update applied through StatusStore.
// IsSyncing and Error are always written (a nil Error clears the field);
// LastSync, TotalContacts and TotalGroups are written only when non-nil.
type StatusUpdate struct {
	IsSyncing     bool
	Error         *string
	LastSync      *time.Time
	TotalContacts *int
	TotalGroups   *int
}
