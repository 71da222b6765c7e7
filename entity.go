package syncservice

import "time"

// DefaultTimezone is the fixed zone every persisted timestamp is written
// in, so ordering and display stay consistent regardless of host locale.
const DefaultTimezone = "America/Santiago"

var location = loadLocation(DefaultTimezone)

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SetTimezone overrides the service time zone. It is intended to be
// called once at startup, before any component produces timestamps.
func SetTimezone(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	location = loc
	return nil
}

// Location returns the service's fixed time zone.
func Location() *time.Location { return location }

// Now returns the current time in the service's fixed time zone.
func Now() time.Time { return time.Now().In(location) }

// Entity carries the timestamps shared by all persisted records.
// CreatedAt is set once on first insert; UpdatedAt on every write.
type Entity struct {
	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" bson:"updatedAt"`
}

// NewEntity creates an Entity with both timestamps set to now.
func NewEntity() Entity {
	now := Now()
	return Entity{CreatedAt: now, UpdatedAt: now}
}

// Touch updates the modification timestamp.
func (e *Entity) Touch() { e.UpdatedAt = Now() }
