package syncer

// JobName is the queue job type for a single tenant sync request.
const JobName = "sync-tenant"

// Request is the payload of a sync job: which tenant to sync, plus the
// session phone recorded onto every synced entity.
type Request struct {
	TenantID     string `json:"tenantId"`
	SessionPhone string `json:"sessionPhone"`
}
