// Package memory is a fully in-memory implementation of every store
// contract. Safe for concurrent access. Intended for unit testing and
// development.
package memory

import (
	"context"
	"sort"
	"sync"

	syncservice "github.com/jordan-quiroz/sync-service"
	"github.com/jordan-quiroz/sync-service/job"
	"github.com/jordan-quiroz/sync-service/record"
)

// Ensure Store implements every subsystem contract at compile time.
var (
	_ job.Store           = (*Store)(nil)
	_ record.SessionStore = (*Store)(nil)
	_ record.ContactStore = (*Store)(nil)
	_ record.GroupStore   = (*Store)(nil)
	_ record.StatusStore  = (*Store)(nil)
)

// Store holds all entities in maps guarded by one mutex.
type Store struct {
	mu sync.RWMutex

	jobs     map[string]*job.Job
	sessions map[string]*record.Session // key: tenantID
	contacts map[string]*record.Contact // key: tenantID+"\x00"+phoneNumber
	groups   map[string]*record.Group   // key: tenantID+"\x00"+groupID
	statuses map[string]*record.Status  // key: tenantID+"\x00"+sessionPhone
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		jobs:     make(map[string]*job.Job),
		sessions: make(map[string]*record.Session),
		contacts: make(map[string]*record.Contact),
		groups:   make(map[string]*record.Group),
		statuses: make(map[string]*record.Status),
	}
}

func key(parts ...string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "\x00" + p
	}
	return out
}

// ──────────────────────────────────────────────────
// Lifecycle: Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Job Store
// ──────────────────────────────────────────────────

// EnqueueJob persists a new job in pending state.
func (m *Store) EnqueueJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[j.ID]; exists {
		return syncservice.ErrJobAlreadyExists
	}
	cp := *j
	m.jobs[j.ID] = &cp
	return nil
}

// DequeueJob claims the due job with the earliest RunAt and sets it to
// running.
func (m *Store) DequeueJob(_ context.Context, queue string) (*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := syncservice.Now()

	var due *job.Job
	for _, j := range m.jobs {
		if j.Queue != queue {
			continue
		}
		if j.State != job.StatePending && j.State != job.StateRetrying {
			continue
		}
		if j.RunAt.After(now) {
			continue
		}
		if due == nil || j.RunAt.Before(due.RunAt) {
			due = j
		}
	}
	if due == nil {
		return nil, syncservice.ErrNoJob
	}

	due.State = job.StateRunning
	started := now
	due.StartedAt = &started
	due.UpdatedAt = now

	cp := *due
	return &cp, nil
}

// GetJob retrieves a job by ID.
func (m *Store) GetJob(_ context.Context, jobID string) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return nil, syncservice.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

// UpdateJob persists changes to an existing job.
func (m *Store) UpdateJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[j.ID]; !ok {
		return syncservice.ErrJobNotFound
	}
	cp := *j
	m.jobs[j.ID] = &cp
	return nil
}

// DeleteJob removes a job by ID.
func (m *Store) DeleteJob(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[jobID]; !ok {
		return syncservice.ErrJobNotFound
	}
	delete(m.jobs, jobID)
	return nil
}

// ListJobsByState returns jobs matching the given state, oldest first.
func (m *Store) ListJobsByState(_ context.Context, state job.State, opts job.ListOpts) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*job.Job, 0)
	for _, j := range m.jobs {
		if j.State != state {
			continue
		}
		if opts.Queue != "" && j.Queue != opts.Queue {
			continue
		}
		cp := *j
		jobs = append(jobs, &cp)
	}

	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.Before(jobs[k].CreatedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(jobs) {
			return nil, nil
		}
		jobs = jobs[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(jobs) {
		jobs = jobs[:opts.Limit]
	}
	return jobs, nil
}

// CountJobs returns the number of jobs matching the given options.
func (m *Store) CountJobs(_ context.Context, opts job.CountOpts) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, j := range m.jobs {
		if opts.State != "" && j.State != opts.State {
			continue
		}
		if opts.Queue != "" && j.Queue != opts.Queue {
			continue
		}
		count++
	}
	return count, nil
}

// PruneJobs drops all but the newest keep jobs in the given terminal
// state on the given queue.
func (m *Store) PruneJobs(_ context.Context, queue string, state job.State, keep int) error {
	if keep < 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make([]*job.Job, 0)
	for _, j := range m.jobs {
		if j.Queue == queue && j.State == state {
			matched = append(matched, j)
		}
	}
	if len(matched) <= keep {
		return nil
	}

	// Newest first; everything past keep goes.
	sort.Slice(matched, func(i, k int) bool {
		return matched[i].UpdatedAt.After(matched[k].UpdatedAt)
	})
	for _, j := range matched[keep:] {
		delete(m.jobs, j.ID)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Session Store
// ──────────────────────────────────────────────────

// PutSession inserts or replaces a tenant session. Sessions are
// provisioned externally; this exists for tests and development seeds.
func (m *Store) PutSession(_ context.Context, s *record.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	m.sessions[s.TenantID] = &cp
	return nil
}

// ListSessions returns all sessions sorted by tenant ID.
func (m *Store) ListSessions(_ context.Context) ([]*record.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*record.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool {
		return out[i].TenantID < out[k].TenantID
	})
	return out, nil
}

// GetSession retrieves the session for a tenant.
func (m *Store) GetSession(_ context.Context, tenantID string) (*record.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[tenantID]
	if !ok {
		return nil, syncservice.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

// ──────────────────────────────────────────────────
// Contact Store
// ──────────────────────────────────────────────────

// MergeContacts upserts the drafts keyed by (TenantID, PhoneNumber).
func (m *Store) MergeContacts(_ context.Context, contacts []record.Contact) (int64, error) {
	if len(contacts) == 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := syncservice.Now()
	var affected int64
	for _, c := range contacts {
		k := key(c.TenantID, c.PhoneNumber)
		existing, ok := m.contacts[k]

		cp := c
		cp.UpdatedAt = now
		if ok {
			cp.CreatedAt = existing.CreatedAt
		} else {
			cp.CreatedAt = now
		}
		m.contacts[k] = &cp
		affected++
	}
	return affected, nil
}

// GetContact retrieves a contact by its natural key.
func (m *Store) GetContact(_ context.Context, tenantID, phoneNumber string) (*record.Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.contacts[key(tenantID, phoneNumber)]
	if !ok {
		return nil, syncservice.ErrContactNotFound
	}
	cp := *c
	return &cp, nil
}

// ──────────────────────────────────────────────────
// Group Store
// ──────────────────────────────────────────────────

// MergeGroups upserts the drafts keyed by (TenantID, GroupID).
func (m *Store) MergeGroups(_ context.Context, groups []record.Group) (int64, error) {
	if len(groups) == 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := syncservice.Now()
	var affected int64
	for _, g := range groups {
		k := key(g.TenantID, g.GroupID)
		existing, ok := m.groups[k]

		cp := g
		cp.UpdatedAt = now
		if ok {
			cp.CreatedAt = existing.CreatedAt
		} else {
			cp.CreatedAt = now
		}
		m.groups[k] = &cp
		affected++
	}
	return affected, nil
}

// GetGroup retrieves a group by its natural key.
func (m *Store) GetGroup(_ context.Context, tenantID, groupID string) (*record.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.groups[key(tenantID, groupID)]
	if !ok {
		return nil, syncservice.ErrGroupNotFound
	}
	cp := *g
	return &cp, nil
}

// ──────────────────────────────────────────────────
// Status Store
// ──────────────────────────────────────────────────

// UpsertStatus applies a partial update to the tenant's status record,
// creating it on first write.
func (m *Store) UpsertStatus(_ context.Context, tenantID, sessionPhone string, upd record.StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := syncservice.Now()
	k := key(tenantID, sessionPhone)

	st, ok := m.statuses[k]
	if !ok {
		st = &record.Status{
			TenantID:     tenantID,
			SessionPhone: sessionPhone,
		}
		st.CreatedAt = now
		m.statuses[k] = st
	}

	st.IsSyncing = upd.IsSyncing
	st.Error = upd.Error
	if upd.LastSync != nil {
		st.LastSync = upd.LastSync
	}
	if upd.TotalContacts != nil {
		st.TotalContacts = *upd.TotalContacts
	}
	if upd.TotalGroups != nil {
		st.TotalGroups = *upd.TotalGroups
	}
	st.UpdatedAt = now
	return nil
}

// GetStatus retrieves the status record for a tenant session.
func (m *Store) GetStatus(_ context.Context, tenantID, sessionPhone string) (*record.Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.statuses[key(tenantID, sessionPhone)]
	if !ok {
		return nil, syncservice.ErrStatusNotFound
	}
	cp := *st
	return &cp, nil
}
