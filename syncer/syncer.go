package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	syncservice "github.com/jordan-quiroz/sync-service"
	"github.com/jordan-quiroz/sync-service/evolution"
	"github.com/jordan-quiroz/sync-service/record"
)

// Upstream is the slice of the messaging-provider API the orchestrator
// needs. evolution.Client satisfies it.
type Upstream interface {
	ConnectionState(ctx context.Context, tenantID string) (string, error)
	FindContacts(ctx context.Context, tenantID string) ([]evolution.Contact, error)
	FetchAllGroups(ctx context.Context, tenantID string) ([]evolution.Group, error)
}

// Result is the outcome of one sync run. A non-empty Error marks a
// business failure; the counts then cover only the phases that ran.
type Result struct {
	TenantID      string `json:"tenantId"`
	ContactsCount int64  `json:"contactsCount"`
	GroupsCount   int64  `json:"groupsCount"`
	// Duration is wall-clock elapsed time in whole seconds.
	Duration int    `json:"duration"`
	Error    string `json:"error,omitempty"`
}

// Orchestrator runs the per-tenant sync state machine.
type Orchestrator struct {
	upstream Upstream
	contacts record.ContactStore
	groups   record.GroupStore
	statuses record.StatusStore
	logger   *slog.Logger
}

// New creates an Orchestrator.
func New(
	upstream Upstream,
	contacts record.ContactStore,
	groups record.GroupStore,
	statuses record.StatusStore,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		upstream: upstream,
		contacts: contacts,
		groups:   groups,
		statuses: statuses,
		logger:   logger,
	}
}

// Sync runs one tenant's sync to completion. Business failures are
// embedded in the Result and persisted to the tenant's sync status; the
// error return fires only when a status write itself fails, so the
// queue's retry policy applies to infrastructure problems alone.
func (o *Orchestrator) Sync(ctx context.Context, tenantID, sessionPhone string) (*Result, error) {
	start := time.Now()
	o.logger.Info("sync started", slog.String("tenant_id", tenantID))

	// Mark the run in-flight. A crash between here and completion
	// leaves the record syncing=true; Status.UpdatedAt lets callers
	// spot such abandoned runs.
	err := o.statuses.UpsertStatus(ctx, tenantID, sessionPhone, record.StatusUpdate{
		IsSyncing: true,
		Error:     nil,
	})
	if err != nil {
		return nil, fmt.Errorf("syncer: mark syncing for %s: %w", tenantID, err)
	}

	state, stateErr := o.upstream.ConnectionState(ctx, tenantID)
	if stateErr != nil {
		o.logger.Error("connection state check failed",
			slog.String("tenant_id", tenantID),
			slog.String("error", stateErr.Error()),
		)
	}
	if stateErr != nil || !evolution.Connected(state) {
		return o.fail(ctx, tenantID, sessionPhone, start, syncservice.ErrNotConnected.Error())
	}

	contactsCount, syncErr := o.syncContacts(ctx, tenantID, sessionPhone)
	if syncErr != nil {
		return o.fail(ctx, tenantID, sessionPhone, start, syncErr.Error())
	}
	o.logger.Info("contacts synced",
		slog.String("tenant_id", tenantID),
		slog.Int64("count", contactsCount),
	)

	groupsCount, syncErr := o.syncGroups(ctx, tenantID, sessionPhone)
	if syncErr != nil {
		return o.fail(ctx, tenantID, sessionPhone, start, syncErr.Error())
	}
	o.logger.Info("groups synced",
		slog.String("tenant_id", tenantID),
		slog.Int64("count", groupsCount),
	)

	now := syncservice.Now()
	tc, tg := int(contactsCount), int(groupsCount)
	err = o.statuses.UpsertStatus(ctx, tenantID, sessionPhone, record.StatusUpdate{
		IsSyncing:     false,
		Error:         nil,
		LastSync:      &now,
		TotalContacts: &tc,
		TotalGroups:   &tg,
	})
	if err != nil {
		return nil, fmt.Errorf("syncer: record success for %s: %w", tenantID, err)
	}

	duration := elapsedSeconds(start)
	o.logger.Info("sync completed",
		slog.String("tenant_id", tenantID),
		slog.Int64("contacts", contactsCount),
		slog.Int64("groups", groupsCount),
		slog.Int("duration_s", duration),
	)

	return &Result{
		TenantID:      tenantID,
		ContactsCount: contactsCount,
		GroupsCount:   groupsCount,
		Duration:      duration,
	}, nil
}

// fail records a business failure into the sync status and returns it
// as a non-error Result, so the queue does not retry it.
func (o *Orchestrator) fail(ctx context.Context, tenantID, sessionPhone string, start time.Time, msg string) (*Result, error) {
	o.logger.Error("sync failed",
		slog.String("tenant_id", tenantID),
		slog.String("error", msg),
	)

	err := o.statuses.UpsertStatus(ctx, tenantID, sessionPhone, record.StatusUpdate{
		IsSyncing: false,
		Error:     &msg,
	})
	if err != nil {
		return nil, fmt.Errorf("syncer: record failure for %s: %w", tenantID, err)
	}

	return &Result{
		TenantID: tenantID,
		Duration: elapsedSeconds(start),
		Error:    msg,
	}, nil
}

// syncContacts fetches, filters, maps, and merges the tenant's contacts.
func (o *Orchestrator) syncContacts(ctx context.Context, tenantID, sessionPhone string) (int64, error) {
	upstream, err := o.upstream.FindContacts(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	if len(upstream) == 0 {
		o.logger.Warn("no contacts found", slog.String("tenant_id", tenantID))
		return 0, nil
	}

	drafts := make([]record.Contact, 0, len(upstream))
	for _, c := range upstream {
		// Group chats and entries without a routable JID are not
		// contacts.
		if c.IsGroup || c.RemoteJid == "" {
			continue
		}
		drafts = append(drafts, record.Contact{
			TenantID:     tenantID,
			SessionPhone: sessionPhone,
			PhoneNumber:  phoneFromJid(c.RemoteJid),
			WID:          c.ID,
			Name:         contactName(c),
			ProfilePic:   c.ProfilePicURL,
			IsBusiness:   c.IsBusiness,
		})
	}

	return o.contacts.MergeContacts(ctx, drafts)
}

// syncGroups fetches, filters, maps, and merges the tenant's groups.
func (o *Orchestrator) syncGroups(ctx context.Context, tenantID, sessionPhone string) (int64, error) {
	upstream, err := o.upstream.FetchAllGroups(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	if len(upstream) == 0 {
		o.logger.Warn("no groups found", slog.String("tenant_id", tenantID))
		return 0, nil
	}

	drafts := make([]record.Group, 0, len(upstream))
	for _, g := range upstream {
		if !strings.HasSuffix(g.ID, "@g.us") {
			continue
		}
		name := g.Subject
		if name == "" {
			name = "Unknown Group"
		}
		drafts = append(drafts, record.Group{
			TenantID:     tenantID,
			SessionPhone: sessionPhone,
			GroupID:      g.ID,
			Name:         name,
			Participants: g.Size,
		})
	}

	return o.groups.MergeGroups(ctx, drafts)
}

// phoneFromJid strips the server suffix from a JID:
// "56911111111@s.whatsapp.net" → "56911111111".
func phoneFromJid(jid string) string {
	if i := strings.IndexByte(jid, '@'); i >= 0 {
		return jid[:i]
	}
	return jid
}

// contactName falls back from display name to push name to empty.
func contactName(c evolution.Contact) string {
	if c.Name != "" {
		return c.Name
	}
	return c.PushName
}

// elapsedSeconds rounds wall-clock elapsed time to whole seconds.
func elapsedSeconds(start time.Time) int {
	return int(time.Since(start).Round(time.Second) / time.Second)
}
