package syncer

import (
	"context"
	"errors"
	"testing"

	syncservice "github.com/jordan-quiroz/sync-service"
	"github.com/jordan-quiroz/sync-service/evolution"
	"github.com/jordan-quiroz/sync-service/record"
	"github.com/jordan-quiroz/sync-service/store/memory"
)

// fakeUpstream counts calls so tests can assert which phases ran.
type fakeUpstream struct {
	state    string
	stateErr error

	contacts    []evolution.Contact
	contactsErr error

	groups    []evolution.Group
	groupsErr error

	contactCalls int
	groupCalls   int
}

func (f *fakeUpstream) ConnectionState(_ context.Context, _ string) (string, error) {
	return f.state, f.stateErr
}

func (f *fakeUpstream) FindContacts(_ context.Context, _ string) ([]evolution.Contact, error) {
	f.contactCalls++
	return f.contacts, f.contactsErr
}

func (f *fakeUpstream) FetchAllGroups(_ context.Context, _ string) ([]evolution.Group, error) {
	f.groupCalls++
	return f.groups, f.groupsErr
}

func newOrchestrator(up *fakeUpstream) (*Orchestrator, *memory.Store) {
	store := memory.New()
	return New(up, store, store, store, nil), store
}

func TestSync_NotConnected(t *testing.T) {
	up := &fakeUpstream{state: "close"}
	o, store := newOrchestrator(up)

	res, err := o.Sync(context.Background(), "tenant-1", "56900000000")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Error != syncservice.ErrNotConnected.Error() {
		t.Errorf("Error = %q, want %q", res.Error, syncservice.ErrNotConnected.Error())
	}
	if res.ContactsCount != 0 || res.GroupsCount != 0 {
		t.Errorf("counts = %d/%d, want 0/0", res.ContactsCount, res.GroupsCount)
	}
	// Neither fetch phase may run against a disconnected instance.
	if up.contactCalls != 0 || up.groupCalls != 0 {
		t.Errorf("upstream fetches = %d/%d, want 0/0", up.contactCalls, up.groupCalls)
	}

	st, err := store.GetStatus(context.Background(), "tenant-1", "56900000000")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if st.IsSyncing {
		t.Error("status still marked syncing")
	}
	if st.Error == nil || *st.Error != syncservice.ErrNotConnected.Error() {
		t.Errorf("status error = %v", st.Error)
	}
}

func TestSync_ConnectionCheckErrorTreatedAsNotConnected(t *testing.T) {
	up := &fakeUpstream{stateErr: errors.New("dial tcp: connection refused")}
	o, _ := newOrchestrator(up)

	res, err := o.Sync(context.Background(), "tenant-1", "56900000000")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Error != syncservice.ErrNotConnected.Error() {
		t.Errorf("Error = %q, want %q", res.Error, syncservice.ErrNotConnected.Error())
	}
	if up.contactCalls != 0 {
		t.Errorf("contact fetches = %d, want 0", up.contactCalls)
	}
}

func TestSync_FiltersNonContacts(t *testing.T) {
	pic := "https://cdn.example.com/p.jpg"
	up := &fakeUpstream{
		state: "open",
		contacts: []evolution.Contact{
			{RemoteJid: "56911111111@s.whatsapp.net", Name: "Ana", ProfilePicURL: &pic},
			{RemoteJid: "", PushName: "Sin JID"},
			{RemoteJid: "120363000000000001@g.us", Name: "Grupo", IsGroup: true},
			{RemoteJid: "56922222222@s.whatsapp.net", PushName: "Beto", IsBusiness: true},
		},
	}
	o, store := newOrchestrator(up)

	res, err := o.Sync(context.Background(), "tenant-1", "56900000000")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Error != "" {
		t.Fatalf("unexpected business error %q", res.Error)
	}
	if res.ContactsCount != 2 {
		t.Errorf("ContactsCount = %d, want 2", res.ContactsCount)
	}

	c, err := store.GetContact(context.Background(), "tenant-1", "56911111111")
	if err != nil {
		t.Fatalf("GetContact: %v", err)
	}
	if c.Name != "Ana" {
		t.Errorf("Name = %q, want Ana", c.Name)
	}
	if c.ProfilePic == nil || *c.ProfilePic != pic {
		t.Errorf("ProfilePic = %v", c.ProfilePic)
	}

	// Push name is the fallback when the display name is empty.
	c, err = store.GetContact(context.Background(), "tenant-1", "56922222222")
	if err != nil {
		t.Fatalf("GetContact: %v", err)
	}
	if c.Name != "Beto" {
		t.Errorf("Name = %q, want Beto", c.Name)
	}
	if !c.IsBusiness {
		t.Error("IsBusiness not carried over")
	}
}

func TestSync_GroupMapping(t *testing.T) {
	up := &fakeUpstream{
		state: "open",
		groups: []evolution.Group{
			{ID: "120363000000000001@g.us", Subject: "Familia", Size: 12},
			{ID: "120363000000000002@g.us", Subject: "", Size: 3},
			{ID: "status@broadcast", Subject: "Broadcast", Size: 99},
		},
	}
	o, store := newOrchestrator(up)

	res, err := o.Sync(context.Background(), "tenant-1", "56900000000")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.GroupsCount != 2 {
		t.Errorf("GroupsCount = %d, want 2", res.GroupsCount)
	}

	g, err := store.GetGroup(context.Background(), "tenant-1", "120363000000000002@g.us")
	if err != nil {
		t.Fatalf("GetGroup: %v", err)
	}
	if g.Name != "Unknown Group" {
		t.Errorf("Name = %q, want fallback", g.Name)
	}
	if g.Participants != 3 {
		t.Errorf("Participants = %d, want 3", g.Participants)
	}
}

func TestSync_SuccessUpdatesStatus(t *testing.T) {
	up := &fakeUpstream{
		state: "connected",
		contacts: []evolution.Contact{
			{RemoteJid: "56911111111@s.whatsapp.net", Name: "Ana"},
		},
		groups: []evolution.Group{
			{ID: "120363000000000001@g.us", Subject: "Familia", Size: 5},
		},
	}
	o, store := newOrchestrator(up)

	res, err := o.Sync(context.Background(), "tenant-1", "56900000000")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Error != "" {
		t.Fatalf("unexpected business error %q", res.Error)
	}

	st, err := store.GetStatus(context.Background(), "tenant-1", "56900000000")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if st.IsSyncing {
		t.Error("status still marked syncing")
	}
	if st.Error != nil {
		t.Errorf("status error = %q, want cleared", *st.Error)
	}
	if st.TotalContacts != 1 || st.TotalGroups != 1 {
		t.Errorf("totals = %d/%d, want 1/1", st.TotalContacts, st.TotalGroups)
	}
	if st.LastSync == nil {
		t.Error("LastSync not set")
	}
}

func TestSync_UpstreamFetchErrorIsBusinessFailure(t *testing.T) {
	up := &fakeUpstream{
		state:       "open",
		contactsErr: errors.New("evolution: find contacts: status 500"),
	}
	o, store := newOrchestrator(up)

	res, err := o.Sync(context.Background(), "tenant-1", "56900000000")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Error == "" {
		t.Fatal("expected business error in result")
	}
	if up.groupCalls != 0 {
		t.Errorf("group fetches = %d, want 0 after contact failure", up.groupCalls)
	}

	st, getErr := store.GetStatus(context.Background(), "tenant-1", "56900000000")
	if getErr != nil {
		t.Fatalf("GetStatus: %v", getErr)
	}
	if st.Error == nil {
		t.Error("status error not recorded")
	}
}

func TestSync_StatusWriteFailureIsInfrastructureError(t *testing.T) {
	up := &fakeUpstream{state: "open"}
	store := memory.New()
	o := New(up, store, store, failingStatuses{}, nil)

	if _, err := o.Sync(context.Background(), "tenant-1", "56900000000"); err == nil {
		t.Fatal("expected infrastructure error when the status store is down")
	}
}

// failingStatuses rejects every write, simulating a dead store.
type failingStatuses struct{}

func (failingStatuses) UpsertStatus(context.Context, string, string, record.StatusUpdate) error {
	return errors.New("write concern error")
}

func (failingStatuses) GetStatus(context.Context, string, string) (*record.Status, error) {
	return nil, errors.New("write concern error")
}

func TestSync_RerunIsIdempotent(t *testing.T) {
	up := &fakeUpstream{
		state: "open",
		contacts: []evolution.Contact{
			{RemoteJid: "56911111111@s.whatsapp.net", Name: "Ana"},
		},
	}
	o, store := newOrchestrator(up)
	ctx := context.Background()

	if _, err := o.Sync(ctx, "tenant-1", "56900000000"); err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	first, err := store.GetContact(ctx, "tenant-1", "56911111111")
	if err != nil {
		t.Fatalf("GetContact: %v", err)
	}

	if _, err := o.Sync(ctx, "tenant-1", "56900000000"); err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	second, err := store.GetContact(ctx, "tenant-1", "56911111111")
	if err != nil {
		t.Fatalf("GetContact after rerun: %v", err)
	}

	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed on re-merge: %v to %v", first.CreatedAt, second.CreatedAt)
	}
	if second.Name != "Ana" {
		t.Errorf("Name = %q after rerun", second.Name)
	}
}

func TestPhoneFromJid(t *testing.T) {
	tests := []struct {
		jid  string
		want string
	}{
		{"56911111111@s.whatsapp.net", "56911111111"},
		{"no-at-sign", "no-at-sign"},
		{"@s.whatsapp.net", ""},
	}
	for _, tt := range tests {
		if got := phoneFromJid(tt.jid); got != tt.want {
			t.Errorf("phoneFromJid(%q) = %q, want %q", tt.jid, got, tt.want)
		}
	}
}
