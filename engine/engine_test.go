package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	syncservice "github.com/jordan-quiroz/sync-service"
	"github.com/jordan-quiroz/sync-service/evolution"
	"github.com/jordan-quiroz/sync-service/job"
	"github.com/jordan-quiroz/sync-service/record"
	"github.com/jordan-quiroz/sync-service/store/memory"
	"github.com/jordan-quiroz/sync-service/syncer"
)

// stubUpstream is a canned messaging-provider API.
type stubUpstream struct {
	state    string
	contacts []evolution.Contact
	groups   []evolution.Group
}

func (s *stubUpstream) ConnectionState(_ context.Context, _ string) (string, error) {
	return s.state, nil
}

func (s *stubUpstream) FindContacts(_ context.Context, _ string) ([]evolution.Contact, error) {
	return s.contacts, nil
}

func (s *stubUpstream) FetchAllGroups(_ context.Context, _ string) ([]evolution.Group, error) {
	return s.groups, nil
}

func testConfig() syncservice.Config {
	cfg := syncservice.DefaultConfig()
	cfg.PollInterval = 10 * time.Millisecond
	cfg.DispatchRate = 1000
	cfg.RetryBackoff = 10 * time.Millisecond
	return cfg
}

func testDeps(store *memory.Store, up syncer.Upstream) Deps {
	return Deps{
		Jobs:     store,
		Sessions: store,
		Contacts: store,
		Groups:   store,
		Statuses: store,
		Upstream: up,
	}
}

func TestBuild_RequiresBackends(t *testing.T) {
	store := memory.New()
	up := &stubUpstream{state: "open"}

	tests := []struct {
		name string
		deps Deps
	}{
		{"no job store", Deps{Sessions: store, Contacts: store, Groups: store, Statuses: store, Upstream: up}},
		{"no record stores", Deps{Jobs: store, Upstream: up}},
		{"no upstream", Deps{Jobs: store, Sessions: store, Contacts: store, Groups: store, Statuses: store}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(testConfig(), tt.deps); err == nil {
				t.Fatal("expected Build to fail")
			}
		})
	}
}

func TestBuild_RegistersSyncHandler(t *testing.T) {
	store := memory.New()
	eng, err := Build(testConfig(), testDeps(store, &stubUpstream{state: "open"}))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := eng.Registry().Get(syncer.JobName); !ok {
		t.Fatalf("handler %q not registered", syncer.JobName)
	}
}

func TestTriggerSync_AppliesConfiguredPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 2
	cfg.KeepCompleted = 20
	cfg.KeepFailed = 50

	store := memory.New()
	eng, err := Build(cfg, testDeps(store, &stubUpstream{state: "open"}))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	j, err := eng.TriggerSync(context.Background(), "tenant-1", "5690001")
	if err != nil {
		t.Fatalf("TriggerSync: %v", err)
	}
	if j.State != job.StatePending {
		t.Errorf("State = %q, want %q", j.State, job.StatePending)
	}
	if j.MaxAttempts != 2 {
		t.Errorf("MaxAttempts = %d, want 2", j.MaxAttempts)
	}
	if j.KeepCompleted != 20 || j.KeepFailed != 50 {
		t.Errorf("retention = %d/%d, want 20/50", j.KeepCompleted, j.KeepFailed)
	}

	var req syncer.Request
	if err := json.Unmarshal(j.Payload, &req); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if req.TenantID != "tenant-1" || req.SessionPhone != "5690001" {
		t.Errorf("payload = %+v", req)
	}
}

func TestSyncAll_EnqueuesPerSession(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	for _, id := range []string{"tenant-a", "tenant-b", "tenant-c"} {
		if err := store.PutSession(ctx, &record.Session{TenantID: id, Phone: "569" + id}); err != nil {
			t.Fatalf("PutSession: %v", err)
		}
	}

	eng, err := Build(testConfig(), testDeps(store, &stubUpstream{state: "open"}))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	eng.SyncAll(ctx)

	n, err := eng.Queue().Counts(ctx, job.StatePending)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if n != 3 {
		t.Fatalf("pending jobs = %d, want 3", n)
	}
}

func TestEngine_ProcessesSyncJob(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	pic := "https://cdn.example.com/a.jpg"
	up := &stubUpstream{
		state: "open",
		contacts: []evolution.Contact{
			{RemoteJid: "56911111111@s.whatsapp.net", Name: "Ana", ProfilePicURL: &pic},
			{RemoteJid: "56922222222@s.whatsapp.net", PushName: "Beto", IsBusiness: true},
		},
		groups: []evolution.Group{
			{ID: "120363000000000001@g.us", Subject: "Familia", Size: 12},
		},
	}

	eng, err := Build(testConfig(), testDeps(store, up))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := eng.Stop(stopCtx); err != nil {
			t.Errorf("Stop: %v", err)
		}
	}()

	j, err := eng.TriggerSync(ctx, "tenant-1", "56900000000")
	if err != nil {
		t.Fatalf("TriggerSync: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, getErr := store.GetJob(ctx, j.ID)
		if getErr != nil {
			t.Fatalf("GetJob: %v", getErr)
		}
		if got.Terminal() {
			if got.State != job.StateCompleted {
				t.Fatalf("job state = %q (last error %q), want completed", got.State, got.LastError)
			}
			var res syncer.Result
			if err := json.Unmarshal(got.Result, &res); err != nil {
				t.Fatalf("unmarshal result: %v", err)
			}
			if res.ContactsCount != 2 || res.GroupsCount != 1 || res.Error != "" {
				t.Fatalf("result = %+v", res)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job still %q after deadline", got.State)
		}
		time.Sleep(10 * time.Millisecond)
	}

	st, err := store.GetStatus(ctx, "tenant-1", "56900000000")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if st.IsSyncing {
		t.Error("status still marked syncing")
	}
	if st.Error != nil {
		t.Errorf("status error = %q, want nil", *st.Error)
	}
	if st.TotalContacts != 2 || st.TotalGroups != 1 {
		t.Errorf("totals = %d/%d, want 2/1", st.TotalContacts, st.TotalGroups)
	}
	if st.LastSync == nil {
		t.Error("LastSync not set")
	}
}

func TestStop_WithoutStart(t *testing.T) {
	store := memory.New()
	eng, err := Build(testConfig(), testDeps(store, &stubUpstream{state: "open"}))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := eng.Stop(stopCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Stop: %v", err)
	}
}
