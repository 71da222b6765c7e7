package job_test

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/jordan-quiroz/sync-service/job"
)

type syncPayload struct {
	TenantID     string `json:"tenantId"`
	SessionPhone string `json:"sessionPhone"`
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := job.NewRegistry()

	var got syncPayload
	def := job.NewDefinition("sync-tenant", func(_ context.Context, p syncPayload) (any, error) {
		got = p
		return map[string]int{"contacts": 2}, nil
	})

	job.RegisterDefinition(r, def)

	h, ok := r.Get("sync-tenant")
	if !ok {
		t.Fatal("expected handler to be registered")
	}

	payload, _ := json.Marshal(syncPayload{TenantID: "T1", SessionPhone: "+56911111111"})
	result, err := h(context.Background(), payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TenantID != "T1" {
		t.Errorf("TenantID = %q, want %q", got.TenantID, "T1")
	}
	if got.SessionPhone != "+56911111111" {
		t.Errorf("SessionPhone = %q, want %q", got.SessionPhone, "+56911111111")
	}
	if string(result) != `{"contacts":2}` {
		t.Errorf("result = %s, want %s", result, `{"contacts":2}`)
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := job.NewRegistry()
	_, ok := r.Get("nonexistent")
	if ok {
		t.Fatal("expected no handler for unregistered job")
	}
}

func TestRegistry_Names(t *testing.T) {
	r := job.NewRegistry()

	nop := func(_ context.Context, _ struct{}) (any, error) { return nil, nil }
	job.RegisterDefinition(r, job.NewDefinition("job-a", nop))
	job.RegisterDefinition(r, job.NewDefinition("job-b", nop))
	job.RegisterDefinition(r, job.NewDefinition("job-c", nop))

	names := r.Names()
	sort.Strings(names)
	if len(names) != 3 {
		t.Fatalf("expected 3 names, got %d", len(names))
	}
	expected := []string{"job-a", "job-b", "job-c"}
	for i, want := range expected {
		if names[i] != want {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want)
		}
	}
}

func TestRegistry_InvalidJSON(t *testing.T) {
	r := job.NewRegistry()
	job.RegisterDefinition(r, job.NewDefinition("typed-job", func(_ context.Context, _ syncPayload) (any, error) {
		t.Fatal("handler should not be called with invalid JSON")
		return nil, nil
	}))

	h, _ := r.Get("typed-job")
	if _, err := h(context.Background(), []byte("{not json")); err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestNew_AppliesOptions(t *testing.T) {
	j := job.New("sync-contacts-groups", "sync-tenant", []byte(`{}`),
		job.WithDelay(0),
		job.WithMaxAttempts(2),
		job.WithKeepCompleted(20),
		job.WithKeepFailed(50),
	)

	if j.Queue != "sync-contacts-groups" {
		t.Errorf("Queue = %q", j.Queue)
	}
	if j.State != job.StatePending {
		t.Errorf("State = %q, want pending", j.State)
	}
	if j.MaxAttempts != 2 || j.KeepCompleted != 20 || j.KeepFailed != 50 {
		t.Errorf("options not applied: %+v", j)
	}
	if j.ID == "" {
		t.Error("expected a generated ID")
	}
	if j.Terminal() {
		t.Error("fresh job must not be terminal")
	}
}
