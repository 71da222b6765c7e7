package evolution_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jordan-quiroz/sync-service/evolution"
)

func TestConnected(t *testing.T) {
	tests := []struct {
		state string
		want  bool
	}{
		{"open", true},
		{"OPEN", true},
		{"Connected", true},
		{"connected", true},
		{"close", false},
		{"connecting", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			if got := evolution.Connected(tt.state); got != tt.want {
				t.Errorf("Connected(%q) = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}

func TestClient_ConnectionState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/instance/connectionState/T1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("method = %q", r.Method)
		}
		if r.Header.Get("apikey") != "secret" {
			t.Errorf("apikey header = %q", r.Header.Get("apikey"))
		}
		w.Write([]byte(`{"instance":{"state":"open"}}`))
	}))
	defer srv.Close()

	c := evolution.NewClient(srv.URL, "secret")
	state, err := c.ConnectionState(context.Background(), "T1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != "open" {
		t.Errorf("state = %q, want open", state)
	}
}

func TestClient_FindContacts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/findContacts/T1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q", r.Method)
		}
		w.Write([]byte(`[
			{"remoteJid":"56911111111@s.whatsapp.net","id":"w1","name":"Ana","isBusiness":true},
			{"remoteJid":"123@g.us","id":"w2","isGroup":true},
			{"id":"w3","pushName":"NoJid"}
		]`))
	}))
	defer srv.Close()

	c := evolution.NewClient(srv.URL, "secret")
	contacts, err := c.FindContacts(context.Background(), "T1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contacts) != 3 {
		t.Fatalf("len = %d, want 3", len(contacts))
	}
	if contacts[0].Name != "Ana" || !contacts[0].IsBusiness {
		t.Errorf("contact[0] = %+v", contacts[0])
	}
	if !contacts[1].IsGroup {
		t.Errorf("contact[1] should be a group entry")
	}
	if contacts[2].RemoteJid != "" {
		t.Errorf("contact[2] should lack a remoteJid")
	}
}

func TestClient_FetchAllGroups(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/group/fetchAllGroups/T1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("getParticipants") != "false" {
			t.Errorf("getParticipants = %q, want false", r.URL.Query().Get("getParticipants"))
		}
		w.Write([]byte(`[{"id":"123@g.us","subject":"Family","size":8},{"id":"456@g.us"}]`))
	}))
	defer srv.Close()

	c := evolution.NewClient(srv.URL, "secret")
	groups, err := c.FetchAllGroups(context.Background(), "T1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("len = %d, want 2", len(groups))
	}
	if groups[0].Subject != "Family" || groups[0].Size != 8 {
		t.Errorf("groups[0] = %+v", groups[0])
	}
}

func TestClient_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := evolution.NewClient(srv.URL, "wrong")
	if _, err := c.ConnectionState(context.Background(), "T1"); err == nil {
		t.Fatal("expected error for 401 response")
	}
}
