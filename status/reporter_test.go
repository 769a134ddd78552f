package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/soff-io/warelay/session"
)

func TestCurrentStatusProjection(t *testing.T) {
	cases := []struct {
		name   string
		events []session.Event
		want   string
	}{
		{name: "fresh process", events: nil, want: "initializing"},
		{name: "qr shown", events: []session.Event{session.PairingCodeIssued{}}, want: "waiting_for_scan"},
		{name: "ready", events: []session.Event{session.PairingCodeIssued{}, session.Ready{}}, want: "ready"},
		{name: "disconnected after pairing", events: []session.Event{session.PairingCodeIssued{}, session.Ready{}, session.Disconnected{}}, want: "waiting_for_scan"},
		{name: "disconnected without pairing", events: []session.Event{session.Ready{}, session.Disconnected{}}, want: "initializing"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := session.NewState()
			for _, ev := range tc.events {
				st.Apply(ev)
			}
			r := NewReporter(st, "warelay")
			if got := r.CurrentStatus(); got != tc.want {
				t.Fatalf("CurrentStatus() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRootEndpoint(t *testing.T) {
	st := session.NewState()
	st.Apply(session.PairingCodeIssued{})
	st.Apply(session.Ready{})
	r := NewReporter(st, "WhatsApp AI Chatbot")
	r.now = func() time.Time { return time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC) }

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Status    string `json:"status"`
		Bot       string `json:"bot"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ready" {
		t.Fatalf("status = %q, want ready", body.Status)
	}
	if body.Bot != "WhatsApp AI Chatbot" {
		t.Fatalf("bot = %q", body.Bot)
	}
	if body.Timestamp != "2026-02-08T10:00:00Z" {
		t.Fatalf("timestamp = %q, want RFC3339", body.Timestamp)
	}
}

func TestHealthEndpoint(t *testing.T) {
	st := session.NewState()
	r := NewReporter(st, "warelay")
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	check := func(want string) {
		t.Helper()
		resp, err := http.Get(srv.URL + "/health")
		if err != nil {
			t.Fatalf("GET /health: %v", err)
		}
		defer resp.Body.Close()
		var body struct {
			Status   string `json:"status"`
			WhatsApp string `json:"whatsapp"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Status != "healthy" {
			t.Fatalf("status = %q, want healthy", body.Status)
		}
		if body.WhatsApp != want {
			t.Fatalf("whatsapp = %q, want %q", body.WhatsApp, want)
		}
	}

	check("disconnected")
	st.Apply(session.Ready{})
	check("connected")
}

func TestUnknownPathIs404(t *testing.T) {
	r := NewReporter(session.NewState(), "warelay")
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatalf("GET /nope: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET /nope status = %d, want 404", resp.StatusCode)
	}
}
