// Package status exposes the read-only monitoring surface: a projection
// of the session state over HTTP. It never participates in message
// dispatch.
package status

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/soff-io/warelay/session"
)

type Reporter struct {
	state   *session.State
	botName string
	now     func() time.Time
}

func NewReporter(state *session.State, botName string) *Reporter {
	return &Reporter{state: state, botName: botName, now: time.Now}
}

// CurrentStatus projects the session state onto the external vocabulary:
// ready, waiting_for_scan, or initializing. A disconnected session that
// has shown a pairing code reports waiting_for_scan, since the next step
// for the operator is re-pairing.
func (r *Reporter) CurrentStatus() string {
	snap := r.state.Snapshot()
	switch {
	case snap.Status == session.StatusReady:
		return "ready"
	case snap.PairingSeen:
		return "waiting_for_scan"
	default:
		return "initializing"
	}
}

type statusResponse struct {
	Status    string `json:"status"`
	Bot       string `json:"bot"`
	Timestamp string `json:"timestamp"`
}

type healthResponse struct {
	Status   string `json:"status"`
	WhatsApp string `json:"whatsapp"`
}

func (r *Reporter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/" {
			http.NotFound(w, req)
			return
		}
		if req.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(statusResponse{
			Status:    r.CurrentStatus(),
			Bot:       r.botName,
			Timestamp: r.now().UTC().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		conn := "disconnected"
		if r.state.Connected() {
			conn = "connected"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(healthResponse{Status: "healthy", WhatsApp: conn})
	})
	return mux
}
