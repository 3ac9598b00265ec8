// Package zaptest provides an in-process stand-in for the engine's JSON
// control API, for tests that drive the real client end to end.
package zaptest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// Alert is one alert served by core/view/alerts, in the engine's wire
// format.
type Alert struct {
	ID       string `json:"id"`
	PluginID string `json:"pluginId"`
	Alert    string `json:"alert"`
	Risk     string `json:"risk"`
	CWEID    string `json:"cweid"`
	URL      string `json:"url"`
	Solution string `json:"solution,omitempty"`
}

// Server records every call and answers with a scan that completes on the
// first status poll.
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	calls  []string
	alerts []Alert
	fail   map[string]int
}

// NewServer starts a fake engine serving alerts.
func NewServer(alerts ...Alert) *Server {
	s := &Server{alerts: alerts, fail: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// FailWith makes calls to endpoint (e.g. "spider/action/scan") answer
// with status.
func (s *Server) FailWith(endpoint string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[endpoint] = status
}

// Calls returns the endpoints called so far, in order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Called reports how many times endpoint was called.
func (s *Server) Called(endpoint string) int {
	n := 0
	for _, c := range s.Calls() {
		if c == endpoint {
			n++
		}
	}
	return n
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	endpoint := strings.Trim(strings.TrimPrefix(r.URL.Path, "/JSON/"), "/")

	s.mu.Lock()
	s.calls = append(s.calls, endpoint)
	status, failing := s.fail[endpoint]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failing {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"code": "internal_error", "message": "injected failure"})
		return
	}

	q := r.URL.Query()
	var body any
	switch endpoint {
	case "context/action/newContext":
		body = map[string]string{"contextId": "1"}
	case "users/action/newUser":
		body = map[string]string{"userId": "7"}
	case "spider/action/scan":
		body = map[string]string{"scan": "2"}
	case "ascan/action/scan":
		body = map[string]string{"scan": "3"}
	case "spider/view/status", "ascan/view/status":
		body = map[string]string{"status": "100"}
	case "pscan/view/recordsToScan":
		body = map[string]string{"recordsToScan": "0"}
	case "core/view/version":
		body = map[string]string{"version": "2.16.0"}
	case "core/view/alerts":
		body = map[string]any{"alerts": s.page(q.Get("start"), q.Get("count"))}
	default:
		if strings.Contains(endpoint, "/action/") {
			body = map[string]string{"Result": "OK"}
		} else {
			w.WriteHeader(http.StatusBadRequest)
			body = map[string]string{"code": "bad_view", "message": "no such view " + endpoint}
		}
	}
	json.NewEncoder(w).Encode(body)
}

func (s *Server) page(startRaw, countRaw string) []Alert {
	start, _ := strconv.Atoi(startRaw)
	count, err := strconv.Atoi(countRaw)
	if err != nil || count <= 0 {
		count = len(s.alerts)
	}
	if start >= len(s.alerts) {
		return []Alert{}
	}
	end := min(start+count, len(s.alerts))
	return s.alerts[start:end]
}
