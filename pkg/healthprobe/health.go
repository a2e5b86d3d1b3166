package healthprobe

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

// HealthChecker provides health and readiness checks. Readiness requires
// both the startup flag and every registered component check to pass, so
// a dropped feed connection or an open RPC breaker takes the process out
// of rotation without killing it.
type HealthChecker struct {
	startTime time.Time
	ready     atomic.Bool

	mu     sync.RWMutex
	checks map[string]bool
}

// New creates a new HealthChecker.
func New() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		checks:    make(map[string]bool),
	}
}

// SetReady marks the application as ready to serve traffic.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// SetCheck records the state of a named component check.
func (h *HealthChecker) SetCheck(name string, ok bool) {
	h.mu.Lock()
	h.checks[name] = ok
	h.mu.Unlock()
}

// checkSnapshot copies the current check states; allFailing reports
// whether any registered check is failing.
func (h *HealthChecker) checkSnapshot() (map[string]bool, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	anyFailing := false
	snapshot := make(map[string]bool, len(h.checks))
	for name, ok := range h.checks {
		snapshot[name] = ok
		if !ok {
			anyFailing = true
		}
	}
	return snapshot, anyFailing
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string          `json:"status"`
	Uptime  string          `json:"uptime,omitempty"`
	Checks  map[string]bool `json:"checks,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Health returns an HTTP handler for liveness checks.
// Always returns 200 OK if the application is running.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := time.Since(h.startTime)
		resp := HealthResponse{
			Status: "healthy",
			Uptime: uptime.String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK when the startup flag is set and all component checks
// pass, 503 Service Unavailable otherwise.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if !h.ready.Load() {
			resp := HealthResponse{
				Status:  "not_ready",
				Message: "application is starting",
			}
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		if snapshot, failing := h.checkSnapshot(); failing {
			resp := HealthResponse{
				Status:  "not_ready",
				Checks:  snapshot,
				Message: "component checks failing",
			}
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		uptime := time.Since(h.startTime)
		resp := HealthResponse{
			Status: "ready",
			Uptime: uptime.String(),
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
