package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/teemow/meetslot/internal/availability"
)

// Health status values.
const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusNoCalendar   = "no calendar backend configured"
	healthStatusDegraded     = "degraded"
)

// HealthChecker serves the liveness, readiness and detailed health endpoints.
type HealthChecker struct {
	ready         atomic.Bool
	serverContext *ServerContext
	startTime     time.Time
	version       string
}

// NewHealthChecker creates a HealthChecker reporting version on the detailed
// endpoint. It starts ready. sc may be nil.
func NewHealthChecker(sc *ServerContext, version string) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
		version:       version,
	}
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status   string                 `json:"status"`
	Version  string                 `json:"version,omitempty"`
	Uptime   string                 `json:"uptime"`
	ReadOnly bool                   `json:"readOnly"`
	Booking  bool                   `json:"booking"`
	Timezone string                 `json:"timezone,omitempty"`
	Backends []availability.Backend `json:"backends"`
	Checks   map[string]string      `json:"checks"`
}

// checks evaluates readiness. A server whose backends are all unconfigured
// can only answer "unknown" and is not ready.
func (h *HealthChecker) checks() (map[string]string, bool) {
	checks := map[string]string{
		"ready":     healthStatusOK,
		"shutdown":  healthStatusOK,
		"calendars": healthStatusOK,
	}
	ok := true

	if !h.ready.Load() {
		checks["ready"] = healthStatusNotReady
		ok = false
	}
	if h.serverContext == nil {
		return checks, ok
	}
	if h.serverContext.IsShutdown() {
		checks["shutdown"] = healthStatusShuttingDown
		ok = false
	}
	if !anyConfigured(h.serverContext.Engine().Backends()) {
		checks["calendars"] = healthStatusNoCalendar
		ok = false
	}
	return checks, ok
}

func anyConfigured(backends []availability.Backend) bool {
	for _, b := range backends {
		if b.Configured {
			return true
		}
	}
	return false
}

// LivenessHandler serves /healthz. It only reports that the process runs.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealthJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler serves /readyz.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks, ok := h.checks()
		if !ok {
			writeHealthJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: healthStatusNotReady, Checks: checks})
			return
		}
		writeHealthJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK, Checks: checks})
	})
}

// DetailedHealthHandler serves /healthz/detailed with the backend states.
// Some unconfigured backends make the status "degraded" without failing it.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks, ok := h.checks()
		response := DetailedHealthResponse{
			Status:   healthStatusOK,
			Version:  h.version,
			Uptime:   time.Since(h.startTime).Truncate(time.Second).String(),
			ReadOnly: true,
			Backends: []availability.Backend{},
			Checks:   checks,
		}
		if sc := h.serverContext; sc != nil {
			response.ReadOnly = sc.ReadOnly()
			response.Booking = sc.CanBook()
			response.Backends = sc.Engine().Backends()
			if loc := sc.Engine().Policy().Location; loc != nil {
				response.Timezone = loc.String()
			}
		}

		status := http.StatusOK
		switch {
		case !ok:
			response.Status = healthStatusNotReady
			if checks["shutdown"] != healthStatusOK {
				response.Status = healthStatusShuttingDown
			}
			status = http.StatusServiceUnavailable
		case len(response.Backends) > 0 && !allConfigured(response.Backends):
			response.Status = healthStatusDegraded
		}
		writeHealthJSON(w, status, response)
	})
}

func allConfigured(backends []availability.Backend) bool {
	for _, b := range backends {
		if !b.Configured {
			return false
		}
	}
	return true
}

func writeHealthJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// RegisterHealthEndpoints registers health check endpoints on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}
