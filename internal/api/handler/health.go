package handler

import (
	"context"
	"net/http"
	"time"
)

var startTime = time.Now()

// ResolverChecker reports whether the external metadata resolver binary is
// usable.
type ResolverChecker interface {
	Available() bool
}

// Pinger checks a backing store is reachable. May be nil when the store is
// disabled.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	resolver ResolverChecker
	engineUp func() bool
	history  Pinger
}

// NewHealthHandler creates a new health handler. engineUp reports whether
// the transcode engine binaries are installed; history may be nil.
func NewHealthHandler(resolver ResolverChecker, engineUp func() bool, historyStore Pinger) *HealthHandler {
	return &HealthHandler{
		resolver: resolver,
		engineUp: engineUp,
		history:  historyStore,
	}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	UptimeSec int64             `json:"uptime_seconds,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Live handles GET /health - liveness probe.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		UptimeSec: int64(time.Since(startTime).Seconds()),
	})
}

// Ready handles GET /ready - readiness probe. The resolver is required;
// a missing transcode engine or unreachable history store degrades the
// report but does not fail it, since the proxy path still works.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{
		"resolver":   "ok",
		"transcoder": "ok",
		"history":    "disabled",
	}
	status := "ok"
	code := http.StatusOK

	if !h.resolver.Available() {
		checks["resolver"] = "unavailable"
		status = "error"
		code = http.StatusServiceUnavailable
	}
	if h.engineUp == nil || !h.engineUp() {
		checks["transcoder"] = "unavailable"
		if status == "ok" {
			status = "degraded"
		}
	}
	if h.history != nil {
		checks["history"] = "ok"
		if err := h.history.Ping(ctx); err != nil {
			checks["history"] = "unreachable"
			if status == "ok" {
				status = "degraded"
			}
		}
	}

	writeJSON(w, code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}
