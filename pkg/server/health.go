package server

import (
	"context"
	"net/http"
	"time"
)

// HealthCheckTimeout bounds the backend check behind a readiness request.
const HealthCheckTimeout = 5 * time.Second

// HealthChecker is a backend that can report whether it is reachable.
type HealthChecker interface {
	Healthcheck(ctx context.Context) error
}

// Response is the envelope for health responses.
type Response struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func healthyResponse(data any) Response {
	return Response{Status: "healthy", Timestamp: time.Now().UTC(), Data: data}
}

func unhealthyResponse(errMsg string) Response {
	return Response{Status: "unhealthy", Timestamp: time.Now().UTC(), Error: errMsg}
}

// HealthHandler serves the liveness and readiness checks.
type HealthHandler struct {
	directory HealthChecker
	startTime time.Time
}

// NewHealthHandler returns a health handler. directory may be nil.
func NewHealthHandler(directory HealthChecker) *HealthHandler {
	return &HealthHandler{directory: directory, startTime: time.Now()}
}

// Liveness handles GET /health.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(h.startTime)
	WriteJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"service":    "contactpic",
		"started_at": h.startTime.UTC().Format(time.RFC3339),
		"uptime":     uptime.Round(time.Second).String(),
		"uptime_sec": int64(uptime.Seconds()),
	}))
}

// Readiness handles GET /health/ready. It fails when the contact directory
// does not answer.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.directory == nil {
		WriteJSON(w, http.StatusOK, healthyResponse(nil))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), HealthCheckTimeout)
	defer cancel()

	start := time.Now()
	if err := h.directory.Healthcheck(ctx); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
		return
	}

	WriteJSON(w, http.StatusOK, healthyResponse(map[string]any{
		"directory_latency": time.Since(start).String(),
	}))
}
