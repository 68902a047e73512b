package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// Health is the body of the health endpoints.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Data      struct {
		Service          string `json:"service,omitempty"`
		StartedAt        string `json:"started_at,omitempty"`
		Uptime           string `json:"uptime,omitempty"`
		UptimeSec        int64  `json:"uptime_sec,omitempty"`
		DirectoryLatency string `json:"directory_latency,omitempty"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// Healthy reports whether the server said so.
func (h *Health) Healthy() bool { return h.Status == "healthy" }

// Health calls the liveness endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Ready calls the readiness endpoint. An unready server is reported through
// the returned Health, not as an error.
func (c *Client) Ready(ctx context.Context) (*Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, "/health/ready", &h)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
		if json.Unmarshal(apiErr.body, &h) != nil || h.Status == "" {
			h = Health{Status: "unhealthy", Error: apiErr.Detail}
		}
		return &h, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}
