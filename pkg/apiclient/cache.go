package apiclient

import (
	"context"
	"net/http"
)

// CacheStats mirrors GET /api/v1/cache/stats.
type CacheStats struct {
	Cache struct {
		Entries   int    `json:"entries"`
		Size      int64  `json:"size_bytes"`
		Capacity  int64  `json:"capacity_bytes"`
		Hits      uint64 `json:"hits"`
		Misses    uint64 `json:"misses"`
		Inserts   uint64 `json:"inserts"`
		Evictions uint64 `json:"evictions"`
		Rejects   uint64 `json:"rejects"`
	} `json:"cache"`
	HitRate float64 `json:"hit_rate"`
	Queue   struct {
		Workers   int    `json:"workers"`
		Capacity  int    `json:"capacity"`
		Pending   int    `json:"pending"`
		Completed uint64 `json:"completed"`
		Failed    uint64 `json:"failed"`
		Rejected  uint64 `json:"rejected"`
	} `json:"queue"`
	InFlight int `json:"in_flight"`
	Slots    int `json:"slots"`
}

// CacheStats returns cache and worker pool statistics.
func (c *Client) CacheStats(ctx context.Context) (*CacheStats, error) {
	var stats CacheStats
	if err := c.do(ctx, http.MethodGet, "/api/v1/cache/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// PurgeCache drops every cached avatar.
func (c *Client) PurgeCache(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/cache", nil)
}

// InvalidateAvatar drops the cached avatar for address. It fails with a
// not-found APIError when nothing was cached.
func (c *Client) InvalidateAvatar(ctx context.Context, address string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/cache/"+escapeAddress(address), nil)
}
