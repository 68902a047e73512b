package logger

import (
	"log/slog"
)

// Standard field keys. Use these rather than ad-hoc strings so log
// aggregation can query them consistently.
const (
	// Tracing and requests
	KeyTraceID   = "trace_id"
	KeySpanID    = "span_id"
	KeyRequestID = "request_id"
	KeyClientIP  = "client_ip"
	KeyMethod    = "method"
	KeyPath      = "path"
	KeyStatus    = "status"

	// Contacts and slots
	KeyAddress     = "address"
	KeyDisplayName = "display_name"
	KeyKey         = "key"
	KeySlot        = "slot"
	KeyLocator     = "locator"

	// Fetch tasks
	KeyTaskID = "task_id"
	KeyEpoch  = "epoch"
	KeyState  = "state"
	KeySource = "source" // cache, photo, fallback
	KeyJob    = "job"
	KeyWorker = "worker_id"

	// Cache
	KeyCacheHit      = "cache_hit"
	KeyCacheSize     = "cache_size"
	KeyCacheCapacity = "cache_capacity"
	KeyEntries       = "entries"
	KeyBytes         = "bytes"

	// Directory
	KeyDirectory = "directory"

	// Common
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
)

// Err returns an error attribute, or an empty attribute for nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Address returns a contact address attribute.
func Address(a string) slog.Attr {
	return slog.String(KeyAddress, a)
}

// Slot returns a slot attribute. Handles implement fmt.Stringer.
func Slot(s interface{ String() string }) slog.Attr {
	return slog.String(KeySlot, s.String())
}

// TaskID returns a fetch task ID attribute.
func TaskID(id string) slog.Attr {
	return slog.String(KeyTaskID, id)
}

// Epoch returns a slot epoch attribute.
func Epoch(e uint64) slog.Attr {
	return slog.Uint64(KeyEpoch, e)
}

// Source returns an image source attribute.
func Source(src string) slog.Attr {
	return slog.String(KeySource, src)
}

// CacheSize returns a resident cache size attribute in bytes.
func CacheSize(n int64) slog.Attr {
	return slog.Int64(KeyCacheSize, n)
}

// DurationMs returns a duration attribute in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}
