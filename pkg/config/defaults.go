package config

import (
	"strings"
	"time"

	"github.com/marmos91/contactpic/internal/bytesize"
	"github.com/marmos91/contactpic/pkg/avatar/workqueue"
	"github.com/marmos91/contactpic/pkg/photo"
)

const (
	// DefaultPictureSize is the avatar edge length in pixels.
	DefaultPictureSize = 40

	// DefaultBudgetDivisor gives the cache a sixteenth of the memory budget.
	DefaultBudgetDivisor = 16

	// DefaultFetchTimeout bounds one background fetch.
	DefaultFetchTimeout = 10 * time.Second
)

// ApplyDefaults sets default values for any unspecified configuration fields.
// Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyMetricsDefaults(&cfg.Metrics)
	applyServerDefaults(&cfg.Server)
	applyAvatarDefaults(&cfg.Avatar)
	applyCacheDefaults(&cfg.Cache)
	cfg.Directory.ApplyDefaults()
	applyPhotosDefaults(&cfg.Photos)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	if cfg.Profiling.Endpoint == "" {
		cfg.Profiling.Endpoint = "http://localhost:4040"
	}
	if len(cfg.Profiling.ProfileTypes) == 0 {
		cfg.Profiling.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Path == "" {
		cfg.Path = "/metrics"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
}

func applyAvatarDefaults(cfg *AvatarConfig) {
	if cfg.PictureSize == 0 {
		cfg.PictureSize = DefaultPictureSize
	}
	if cfg.Workers == 0 {
		cfg.Workers = workqueue.DefaultWorkers
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = workqueue.DefaultQueueSize
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
}

// applyCacheDefaults fills the divisor only. Capacity and budget stay zero
// so ResolveCacheCapacity can tell "unset" from an explicit value.
func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.BudgetDivisor == 0 {
		cfg.BudgetDivisor = DefaultBudgetDivisor
	}
}

func applyPhotosDefaults(cfg *PhotosConfig) {
	if cfg.MaxSourceBytes == 0 {
		cfg.MaxSourceBytes = bytesize.ByteSize(photo.DefaultMaxSourceBytes)
	}
	if cfg.MaxSourcePixels == 0 {
		cfg.MaxSourcePixels = photo.DefaultMaxSourcePixels
	}
}

// GetDefaultConfig returns a Config with all default values applied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
