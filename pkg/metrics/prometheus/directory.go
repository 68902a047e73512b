package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/contactpic/pkg/directory"
	"github.com/marmos91/contactpic/pkg/metrics"
)

// directoryMetrics is the Prometheus implementation of directory.Metrics.
type directoryMetrics struct {
	lookups       *prometheus.CounterVec
	lookupTime    *prometheus.HistogramVec
	cacheHitRatio *prometheus.GaugeVec
}

// NewDirectoryMetrics creates Prometheus-backed directory metrics.
//
// Returns nil if metrics are not enabled.
func NewDirectoryMetrics() directory.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &directoryMetrics{
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "contactpic_directory_lookups_total",
				Help: "Total number of photo lookups by directory type and outcome",
			},
			[]string{"type", "outcome"}, // outcome: "found", "missing", "error"
		),
		lookupTime: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "contactpic_directory_lookup_duration_milliseconds",
				Help:    "Duration of photo lookups in milliseconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 50, 100, 500},
			},
			[]string{"type"},
		),
		cacheHitRatio: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "contactpic_directory_cache_hit_ratio",
				Help: "Embedded store cache hit ratio (0.0 to 1.0) by cache type",
			},
			[]string{"cache_type"}, // "block", "index"
		),
	}
}

func (m *directoryMetrics) ObserveLookup(typ directory.Type, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(string(typ), outcome).Inc()
	m.lookupTime.WithLabelValues(string(typ)).Observe(float64(d.Microseconds()) / 1000)
}

func (m *directoryMetrics) RecordCacheHitRatio(cacheType string, ratio float64) {
	if m == nil {
		return
	}
	m.cacheHitRatio.WithLabelValues(cacheType).Set(ratio)
}
