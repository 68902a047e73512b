// Package prometheus provides Prometheus implementations of the metrics
// interfaces declared by the avatar and directory packages.
//
// Every constructor returns nil when metrics are disabled
// (metrics.InitRegistry not called). Consumers treat a nil sink as
// "record nothing".
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/contactpic/pkg/avatar/cache"
	"github.com/marmos91/contactpic/pkg/metrics"
)

// cacheMetrics is the Prometheus implementation of cache.Metrics.
type cacheMetrics struct {
	lookups     *prometheus.CounterVec
	inserts     prometheus.Counter
	insertBytes prometheus.Histogram
	evictions   prometheus.Counter
	sizeBytes   prometheus.Gauge
	entries     prometheus.Gauge
}

// NewCacheMetrics creates Prometheus-backed image cache metrics.
//
// Returns nil if metrics are not enabled.
func NewCacheMetrics() cache.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &cacheMetrics{
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "contactpic_cache_lookups_total",
				Help: "Total number of image cache lookups by result",
			},
			[]string{"result"}, // "hit", "miss"
		),
		inserts: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "contactpic_cache_inserts_total",
				Help: "Total number of images inserted into the cache",
			},
		),
		insertBytes: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "contactpic_cache_insert_bytes",
				Help: "Distribution of inserted image sizes in bytes",
				Buckets: []float64{
					1024,    // 16x16
					6400,    // 40x40
					16384,   // 64x64
					65536,   // 128x128
					262144,  // 256x256
					1048576, // 512x512
				},
			},
		),
		evictions: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "contactpic_cache_evictions_total",
				Help: "Total number of images evicted to stay within capacity",
			},
		),
		sizeBytes: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "contactpic_cache_size_bytes",
				Help: "Resident size of the image cache in bytes",
			},
		),
		entries: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "contactpic_cache_entries",
				Help: "Number of images resident in the cache",
			},
		),
	}
}

func (m *cacheMetrics) RecordHit() {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues("hit").Inc()
}

func (m *cacheMetrics) RecordMiss() {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues("miss").Inc()
}

func (m *cacheMetrics) RecordInsert(bytes int64) {
	if m == nil {
		return
	}
	m.inserts.Inc()
	m.insertBytes.Observe(float64(bytes))
}

func (m *cacheMetrics) RecordEviction() {
	if m == nil {
		return
	}
	m.evictions.Inc()
}

func (m *cacheMetrics) RecordSize(bytes int64, entries int) {
	if m == nil {
		return
	}
	m.sizeBytes.Set(float64(bytes))
	m.entries.Set(float64(entries))
}
