package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/contactpic/pkg/avatar/loader"
	"github.com/marmos91/contactpic/pkg/metrics"
)

// loaderMetrics is the Prometheus implementation of loader.Metrics.
type loaderMetrics struct {
	dispatched  prometheus.Counter
	rejected    prometheus.Counter
	deliveries  *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	fetchTime   *prometheus.HistogramVec
}

// NewLoaderMetrics creates Prometheus-backed avatar loader metrics.
//
// Returns nil if metrics are not enabled.
func NewLoaderMetrics() loader.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &loaderMetrics{
		dispatched: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "contactpic_loader_dispatched_total",
				Help: "Total number of background fetches handed to the worker pool",
			},
		),
		rejected: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "contactpic_loader_rejected_total",
				Help: "Total number of fetches refused because the worker pool was full",
			},
		),
		deliveries: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "contactpic_loader_deliveries_total",
				Help: "Total number of completed fetches by outcome",
			},
			[]string{"outcome"}, // "delivered", "stale"
		),
		resolutions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "contactpic_loader_resolutions_total",
				Help: "Total number of avatars handed out by source",
			},
			[]string{"source"}, // "cache", "photo", "fallback"
		),
		fetchTime: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "contactpic_loader_fetch_duration_milliseconds",
				Help: "Time to produce an avatar off the cache path, in milliseconds",
				Buckets: []float64{
					0.5,  // fallback render
					1,    // 1ms
					5,    // 5ms
					10,   // 10ms
					25,   // 25ms - small local photo
					50,   // 50ms
					100,  // 100ms
					250,  // 250ms - large photo decode
					1000, // 1s
					5000, // 5s - slow directory
				},
			},
			[]string{"source"},
		),
	}
}

func (m *loaderMetrics) RecordDispatch() {
	if m == nil {
		return
	}
	m.dispatched.Inc()
}

func (m *loaderMetrics) RecordRejected() {
	if m == nil {
		return
	}
	m.rejected.Inc()
}

func (m *loaderMetrics) RecordDelivery(delivered bool) {
	if m == nil {
		return
	}
	outcome := "stale"
	if delivered {
		outcome = "delivered"
	}
	m.deliveries.WithLabelValues(outcome).Inc()
}

func (m *loaderMetrics) RecordResolution(src loader.Source) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(src.String()).Inc()
}

func (m *loaderMetrics) ObserveFetch(src loader.Source, d time.Duration) {
	if m == nil {
		return
	}
	m.fetchTime.WithLabelValues(src.String()).Observe(float64(d.Microseconds()) / 1000)
}
