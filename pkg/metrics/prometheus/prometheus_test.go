package prometheus

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/contactpic/pkg/avatar/loader"
	"github.com/marmos91/contactpic/pkg/directory"
	"github.com/marmos91/contactpic/pkg/metrics"
)

func TestConstructors_DisabledReturnNil(t *testing.T) {
	metrics.Reset()

	assert.Nil(t, NewCacheMetrics())
	assert.Nil(t, NewLoaderMetrics())
	assert.Nil(t, NewDirectoryMetrics())
}

func TestNilReceiversAreSafe(t *testing.T) {
	var c *cacheMetrics
	c.RecordHit()
	c.RecordMiss()
	c.RecordInsert(10)
	c.RecordEviction()
	c.RecordSize(1, 1)

	var l *loaderMetrics
	l.RecordDispatch()
	l.RecordRejected()
	l.RecordDelivery(true)
	l.RecordResolution(loader.SourcePhoto)
	l.ObserveFetch(loader.SourcePhoto, time.Millisecond)

	var d *directoryMetrics
	d.ObserveLookup(directory.TypeStatic, directory.OutcomeFound, time.Millisecond)
	d.RecordCacheHitRatio("block", 0.5)
}

func TestCacheMetrics(t *testing.T) {
	metrics.InitRegistry()
	t.Cleanup(metrics.Reset)

	m := NewCacheMetrics().(*cacheMetrics)
	m.RecordHit()
	m.RecordHit()
	m.RecordMiss()
	m.RecordInsert(6400)
	m.RecordEviction()
	m.RecordSize(12800, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.lookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inserts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evictions))
	assert.Equal(t, 12800.0, testutil.ToFloat64(m.sizeBytes))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.entries))
}

func TestLoaderMetrics(t *testing.T) {
	metrics.InitRegistry()
	t.Cleanup(metrics.Reset)

	m := NewLoaderMetrics().(*loaderMetrics)
	m.RecordDispatch()
	m.RecordRejected()
	m.RecordDelivery(true)
	m.RecordDelivery(false)
	m.RecordDelivery(false)
	m.RecordResolution(loader.SourceCache)
	m.ObserveFetch(loader.SourceFallback, 2*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatched))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("delivered")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.deliveries.WithLabelValues("stale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues("cache")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.fetchTime))
}

func TestDirectoryMetrics_Exposed(t *testing.T) {
	reg := metrics.InitRegistry()
	t.Cleanup(metrics.Reset)

	m := NewDirectoryMetrics()
	require.NotNil(t, m)
	m.ObserveLookup(directory.TypeSQLite, directory.OutcomeMissing, time.Millisecond)
	m.RecordCacheHitRatio("block", 0.75)

	expected := `
# HELP contactpic_directory_cache_hit_ratio Embedded store cache hit ratio (0.0 to 1.0) by cache type
# TYPE contactpic_directory_cache_hit_ratio gauge
contactpic_directory_cache_hit_ratio{cache_type="block"} 0.75
# HELP contactpic_directory_lookups_total Total number of photo lookups by directory type and outcome
# TYPE contactpic_directory_lookups_total counter
contactpic_directory_lookups_total{outcome="missing",type="sqlite"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"contactpic_directory_cache_hit_ratio", "contactpic_directory_lookups_total"))
}
