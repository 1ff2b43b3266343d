// Package metrics provides Prometheus metrics collection for an Urbis
// index.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector wraps the Prometheus counters/gauges an Urbis index reports.
// A nil *Collector is a valid, fully inert no-op: every method on it
// tolerates a nil receiver, so wiring metrics is opt-in and nothing in
// the index core takes a hard dependency on Prometheus being present.
type Collector struct {
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	pagesAllocated prometheus.Counter
	pagesFreed     prometheus.Counter
	objectsIndexed prometheus.Gauge
	seeksEstimated *prometheus.HistogramVec
	syncDuration   prometheus.Histogram
	buildDuration  prometheus.Histogram
}

// NewCollector registers a fresh set of collectors under namespace
// (defaulting to "urbis") and returns them. Registering the same
// namespace twice against the default registry will panic, matching
// promauto's own behavior — callers constructing more than one Collector
// in a process should use distinct namespaces or a private registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "urbis"
	}

	return &Collector{
		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of page cache hits.",
		}),
		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of page cache misses.",
		}),
		pagesAllocated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_allocated_total",
			Help:      "Total number of pages allocated by the disk manager.",
		}),
		pagesFreed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_freed_total",
			Help:      "Total number of pages freed by the disk manager.",
		}),
		objectsIndexed: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "objects_indexed",
			Help:      "Current number of objects held by the index.",
		}),
		seeksEstimated: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "seeks_estimated",
			Help:      "Estimated disk seeks per query, by query kind.",
			Buckets:   prometheus.LinearBuckets(0, 1, 10),
		}, []string{"query_kind"}),
		syncDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of disk manager Sync calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		buildDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of index Build calls.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// IncCacheHit records a page cache hit.
func (c *Collector) IncCacheHit() {
	if c == nil {
		return
	}
	c.cacheHits.Inc()
}

// IncCacheMiss records a page cache miss.
func (c *Collector) IncCacheMiss() {
	if c == nil {
		return
	}
	c.cacheMisses.Inc()
}

// IncPagesAllocated records n freshly allocated pages.
func (c *Collector) IncPagesAllocated(n int) {
	if c == nil {
		return
	}
	c.pagesAllocated.Add(float64(n))
}

// IncPagesFreed records n freed pages.
func (c *Collector) IncPagesFreed(n int) {
	if c == nil {
		return
	}
	c.pagesFreed.Add(float64(n))
}

// SetObjectsIndexed sets the current object count gauge.
func (c *Collector) SetObjectsIndexed(n int) {
	if c == nil {
		return
	}
	c.objectsIndexed.Set(float64(n))
}

// ObserveSeeksEstimated records an estimated-seeks value for a query of
// the given kind (e.g. "range", "knn", "adjacent").
func (c *Collector) ObserveSeeksEstimated(queryKind string, seeks uint64) {
	if c == nil {
		return
	}
	c.seeksEstimated.WithLabelValues(queryKind).Observe(float64(seeks))
}

// ObserveSyncDuration records how long a disk manager Sync call took.
func (c *Collector) ObserveSyncDuration(d time.Duration) {
	if c == nil {
		return
	}
	c.syncDuration.Observe(d.Seconds())
}

// ObserveBuildDuration records how long an index Build call took.
func (c *Collector) ObserveBuildDuration(d time.Duration) {
	if c == nil {
		return
	}
	c.buildDuration.Observe(d.Seconds())
}
