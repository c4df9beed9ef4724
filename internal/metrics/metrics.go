// Package metrics exports cache and HTTP metrics in Prometheus format
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cache-mate/internal/localcache"
)

// Namespace prefixes every metric name
const Namespace = "cachemate"

// CacheSource lists the caches to report on
type CacheSource interface {
	Each(fn func(*localcache.Cache))
}

// Collector holds the process's metrics on a private registry
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewCollector registers cache metrics read from source together with HTTP and runtime
// metrics
func NewCollector(source CacheSource) *Collector {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		newCacheCollector(source),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Collector{
		registry:     registry,
		HTTPRequests: httpRequests,
		HTTPDuration: httpDuration,
	}
}

// ObserveHTTP records one finished request
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

var (
	hitsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "cache", "hits_total"),
		"Reads that returned a value",
		[]string{"cache"}, nil,
	)
	missesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "cache", "misses_total"),
		"Reads that returned no value",
		[]string{"cache"}, nil,
	)
	entriesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "cache", "local_entries"),
		"Entries held in the local snapshot",
		[]string{"cache"}, nil,
	)
	capacityDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "cache", "local_capacity"),
		"Local snapshot bound",
		[]string{"cache"}, nil,
	)
	evictionsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "cache", "local_evictions_total"),
		"Local entries dropped for capacity",
		[]string{"cache"}, nil,
	)
	peerEventsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "cache", "peer_events_applied_total"),
		"Change events from other processes applied to the local snapshot",
		[]string{"cache"}, nil,
	)
	staleEventsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "cache", "peer_events_stale_total"),
		"Change events from other processes dropped as older than the local snapshot",
		[]string{"cache"}, nil,
	)
)

// cacheCollector reads counters from live caches at scrape time
type cacheCollector struct {
	source CacheSource
}

func newCacheCollector(source CacheSource) *cacheCollector {
	return &cacheCollector{source: source}
}

func (c *cacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- hitsDesc
	ch <- missesDesc
	ch <- entriesDesc
	ch <- capacityDesc
	ch <- evictionsDesc
	ch <- peerEventsDesc
	ch <- staleEventsDesc
}

func (c *cacheCollector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		return
	}
	c.source.Each(func(cache *localcache.Cache) {
		s := cache.Stats()
		ch <- prometheus.MustNewConstMetric(hitsDesc, prometheus.CounterValue, float64(s.Hits), s.Name)
		ch <- prometheus.MustNewConstMetric(missesDesc, prometheus.CounterValue, float64(s.Misses), s.Name)
		ch <- prometheus.MustNewConstMetric(entriesDesc, prometheus.GaugeValue, float64(s.SizeInMemory), s.Name)
		ch <- prometheus.MustNewConstMetric(capacityDesc, prometheus.GaugeValue, float64(s.Capacity), s.Name)
		ch <- prometheus.MustNewConstMetric(evictionsDesc, prometheus.CounterValue, float64(s.Evictions), s.Name)
		ch <- prometheus.MustNewConstMetric(peerEventsDesc, prometheus.CounterValue, float64(s.PeerEvents), s.Name)
		ch <- prometheus.MustNewConstMetric(staleEventsDesc, prometheus.CounterValue, float64(s.StaleEvents), s.Name)
	})
}
