package optimizer

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalCacheMetrics *CacheMetrics
	cacheMetricsOnce   sync.Once
)

// CacheMetrics holds Prometheus metrics for the metrics memo cache.
type CacheMetrics struct {
	HitsTotal      prometheus.Counter
	MissesTotal    prometheus.Counter
	EvictionsTotal prometheus.Counter
	Size           prometheus.Gauge
}

// NewCacheMetrics registers the cache metrics once with the default registry
// and returns the shared instance.
//
//   - chunkopt_cache_hits_total
//   - chunkopt_cache_misses_total
//   - chunkopt_cache_evictions_total
//   - chunkopt_cache_size
func NewCacheMetrics() *CacheMetrics {
	cacheMetricsOnce.Do(func() {
		globalCacheMetrics = &CacheMetrics{
			HitsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "chunkopt_cache_hits_total",
				Help: "Total number of metrics cache hits",
			}),
			MissesTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "chunkopt_cache_misses_total",
				Help: "Total number of metrics cache misses",
			}),
			EvictionsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "chunkopt_cache_evictions_total",
				Help: "Total number of entries evicted from the metrics cache",
			}),
			Size: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "chunkopt_cache_size",
				Help: "Current number of entries in the metrics cache",
			}),
		}
	})
	return globalCacheMetrics
}
