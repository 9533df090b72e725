package optimizer

import (
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fyrsmithlabs/chunkopt/internal/profile"
)

// cacheKey identifies a computed Metrics value. The chunk id is deliberately
// absent: two chunks with the same content share an entry and two chunks
// with the same id but different content never do.
type cacheKey struct {
	content     uint64
	length      int
	profile     string
	profileHash uint64
}

func newCacheKey(content string, p profile.Profile) cacheKey {
	return cacheKey{
		content:     xxhash.Sum64String(content),
		length:      utf8.RuneCountInString(content),
		profile:     p.Name,
		profileHash: p.Hash(),
	}
}

// metricsCache is a size-bounded LRU of Metrics. A nil *metricsCache is a
// valid, always-missing cache.
type metricsCache struct {
	lru     *lru.Cache[cacheKey, Metrics]
	metrics *CacheMetrics
}

func newMetricsCache(size int, m *CacheMetrics) (*metricsCache, error) {
	if size <= 0 {
		return nil, nil
	}
	c := &metricsCache{metrics: m}
	l, err := lru.NewWithEvict(size, func(cacheKey, Metrics) {
		if c.metrics != nil {
			c.metrics.EvictionsTotal.Inc()
		}
	})
	if err != nil {
		return nil, err
	}
	c.lru = l
	return c, nil
}

// get returns the cached metrics re-stamped with chunkID.
func (c *metricsCache) get(k cacheKey, chunkID string) (Metrics, bool) {
	if c == nil {
		return Metrics{}, false
	}
	m, ok := c.lru.Get(k)
	if c.metrics != nil {
		if ok {
			c.metrics.HitsTotal.Inc()
		} else {
			c.metrics.MissesTotal.Inc()
		}
	}
	if !ok {
		return Metrics{}, false
	}
	m.ChunkID = chunkID
	return m, true
}

func (c *metricsCache) add(k cacheKey, m Metrics) {
	if c == nil {
		return
	}
	c.lru.Add(k, m)
	if c.metrics != nil {
		c.metrics.Size.Set(float64(c.lru.Len()))
	}
}

func (c *metricsCache) size() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
