package client

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	v1 "github.com/fyrsmithlabs/chunkopt/pkg/api/v1"
)

// Cache defaults.
const (
	DefaultCacheTTL  = time.Hour
	DefaultCacheSize = 1024
)

type cacheEntry struct {
	fingerprint uint64
	resp        v1.AnalyzeChunkResponse
}

// responseCache holds chunk responses keyed by "chunk:<id>". An entry is only
// served when the request that produced it had the same content, domain and
// options, so reusing an id for new content never returns stale scores.
type responseCache struct {
	lru *expirable.LRU[string, cacheEntry]
}

func newResponseCache(ttl time.Duration, size int) *responseCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &responseCache{lru: expirable.NewLRU[string, cacheEntry](size, nil, ttl)}
}

func cacheKey(chunkID string) string {
	return "chunk:" + chunkID
}

func fingerprint(req *v1.AnalyzeChunkRequest) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(req.Domain)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(req.Content)
	if o := req.Options; o != nil {
		for _, b := range []*bool{o.CheckQuality, o.CheckRedundancy, o.CheckSize, o.CheckSimilarity} {
			switch {
			case b == nil:
				_, _ = d.Write([]byte{2})
			case *b:
				_, _ = d.Write([]byte{1})
			default:
				_, _ = d.Write([]byte{0})
			}
		}
		if o.SimilarityThreshold != nil {
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(*o.SimilarityThreshold))
			_, _ = d.Write(buf[:])
		}
	}
	return d.Sum64()
}

func (c *responseCache) get(req *v1.AnalyzeChunkRequest) (v1.AnalyzeChunkResponse, bool) {
	if c == nil {
		return v1.AnalyzeChunkResponse{}, false
	}
	e, ok := c.lru.Get(cacheKey(req.ChunkID))
	if !ok || e.fingerprint != fingerprint(req) {
		return v1.AnalyzeChunkResponse{}, false
	}
	return e.resp, true
}

func (c *responseCache) add(req *v1.AnalyzeChunkRequest, resp v1.AnalyzeChunkResponse) {
	if c == nil {
		return
	}
	c.lru.Add(cacheKey(req.ChunkID), cacheEntry{fingerprint: fingerprint(req), resp: resp})
}

func (c *responseCache) purge() {
	if c != nil {
		c.lru.Purge()
	}
}

func (c *responseCache) size() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
