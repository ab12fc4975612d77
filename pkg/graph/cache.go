package graph

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// candidateCacheTTL bounds how long a resolved candidate set for one
// (label, name) pair is trusted before the next lookup re-queries the
// database. Short-lived: a graph-writer run resolves the same handful of
// names repeatedly across buckets within seconds of each other, which is
// exactly the access pattern this cache exists to absorb.
const candidateCacheTTL = 2 * time.Minute

// CandidateCache memoizes Resolver.candidates lookups. Backed by ristretto,
// an in-process, size-bounded, concurrent cache — appropriate here because
// the candidate set is read far more often than it changes within a single
// graph-writer execution, and a miss only costs a few extra SELECTs.
type CandidateCache struct {
	cache *ristretto.Cache[string, []Candidate]
}

// NewCandidateCache builds a CandidateCache with a fixed memory budget.
func NewCandidateCache() (*CandidateCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []Candidate]{
		NumCounters: 1e6,
		MaxCost:     1 << 25, // 32MiB
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &CandidateCache{cache: c}, nil
}

func cacheKey(label, name string) string {
	return label + "\x00" + name
}

// Get returns a cached candidate set, if present and unexpired.
func (c *CandidateCache) Get(label, name string) ([]Candidate, bool) {
	if c == nil || c.cache == nil {
		return nil, false
	}
	return c.cache.Get(cacheKey(label, name))
}

// Set stores a candidate set, costed by its length.
func (c *CandidateCache) Set(label, name string, candidates []Candidate) {
	if c == nil || c.cache == nil {
		return
	}
	cost := int64(len(candidates)) + 1
	c.cache.SetWithTTL(cacheKey(label, name), candidates, cost, candidateCacheTTL)
}

// Invalidate drops a cached entry, used after a write that changes the
// candidate set for (label, name) — e.g. a newly created vertex.
func (c *CandidateCache) Invalidate(label, name string) {
	if c == nil || c.cache == nil {
		return
	}
	c.cache.Del(cacheKey(label, name))
}

// Close releases cache resources.
func (c *CandidateCache) Close() {
	if c == nil || c.cache == nil {
		return
	}
	c.cache.Close()
}
