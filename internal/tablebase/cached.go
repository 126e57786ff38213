package tablebase

import (
	"context"
	"sync"

	"github.com/chrisfishbob/Talia/internal/board"
)

// CachedProber keeps probe results in memory keyed by zobrist hash, so
// repeated lookups of the same endgame position hit the network once.
// Errors are never cached.
type CachedProber struct {
	inner   Prober
	mu      sync.RWMutex
	cache   map[uint64]ProbeResult
	maxSize int
	hits    uint64
	misses  uint64
}

// NewCachedProber wraps inner with a cache of at most maxSize entries.
func NewCachedProber(inner Prober, maxSize int) *CachedProber {
	if maxSize < 1 {
		maxSize = 1
	}
	return &CachedProber{
		inner:   inner,
		cache:   make(map[uint64]ProbeResult, maxSize),
		maxSize: maxSize,
	}
}

func (cp *CachedProber) Probe(ctx context.Context, pos *board.Position) (ProbeResult, error) {
	cp.mu.RLock()
	result, ok := cp.cache[pos.Hash]
	cp.mu.RUnlock()
	if ok {
		cp.mu.Lock()
		cp.hits++
		cp.mu.Unlock()
		return result, nil
	}

	result, err := cp.inner.Probe(ctx, pos)
	if err != nil {
		return ProbeResult{}, err
	}

	cp.mu.Lock()
	cp.misses++
	if len(cp.cache) >= cp.maxSize {
		// Crude eviction: drop half the map. Probe traffic is light
		// enough that recency tracking is not worth the bookkeeping.
		n := 0
		for k := range cp.cache {
			if n >= cp.maxSize/2 {
				break
			}
			delete(cp.cache, k)
			n++
		}
	}
	cp.cache[pos.Hash] = result
	cp.mu.Unlock()

	return result, nil
}

// HitRate returns the fraction of probes served from the cache.
func (cp *CachedProber) HitRate() float64 {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	total := cp.hits + cp.misses
	if total == 0 {
		return 0
	}
	return float64(cp.hits) / float64(total)
}

// Len returns the number of cached entries.
func (cp *CachedProber) Len() int {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return len(cp.cache)
}

// Clear empties the cache and resets counters.
func (cp *CachedProber) Clear() {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.cache = make(map[uint64]ProbeResult, cp.maxSize)
	cp.hits = 0
	cp.misses = 0
}
