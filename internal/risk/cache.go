package risk

import (
	"sync"
	"time"

	"github.com/ducminhle1904/options-risk-engine/pkg/types"
)

// snapshotCache holds the latest computed metrics per portfolio for a
// short TTL so bursty callers do not trigger redundant recomputation.
type snapshotCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	metrics types.RiskMetrics
	expires time.Time
}

func newSnapshotCache(ttl time.Duration) *snapshotCache {
	return &snapshotCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *snapshotCache) get(portfolioID string) (types.RiskMetrics, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[portfolioID]
	if !ok || time.Now().After(entry.expires) {
		return types.RiskMetrics{}, false
	}
	return entry.metrics, true
}

func (c *snapshotCache) put(portfolioID string, metrics types.RiskMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[portfolioID] = cacheEntry{
		metrics: metrics,
		expires: time.Now().Add(c.ttl),
	}
}

func (c *snapshotCache) invalidate(portfolioID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, portfolioID)
}
