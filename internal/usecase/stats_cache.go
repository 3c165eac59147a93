package usecase

import (
	"sync"
	"time"

	"github.com/eslsoft/quizstats/internal/entity"
)

// DefaultStatsCacheTTL is how long computed statistics are served without recomputation.
const DefaultStatsCacheTTL = 2 * time.Minute

// StatsCache is a single-slot, time-boxed cache of the last computed statistics.
// The slot remembers which user it was computed for; other users miss.
type StatsCache struct {
	ttl   time.Duration
	clock func() time.Time

	mu         sync.Mutex
	userID     string
	stats      *entity.RealUserStats
	computedAt time.Time
}

// NewStatsCache creates an empty cache. A non-positive ttl falls back to DefaultStatsCacheTTL.
func NewStatsCache(ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = DefaultStatsCacheTTL
	}
	return &StatsCache{ttl: ttl, clock: time.Now}
}

// Get returns the cached stats for userID while they are younger than the TTL.
func (c *StatsCache) Get(userID string) (*entity.RealUserStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stats == nil || c.userID != userID {
		return nil, false
	}
	if c.clock().Sub(c.computedAt) >= c.ttl {
		return nil, false
	}
	return c.stats, true
}

// Put overwrites the slot.
func (c *StatsCache) Put(userID string, stats *entity.RealUserStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.stats = stats
	c.computedAt = c.clock()
}

// Invalidate clears the slot unconditionally and returns the user it held.
func (c *StatsCache) Invalidate() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	userID := c.userID
	c.userID, c.stats, c.computedAt = "", nil, time.Time{}
	return userID
}
