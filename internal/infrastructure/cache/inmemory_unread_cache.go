package cache

import (
	"context"
	"sync"
	"time"

	"github.com/bapx/backend/internal/domain/notification"
	"github.com/google/uuid"
)

// cacheEntry wraps a cached value with expiration time
type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func (e cacheEntry[T]) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// InMemoryUnreadCountCache implements notification.UnreadCountCache in process.
// Suitable for single-instance deployments and tests; other instances never
// see its invalidations.
type InMemoryUnreadCountCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]cacheEntry[int64]
	gens    map[uuid.UUID]int64
	now     func() time.Time
}

// NewInMemoryUnreadCountCache creates an empty cache
func NewInMemoryUnreadCountCache() *InMemoryUnreadCountCache {
	return &InMemoryUnreadCountCache{
		entries: make(map[uuid.UUID]cacheEntry[int64]),
		gens:    make(map[uuid.UUID]int64),
		now:     time.Now,
	}
}

// Get returns the cached count; expired entries count as a miss
func (c *InMemoryUnreadCountCache) Get(_ context.Context, userID uuid.UUID) (int64, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	gen := c.gens[userID]
	e, ok := c.entries[userID]
	if !ok || e.isExpired(c.now()) {
		return 0, gen, false, nil
	}
	return e.value, gen, true, nil
}

// Set stores a count taken at generation gen
func (c *InMemoryUnreadCountCache) Set(_ context.Context, userID uuid.UUID, count, gen int64, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[userID] != gen {
		return nil
	}
	c.entries[userID] = cacheEntry[int64]{value: count, expiresAt: c.now().Add(ttl)}
	return nil
}

// Invalidate advances the generations and drops the counts of the given users
func (c *InMemoryUnreadCountCache) Invalidate(_ context.Context, userIDs ...uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		c.gens[id]++
		delete(c.entries, id)
	}
	return nil
}

// Len returns the number of entries, expired ones included
func (c *InMemoryUnreadCountCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

var _ notification.UnreadCountCache = (*InMemoryUnreadCountCache)(nil)
