package cache

import (
	"context"
	"sync"
	"time"

	"github.com/fulfillcrm/backend/internal/application/txn"
	"github.com/fulfillcrm/backend/internal/domain/shared"
)

// InMemoryReplayCache is a process-local ReplayCache for single-instance
// deployments. A background loop drops expired entries.
type InMemoryReplayCache struct {
	mu        sync.RWMutex
	entries   map[string]shared.IdempotencyRecord
	clock     func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryReplayCache creates the cache and starts its cleanup loop
func NewInMemoryReplayCache(cleanupInterval time.Duration) *InMemoryReplayCache {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	c := &InMemoryReplayCache{
		entries:  make(map[string]shared.IdempotencyRecord),
		clock:    time.Now,
		stopChan: make(chan struct{}),
	}
	c.wg.Add(1)
	go c.cleanupLoop(cleanupInterval)
	return c
}

// Get returns a copy of the cached record, or nil on a miss
func (c *InMemoryReplayCache) Get(_ context.Context, key string) (*shared.IdempotencyRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.entries[key]
	if !ok || rec.IsExpired(c.clock()) {
		return nil, nil
	}
	return &rec, nil
}

// Set stores a copy of the record
func (c *InMemoryReplayCache) Set(_ context.Context, rec *shared.IdempotencyRecord) error {
	if rec.IsExpired(c.clock()) {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[rec.Key] = *rec
	return nil
}

// Len returns the number of entries, expired ones included until the next sweep
func (c *InMemoryReplayCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup loop
func (c *InMemoryReplayCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
	})
	c.wg.Wait()
	return nil
}

func (c *InMemoryReplayCache) cleanupLoop(interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopChan:
			return
		}
	}
}

func (c *InMemoryReplayCache) sweep() {
	now := c.clock()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, rec := range c.entries {
		if rec.IsExpired(now) {
			delete(c.entries, key)
		}
	}
}

var _ txn.ReplayCache = (*InMemoryReplayCache)(nil)
