package ourstory

import (
	"context"
	"sync"
	"time"
)

// listCache keeps the last list of one collection for the HTML pages, the
// feed and the sitemap. API routes always go to the store.
type listCache[T any] struct {
	mu      sync.RWMutex
	items   []T
	loaded  bool
	fetched time.Time
	ttl     time.Duration
	load    func(context.Context) ([]T, error)
}

func newListCache[T any](ttl time.Duration, load func(context.Context) ([]T, error)) *listCache[T] {
	return &listCache[T]{ttl: ttl, load: load}
}

func (c *listCache[T]) valid() bool {
	return c.loaded && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *listCache[T]) Invalidate() {
	c.mu.Lock()
	c.items = nil
	c.loaded = false
	c.mu.Unlock()
}

// List returns the cached list, reloading it when stale. It tries a read
// lock first and only takes the write lock to reload.
func (c *listCache[T]) List(ctx context.Context) ([]T, error) {
	c.mu.RLock()
	if c.valid() {
		items := c.items
		c.mu.RUnlock()
		return items, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.items, nil
	}
	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	c.items = items
	c.loaded = true
	c.fetched = time.Now()
	return items, nil
}
