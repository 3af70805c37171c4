package media

import (
	"context"
	"sync"
	"time"
)

// CachingResolver remembers successful resolutions for a TTL. Fallbacks are
// never cached.
type CachingResolver struct {
	next    Resolver
	data    map[string]*cacheEntry
	ttl     time.Duration
	mu      sync.RWMutex
	cleanup *time.Ticker
	done    chan struct{}
	once    sync.Once
}

// cacheEntry represents a cache entry with expiration
type cacheEntry struct {
	image      *Image
	expiration time.Time
}

// NewCachingResolver wraps next with a TTL cache
func NewCachingResolver(next Resolver, ttl time.Duration) *CachingResolver {
	c := &CachingResolver{
		next:    next,
		data:    make(map[string]*cacheEntry),
		ttl:     ttl,
		cleanup: time.NewTicker(time.Minute),
		done:    make(chan struct{}),
	}

	go c.cleanupLoop()

	return c
}

// Resolve returns a cached image for ref or delegates to the wrapped resolver.
func (c *CachingResolver) Resolve(ctx context.Context, ref string) Resolution {
	if img, ok := c.get(ref); ok {
		return Resolved(ref, img)
	}

	res := c.next.Resolve(ctx, ref)
	if res.IsResolved() {
		c.set(ref, res.Image)
	}
	return res
}

func (c *CachingResolver) get(key string) (*Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[key]
	if !ok || time.Now().After(entry.expiration) {
		return nil, false
	}
	return entry.image, true
}

func (c *CachingResolver) set(key string, img *Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = &cacheEntry{
		image:      img,
		expiration: time.Now().Add(c.ttl),
	}
}

// Size returns the number of entries in the cache
func (c *CachingResolver) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.data)
}

// Close stops the cleanup goroutine
func (c *CachingResolver) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *CachingResolver) cleanupLoop() {
	defer c.cleanup.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-c.cleanup.C:
			c.removeExpired()
		}
	}
}

func (c *CachingResolver) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.data {
		if now.After(entry.expiration) {
			delete(c.data, key)
		}
	}
}
