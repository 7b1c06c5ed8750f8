package repositories

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// boundedCache is a TTL cache with a hard entry cap. go-cache handles
// expiry; when the cap is reached the entry closest to expiring (the oldest
// touch) is evicted first.
type boundedCache struct {
	mu       sync.Mutex
	cache    *gocache.Cache
	capacity int
}

func newBoundedCache(capacity int, ttl time.Duration) *boundedCache {
	return &boundedCache{
		cache:    gocache.New(ttl, 10*time.Minute),
		capacity: capacity,
	}
}

func (b *boundedCache) get(key string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cache.Get(key)
}

func (b *boundedCache) set(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.cache.Get(key); !ok && b.cache.ItemCount() >= b.capacity {
		var oldestKey string
		var oldestExp int64
		for k, item := range b.cache.Items() {
			if oldestKey == "" || item.Expiration < oldestExp {
				oldestKey, oldestExp = k, item.Expiration
			}
		}
		if oldestKey != "" {
			b.cache.Delete(oldestKey)
		}
	}
	b.cache.SetDefault(key, value)
}

func (b *boundedCache) delete(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache.Delete(key)
}

func (b *boundedCache) flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache.Flush()
}
