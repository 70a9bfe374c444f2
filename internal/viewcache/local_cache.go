package viewcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coocood/freecache"
)

var _ Cache = (*LocalCache)(nil)

// LocalCache is an in-process freecache-backed variant, used in development
// setups without redis. Namespace versions live outside freecache so that
// a bump can never be evicted away.
type LocalCache struct {
	cache      *freecache.Cache
	ttlSeconds int

	mu       sync.Mutex
	versions map[string]int64
}

func NewLocalCache(sizeBytes int, ttl time.Duration) *LocalCache {
	return &LocalCache{
		cache:      freecache.NewCache(sizeBytes),
		ttlSeconds: int(ttl.Seconds()),
		versions:   make(map[string]int64),
	}
}

func (c *LocalCache) version(namespace string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[namespace]
}

func (c *LocalCache) valueKey(namespace string, version int64, key string) []byte {
	return []byte(fmt.Sprintf("%s::v%d::%s", namespace, version, key))
}

func (c *LocalCache) Get(_ context.Context, namespace, key string) ([]byte, bool) {
	value, err := c.cache.Get(c.valueKey(namespace, c.version(namespace), key))
	if err != nil {
		return nil, false
	}
	return value, true
}

func (c *LocalCache) Set(_ context.Context, namespace, key string, value []byte) {
	// set errors (entry too large) just mean "not cached"
	_ = c.cache.Set(c.valueKey(namespace, c.version(namespace), key), value, c.ttlSeconds)
}

func (c *LocalCache) Bump(_ context.Context, namespaces ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, namespace := range namespaces {
		c.versions[namespace]++
	}
}
