package cache

import (
	"context"
	"sync"
	"time"
)

// InMemoryCache is a process local Cache used when
// no redis endpoint is configured
type InMemoryCache struct {
	data  map[string]cacheItem
	mutex sync.RWMutex
}

var _ Cache = (*InMemoryCache)(nil)

type cacheItem struct {
	data       []byte
	expiration time.Time
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheItem),
	}
}

func (c *InMemoryCache) Set(ctx context.Context, key string, data []byte, expiration time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	item := cacheItem{data: data}

	// -1 means cache indefinitely
	if expiration != -1 {
		item.expiration = time.Now().Add(expiration)
	}

	c.data[key] = item

	return nil
}

func (c *InMemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, ok := c.data[key]
	if !ok {
		return nil, ErrNotFound
	}

	if !item.expiration.IsZero() && time.Now().After(item.expiration) {
		return nil, ErrNotFound
	}

	return item.data, nil
}

func (c *InMemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	return nil
}

func (c *InMemoryCache) Healthcheck(ctx context.Context) error {
	return nil
}
