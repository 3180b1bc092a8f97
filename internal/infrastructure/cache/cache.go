// Package cache memoizes backend queries by key and lets stream events
// invalidate them.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/janhq/jan-actions/internal/infrastructure/metrics"
)

// Loader produces the value for a missing key.
type Loader func(ctx context.Context) (any, error)

// Cache is a bounded query cache. Concurrent loads of one key share a single
// backend call.
type Cache struct {
	entries *lru.Cache
	group   singleflight.Group
	log     zerolog.Logger

	mu        sync.Mutex
	epoch     uint64
	listeners []func(key string)
}

// New creates a cache holding up to size entries.
func New(size int, log zerolog.Logger) (*Cache, error) {
	entries, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create query cache: %w", err)
	}
	return &Cache{
		entries: entries,
		log:     log.With().Str("component", "cache").Logger(),
	}, nil
}

// Fetch returns the cached value for key or loads it. A value loaded while any
// invalidation happened is returned to the caller but not stored.
func (c *Cache) Fetch(ctx context.Context, key string, load func(ctx context.Context) (any, error)) (any, error) {
	if v, ok := c.entries.Get(key); ok {
		metrics.RecordCacheLookup(true)
		return v, nil
	}
	metrics.RecordCacheLookup(false)

	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	ch := c.group.DoChan(key, func() (any, error) {
		// Shared loads must not die with the first caller's context.
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.epoch == epoch {
			c.entries.Add(key, v)
		}
		c.mu.Unlock()
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Key joins a query name and its parameters, e.g. Key("actions-list", "2").
func Key(name string, params ...string) string {
	return strings.Join(append([]string{name}, params...), ":")
}

// Invalidate drops key and every key parameterized under it, then notifies
// listeners with key.
func (c *Cache) Invalidate(key string) {
	c.drop(func(k string) bool { return k == key || strings.HasPrefix(k, key+":") })
	c.group.Forget(key)
	c.notify(key)
}

func (c *Cache) drop(match func(string) bool) {
	c.mu.Lock()
	c.epoch++
	var dropped []string
	for _, k := range c.entries.Keys() {
		if key, ok := k.(string); ok && match(key) {
			c.entries.Remove(key)
			dropped = append(dropped, key)
		}
	}
	c.mu.Unlock()

	for _, key := range dropped {
		c.group.Forget(key)
	}
	c.log.Debug().Strs("keys", dropped).Msg("invalidated")
}

func (c *Cache) notify(key string) {
	c.mu.Lock()
	listeners := append([]func(string){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(key)
	}
}

// OnInvalidate registers fn to run after every invalidation.
func (c *Cache) OnInvalidate(fn func(key string)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// FetchAs is Fetch with a typed loader.
func FetchAs[T any](ctx context.Context, c *Cache, key string, load func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache key %q holds %T", key, v)
	}
	return typed, nil
}
