// Package cache is a bounded TTL cache for read-mostly aggregate views.
// Entries are tagged with the tables they were computed from so that a write
// can drop every dependent entry at once.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	jsoniter "github.com/json-iterator/go"
)

const (
	TagBooks = "books"
	TagUsers = "users"
	TagLoans = "loans"
)

type entry struct {
	value any
	tags  []string
}

type Cache struct {
	lru *expirable.LRU[string, entry]

	// writeMu orders stores against invalidations and guards gen. mu guards
	// tags and is also taken by onEvict, so it is never held across lru calls.
	writeMu sync.Mutex
	gen     uint64

	mu   sync.Mutex
	tags map[string]map[string]struct{}

	beforeStore func()
}

func New(size int, ttl time.Duration) *Cache {
	c := &Cache{tags: map[string]map[string]struct{}{}}
	c.lru = expirable.NewLRU[string, entry](size, c.onEvict, ttl)
	return c
}

// onEvict runs inside the LRU; it must not call back into c.lru.
func (c *Cache) onEvict(key string, e entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tag := range e.tags {
		if keys, ok := c.tags[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.tags, tag)
			}
		}
	}
}

// Key fingerprints an operation and its arguments.
func Key(operation string, args ...any) string {
	data, err := jsoniter.ConfigFastest.Marshal(args)
	if err != nil {
		data = []byte(fmt.Sprint(args...))
	}
	return fmt.Sprintf("%s:%016x", operation, xxhash.Sum64(data))
}

func (c *Cache) Get(key string) (any, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Set(key string, value any, tags ...string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.store(key, value, tags)
}

// setIfGeneration stores value only if no invalidation ran since gen was read.
func (c *Cache) setIfGeneration(key string, value any, gen uint64, tags []string) bool {
	if c.beforeStore != nil {
		c.beforeStore()
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.gen != gen {
		return false
	}
	c.store(key, value, tags)
	return true
}

// store requires writeMu.
func (c *Cache) store(key string, value any, tags []string) {
	c.lru.Add(key, entry{value: value, tags: tags})
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tag := range tags {
		keys, ok := c.tags[tag]
		if !ok {
			keys = map[string]struct{}{}
			c.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
}

func (c *Cache) generation() uint64 {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.gen
}

// Invalidate drops every entry carrying any of tags.
func (c *Cache) Invalidate(tags ...string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.gen++

	c.mu.Lock()
	var keys []string
	for _, tag := range tags {
		for key := range c.tags[tag] {
			keys = append(keys, key)
		}
		delete(c.tags, tag)
	}
	c.mu.Unlock()

	for _, key := range keys {
		c.lru.Remove(key)
	}
}

func (c *Cache) Len() int {
	return c.lru.Len()
}

// GetOrLoad returns the cached value for key or computes and stores it. A
// value loaded while an invalidation ran is returned but not stored.
func GetOrLoad[T any](ctx context.Context, c *Cache, key string, tags []string, load func(ctx context.Context) (T, error)) (T, bool, error) {
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, true, nil
		}
	}
	gen := c.generation()
	v, err := load(ctx)
	if err != nil {
		return v, false, err
	}
	c.setIfGeneration(key, v, gen, tags)
	return v, false, nil
}
