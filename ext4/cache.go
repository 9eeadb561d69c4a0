package ext4

import (
	"fmt"
	"sync"
)

var (
	_ Cache[string, any] = &noopCache[string, any]{}
	_ Cache[string, any] = &syncMapCache[string, any]{}
)

// Cache is the memoization seam Filesystem plugs decoded records through.
// It is deliberately tiny: the core never evicts on its own, it only asks
// whether something is already known.
type Cache[K comparable, V any] interface {
	// Add stores value under key and reports whether it was accepted:
	// syncMapCache always accepts, noopCache never does.
	Add(key K, value V) bool

	// Get returns key's value from the cache.
	Get(key K) (value V, ok bool)
}

// noopCache never remembers anything; it is the default, matching the
// teacher's mockCache.
type noopCache[K comparable, V any] struct{}

func (c *noopCache[K, V]) Add(_ K, _ V) bool {
	return false
}

func (c *noopCache[K, V]) Get(_ K) (v V, ok bool) {
	return
}

// syncMapCache is a concurrency-safe cache built on sync.Map, for hosts
// that share a single Filesystem across reader goroutines and want inode
// lookups memoized without writing their own Cache implementation.
type syncMapCache[K comparable, V any] struct {
	m sync.Map
}

// NewSyncMapCache returns a Cache backed by sync.Map.
func NewSyncMapCache[K comparable, V any]() Cache[K, V] {
	return &syncMapCache[K, V]{}
}

func (c *syncMapCache[K, V]) Add(key K, value V) bool {
	c.m.Store(key, value)
	return true
}

func (c *syncMapCache[K, V]) Get(key K) (v V, ok bool) {
	raw, ok := c.m.Load(key)
	if !ok {
		return v, false
	}
	return raw.(V), true
}

func inodeCacheKey(n int64) string {
	return fmt.Sprintf("inode:%d", n)
}

func groupDescCacheKey(group uint32) string {
	return fmt.Sprintf("gd:%d", group)
}
