// Package cache provides a generic LRU cache used for compiled kernels.
//
// Cache[K, V] is a thread-safe LRU cache with a soft limit and 25%
// eviction when the limit is exceeded:
//
//	c := cache.New[int, []uint32](8)
//	words, err := c.Load(side, func() ([]uint32, error) {
//	    return compile(side)
//	})
//
// Load does not cache failures.
//
// # Thread Safety
//
// Cache is safe for concurrent use and must not be copied after creation.
package cache
