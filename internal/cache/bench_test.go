package cache

import (
	"strconv"
	"testing"
)

func BenchmarkCacheGet(b *testing.B) {
	c := New[string, int](1000)
	for i := 0; i < 100; i++ {
		c.Set(strconv.Itoa(i), i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get("50")
	}
}

func BenchmarkCacheSet(b *testing.B) {
	c := New[string, int](1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Set(strconv.Itoa(i%100), i)
	}
}

func BenchmarkCacheLoadHit(b *testing.B) {
	c := New[int, []uint32](8)
	words := make([]uint32, 1024)
	_, _ = c.Load(16, func() ([]uint32, error) { return words, nil })

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Load(16, func() ([]uint32, error) { return words, nil })
	}
}

func BenchmarkCacheLoadParallel(b *testing.B) {
	c := New[int, int](8)
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = c.Load(i%4, func() (int, error) { return i, nil })
			i++
		}
	})
}
