package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestCache_GetSet(t *testing.T) {
	c := New[string, int](0)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get on empty cache returned ok")
	}

	c.Set("a", 1)
	c.Set("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}

	if !c.Delete("a") {
		t.Error("Delete(a) = false, want true")
	}
	if c.Delete("a") {
		t.Error("second Delete(a) = true, want false")
	}
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int, int](4)
	for i := range 4 {
		c.Set(i, i)
	}
	// Touch 0 so it is the most recently used.
	c.Get(0)

	c.Set(4, 4) // over the limit: evicts down to 3 entries

	if _, ok := c.Get(0); !ok {
		t.Error("recently used key 0 was evicted")
	}
	if _, ok := c.Get(1); ok {
		t.Error("oldest key 1 survived eviction")
	}
	if got := c.Stats().Evictions; got == 0 {
		t.Error("Stats().Evictions = 0, want > 0")
	}
}

func TestCache_LoadCachesSuccessOnly(t *testing.T) {
	c := New[int, string](0)
	boom := errors.New("boom")

	calls := 0
	_, err := c.Load(1, func() (string, error) {
		calls++
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Load error = %v, want %v", err, boom)
	}

	v, err := c.Load(1, func() (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Fatalf("Load = %q, %v; want ok, nil", v, err)
	}

	v, _ = c.Load(1, func() (string, error) {
		calls++
		return "again", nil
	})
	if v != "ok" {
		t.Errorf("cached Load = %q, want ok", v)
	}
	if calls != 2 {
		t.Errorf("load called %d times, want 2", calls)
	}
}

func TestCache_LoadConcurrent(t *testing.T) {
	c := New[int, int](0)
	var calls atomic.Int32

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Load(7, func() (int, error) {
				calls.Add(1)
				return 49, nil
			})
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("load ran %d times, want 1", calls.Load())
	}
}
