package utils

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(t *testing.T) (*MemoryCache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewMemoryCache(0)
	cache.now = clock.Now
	t.Cleanup(cache.Close)
	return cache, clock
}

func TestMemoryCache_ExpiresItems(t *testing.T) {
	cache, clock := newTestCache(t)

	cache.Set("ana@example.com", true, time.Minute)
	assert.True(t, cache.Has("ana@example.com"))

	clock.Advance(61 * time.Second)
	assert.False(t, cache.Has("ana@example.com"))
	assert.Equal(t, 0, cache.Size())
}

func TestMemoryCache_SetIfAbsent(t *testing.T) {
	cache, clock := newTestCache(t)

	assert.True(t, cache.SetIfAbsent("k", 1, time.Minute))
	assert.False(t, cache.SetIfAbsent("k", 2, time.Minute))

	v, ok := cache.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	clock.Advance(2 * time.Minute)
	assert.True(t, cache.SetIfAbsent("k", 3, time.Minute))
}

func TestMemoryCache_CleanupSweepsExpired(t *testing.T) {
	cache, clock := newTestCache(t)

	cache.Set("old", 1, time.Second)
	cache.Set("new", 2, time.Hour)
	clock.Advance(time.Minute)

	cache.cleanup()

	assert.Equal(t, 1, cache.Size())
	assert.True(t, cache.Has("new"))
}

func TestMemoryCache_ConcurrentSetIfAbsent(t *testing.T) {
	cache, _ := newTestCache(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cache.SetIfAbsent("same", true, time.Minute) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}
