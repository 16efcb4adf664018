package secrets

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	ClientID string
	TenantID string
}

func newTestCache(ttl time.Duration) (*Cache[sampleConfig], *time.Time) {
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	c := NewCache[sampleConfig](ttl)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCache_PutAndGet(t *testing.T) {
	cache, _ := newTestCache(time.Minute)
	key := "tenant-a|businesscentral"

	_, ok := cache.Get(key)
	require.False(t, ok, "expected miss on empty cache")

	cache.Put(key, sampleConfig{ClientID: "cid", TenantID: "tenant-a"})

	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, "cid", got.ClientID)
}

func TestCache_Expiration(t *testing.T) {
	cache, now := newTestCache(time.Minute)
	key := "tenant-a|businesscentral"
	cache.Put(key, sampleConfig{ClientID: "cid"})

	*now = now.Add(time.Minute)

	_, ok := cache.Get(key)
	assert.False(t, ok, "expected expired cache entry")
	assert.Equal(t, 0, cache.Len(), "expired entry removed on read")
}

func TestCache_Bust(t *testing.T) {
	cache, _ := newTestCache(time.Minute)
	key := "tenant-a|businesscentral"
	cache.Put(key, sampleConfig{ClientID: "cid"})

	cache.Bust(key)
	_, ok := cache.Get(key)
	assert.False(t, ok, "expected cache miss after bust")
}

func TestCache_CleanupExpired(t *testing.T) {
	cache, now := newTestCache(time.Minute)
	cache.Put("old", sampleConfig{})
	*now = now.Add(30 * time.Second)
	cache.Put("new", sampleConfig{})
	*now = now.Add(45 * time.Second)

	cache.cleanupExpired()

	assert.Equal(t, 1, cache.Len())
	_, ok := cache.Get("new")
	assert.True(t, ok)
}

func TestCache_StartCleanerStops(t *testing.T) {
	cache := NewCache[sampleConfig](time.Millisecond)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		cache.StartCleaner(time.Millisecond, stop)
		close(done)
	}()

	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop")
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache[sampleConfig](time.Minute)
	key := "tenant-a|businesscentral"

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			cache.Put(key, sampleConfig{ClientID: "cid"})
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			cache.Get(key)
		}
	}()

	wg.Wait()
}
