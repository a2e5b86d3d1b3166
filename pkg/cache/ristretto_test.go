package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestCache(t *testing.T) *RistrettoCache {
	t.Helper()
	c, err := NewRistrettoCache(&RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewRistrettoCache() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c.(*RistrettoCache)
}

func TestRistrettoCache_SetGet(t *testing.T) {
	c := newTestCache(t)

	if !c.Set("base_price_usd", 3000.0, time.Minute) {
		t.Fatal("Set() rejected write")
	}
	c.Wait()

	v, ok := c.Get("base_price_usd")
	if !ok {
		t.Fatal("Get() missed a just-written key")
	}
	if price, ok := v.(float64); !ok || price != 3000.0 {
		t.Errorf("Get() = %v, want 3000.0", v)
	}
}

func TestRistrettoCache_MissOnUnknownKey(t *testing.T) {
	c := newTestCache(t)

	if _, ok := c.Get("never-written"); ok {
		t.Error("Get() hit on a key never written")
	}
}

func TestRistrettoCache_TTLExpiry(t *testing.T) {
	c := newTestCache(t)

	c.Set("ephemeral", "value", 20*time.Millisecond)
	c.Wait()

	if _, ok := c.Get("ephemeral"); !ok {
		t.Fatal("key missing before TTL")
	}

	time.Sleep(50 * time.Millisecond)

	if _, ok := c.Get("ephemeral"); ok {
		t.Error("key survived past its TTL")
	}
}

func TestRistrettoCache_Delete(t *testing.T) {
	c := newTestCache(t)

	c.Set("doomed", 1, time.Minute)
	c.Wait()
	c.Delete("doomed")

	if _, ok := c.Get("doomed"); ok {
		t.Error("key survived Delete()")
	}
}

func TestRistrettoCache_Overwrite(t *testing.T) {
	c := newTestCache(t)

	c.Set("price", 3000.0, time.Minute)
	c.Wait()
	c.Set("price", 3100.0, time.Minute)
	c.Wait()

	v, ok := c.Get("price")
	if !ok {
		t.Fatal("Get() missed after overwrite")
	}
	if v.(float64) != 3100.0 {
		t.Errorf("Get() = %v, want 3100.0", v)
	}
}

func TestRistrettoCache_ConcurrentAccess(t *testing.T) {
	c := newTestCache(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n%3)
			for j := 0; j < 100; j++ {
				c.Set(key, j, time.Minute)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
}
