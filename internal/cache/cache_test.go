package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c := New[string, int](0)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", 1, time.Minute)

	got, ok := c.Get(ctx, "a")
	if !ok || got != 1 {
		t.Fatalf("Get(a) = %d, %v; want 1, true", got, ok)
	}

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Fatal("Get(missing) reported a hit")
	}
}

func TestCache_ExpiryBehavesLikeMiss(t *testing.T) {
	c := New[string, string](0)
	defer c.Close()
	ctx := context.Background()

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set(ctx, "k", "v", 30*time.Second)

	if _, ok := c.Get(ctx, "k"); !ok {
		t.Fatal("entry missing before expiry")
	}

	// Advance past expiry: the entry must never be returned again.
	c.now = func() time.Time { return base.Add(31 * time.Second) }
	if v, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("expired entry returned: %q", v)
	}
}

func TestCache_SetReplacesEntry(t *testing.T) {
	c := New[string, int](0)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k", 1, time.Minute)
	c.Set(ctx, "k", 2, time.Minute)

	if got, _ := c.Get(ctx, "k"); got != 2 {
		t.Fatalf("Get(k) = %d after replace; want 2", got)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d; want 1", c.Len())
	}
}

func TestCache_ZeroTTLStoresNothing(t *testing.T) {
	c := New[string, int](0)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k", 1, 0)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("zero-ttl entry was stored")
	}
}

func TestCache_EvictExpiredBoundsMemory(t *testing.T) {
	c := New[string, int](0)
	defer c.Close()
	ctx := context.Background()

	base := time.Now()
	c.now = func() time.Time { return base }
	for _, k := range []string{"a", "b", "c"} {
		c.Set(ctx, k, 1, time.Second)
	}
	c.Set(ctx, "keep", 1, time.Hour)

	c.now = func() time.Time { return base.Add(2 * time.Second) }
	c.evictExpired()

	if c.Len() != 1 {
		t.Fatalf("Len() = %d after eviction; want 1", c.Len())
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[int, int](0)
	defer c.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set(ctx, j%8, n, time.Minute)
				c.Get(ctx, j%8)
			}
		}(i)
	}
	wg.Wait()
}

func TestKey_Normalization(t *testing.T) {
	tests := []struct {
		name    string
		network string
		parts   []string
		want    string
	}{
		{
			name:    "network_uppercased",
			network: "mainnet",
			parts:   []string{"pool-state"},
			want:    "MAINNET:pool-state",
		},
		{
			name:    "addresses_lowercased",
			network: "Mainnet",
			parts:   []string{"0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"},
			want:    "MAINNET:0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		},
		{
			name:    "case_variants_collide",
			network: "MAINNET",
			parts:   []string{"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"},
			want:    "MAINNET:0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.network, tt.parts...); got != tt.want {
				t.Fatalf("Key() = %q; want %q", got, tt.want)
			}
		})
	}
}
