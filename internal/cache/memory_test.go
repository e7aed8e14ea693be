// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

// newTestMemoryCache returns a cache whose clock is advanced by the test.
func newTestMemoryCache(maxSize int) (*MemoryCache, *time.Time) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute, MaxSize: maxSize})
	c.now = func() time.Time { return now }
	return c, &now
}

func TestMemoryCache_BasicOperations(t *testing.T) {
	cache, _ := newTestMemoryCache(0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	if err := cache.Set(ctx, "site:1", []byte("value1"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := cache.Get(ctx, "site:1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "value1" {
		t.Errorf("expected value1, got %s", string(val))
	}

	has, err := cache.Has(ctx, "site:1")
	if err != nil || !has {
		t.Errorf("Has = %v, %v; want true, nil", has, err)
	}

	if err := cache.Delete(ctx, "site:1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := cache.Get(ctx, "site:1"); err != ErrCacheMiss {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	cache, now := newTestMemoryCache(0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "default", []byte("v"), 0)
	_ = cache.Set(ctx, "short", []byte("v"), 10*time.Second)

	*now = now.Add(30 * time.Second)

	if _, err := cache.Get(ctx, "short"); err != ErrCacheMiss {
		t.Errorf("short TTL entry: got %v, want ErrCacheMiss", err)
	}
	if has, _ := cache.Has(ctx, "short"); has {
		t.Error("expired entry reported by Has")
	}
	if _, err := cache.Get(ctx, "default"); err != nil {
		t.Errorf("default TTL entry expired early: %v", err)
	}

	*now = now.Add(time.Minute)
	if _, err := cache.Get(ctx, "default"); err != ErrCacheMiss {
		t.Errorf("default TTL entry: got %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCache_EvictsClosestToExpiry(t *testing.T) {
	cache, _ := newTestMemoryCache(2)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "soon", []byte("a"), 10*time.Second)
	_ = cache.Set(ctx, "late", []byte("b"), time.Hour)
	_ = cache.Set(ctx, "new", []byte("c"), time.Hour)

	if _, err := cache.Get(ctx, "soon"); err != ErrCacheMiss {
		t.Errorf("expected soon to be evicted, got %v", err)
	}
	for _, k := range []string{"late", "new"} {
		if _, err := cache.Get(ctx, k); err != nil {
			t.Errorf("expected %s to remain: %v", k, err)
		}
	}

	// Overwriting an existing key never evicts.
	_ = cache.Set(ctx, "late", []byte("b2"), time.Hour)
	if cache.Stats().Items != 2 {
		t.Errorf("items = %d, want 2", cache.Stats().Items)
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	cache, _ := newTestMemoryCache(0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	for _, key := range []string{"key1", "key2", "key3"} {
		_ = cache.Set(ctx, key, []byte("v"), 0)
	}
	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	for _, key := range []string{"key1", "key2", "key3"} {
		if _, err := cache.Get(ctx, key); err != ErrCacheMiss {
			t.Errorf("expected %s to be cleared", key)
		}
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	cache, _ := newTestMemoryCache(0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "key1", []byte("value1"), 0)
	_ = cache.Set(ctx, "key2", []byte("value2"), 0)
	_, _ = cache.Get(ctx, "key1")
	_, _ = cache.Get(ctx, "key1")
	_, _ = cache.Get(ctx, "nonexistent")

	stats := cache.Stats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.Sets != 2 || stats.Items != 2 {
		t.Errorf("stats = %+v", stats)
	}
	expectedHitRate := float64(2) / float64(3) * 100
	if stats.HitRate < expectedHitRate-0.01 || stats.HitRate > expectedHitRate+0.01 {
		t.Errorf("expected hit rate ~%.2f, got %.2f", expectedHitRate, stats.HitRate)
	}

	cache.ResetStats()
	if s := cache.Stats(); s.Hits != 0 || s.Misses != 0 || s.Sets != 0 {
		t.Errorf("stats after reset = %+v", s)
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour, MaxSize: 10})
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = cache.Set(ctx, "key", []byte("value"), 0)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = cache.Get(ctx, "key")
			}
		}()
	}
	wg.Wait()

	if _, err := cache.Get(ctx, "key"); err != nil {
		t.Error("expected key to exist after concurrent access")
	}
}

func TestMemoryCache_ValueCopy(t *testing.T) {
	cache, _ := newTestMemoryCache(0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	original := []byte("original")
	_ = cache.Set(ctx, "key", original, 0)
	original[0] = 'X'

	val, err := cache.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "original" {
		t.Errorf("expected original, got %s (cache didn't copy on set)", string(val))
	}

	val[0] = 'Y'
	val2, _ := cache.Get(ctx, "key")
	if string(val2) != "original" {
		t.Errorf("expected original, got %s (cache didn't copy on get)", string(val2))
	}
}

func TestMemoryCache_Close(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      time.Hour,
		CleanupInterval: time.Second,
	})
	ctx := context.Background()
	_ = cache.Set(ctx, "key", []byte("value"), 0)

	if err := cache.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := cache.Get(ctx, "key"); err != ErrCacheClosed {
		t.Errorf("expected ErrCacheClosed after close, got %v", err)
	}
	if err := cache.Set(ctx, "key2", []byte("value"), 0); err != ErrCacheClosed {
		t.Errorf("expected ErrCacheClosed on Set after close, got %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Errorf("second Close returned %v", err)
	}
}
