package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubBackend struct {
	getFn    func(ctx context.Context, visitorID, key string) ([]byte, error)
	setFn    func(ctx context.Context, visitorID, key string, value []byte) error
	deleteFn func(ctx context.Context, visitorID, key string) error
}

func (s *stubBackend) Get(ctx context.Context, visitorID, key string) ([]byte, error) {
	if s.getFn == nil {
		return nil, errors.New("unexpected Get call")
	}
	return s.getFn(ctx, visitorID, key)
}

func (s *stubBackend) Set(ctx context.Context, visitorID, key string, value []byte) error {
	if s.setFn == nil {
		return errors.New("unexpected Set call")
	}
	return s.setFn(ctx, visitorID, key, value)
}

func (s *stubBackend) Delete(ctx context.Context, visitorID, key string) error {
	if s.deleteFn == nil {
		return errors.New("unexpected Delete call")
	}
	return s.deleteFn(ctx, visitorID, key)
}

func TestCacheGetMissThenHit(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	var calls int
	cache := NewCache(&stubBackend{
		getFn: func(ctx context.Context, visitorID, key string) ([]byte, error) {
			calls++
			if visitorID != "v1" || key != TasksKey {
				t.Fatalf("unexpected lookup %s/%s", visitorID, key)
			}
			return []byte(`[{"id":1}]`), nil
		},
	}, client, time.Minute)

	first, err := cache.Get(ctx, "v1", TasksKey)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 backend call, got %d", calls)
	}
	if ttl := mr.TTL(cacheKey("v1", TasksKey)); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}

	second, err := cache.Get(ctx, "v1", TasksKey)
	if err != nil {
		t.Fatalf("cached get: %v", err)
	}
	if string(second) != string(first) {
		t.Fatalf("cached value mismatch: %q vs %q", second, first)
	}
	if calls != 1 {
		t.Fatalf("expected cached read to skip backend, calls=%d", calls)
	}
}

func TestCacheSetWritesThrough(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	stored := []byte(`[]`)
	var reads int
	cache := NewCache(&stubBackend{
		getFn: func(context.Context, string, string) ([]byte, error) {
			reads++
			return stored, nil
		},
		setFn: func(_ context.Context, _, _ string, value []byte) error {
			stored = value
			return nil
		},
	}, client, time.Minute)

	if _, err := cache.Get(ctx, "v", TasksKey); err != nil {
		t.Fatalf("prime: %v", err)
	}
	if err := cache.Set(ctx, "v", TasksKey, []byte(`[{"id":2}]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	cached, err := mr.Get(cacheKey("v", TasksKey))
	if err != nil || cached != `[{"id":2}]` {
		t.Fatalf("expected written value in cache, got %q (%v)", cached, err)
	}
	got, err := cache.Get(ctx, "v", TasksKey)
	if err != nil {
		t.Fatalf("get after set: %v", err)
	}
	if string(got) != `[{"id":2}]` {
		t.Fatalf("expected fresh value, got %q", got)
	}
	if reads != 1 {
		t.Fatalf("expected read after write to be served from cache, reads=%d", reads)
	}
}

func TestCacheStaleFillDoesNotOverwriteWrite(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	var mu sync.Mutex
	stored := []byte(`["a"]`)
	loaded := make(chan struct{})
	release := make(chan struct{})
	var gated bool
	cache := NewCache(&stubBackend{
		getFn: func(context.Context, string, string) ([]byte, error) {
			mu.Lock()
			data := stored
			first := !gated
			gated = true
			mu.Unlock()
			if first {
				close(loaded)
				<-release
			}
			return data, nil
		},
		setFn: func(_ context.Context, _, _ string, value []byte) error {
			mu.Lock()
			stored = value
			mu.Unlock()
			return nil
		},
	}, client, time.Minute)

	done := make(chan error, 1)
	go func() {
		_, err := cache.Get(ctx, "v", TasksKey)
		done <- err
	}()
	<-loaded
	if err := cache.Set(ctx, "v", TasksKey, []byte(`["a","b"]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("slow get: %v", err)
	}

	cached, err := mr.Get(cacheKey("v", TasksKey))
	if err != nil || cached != `["a","b"]` {
		t.Fatalf("stale fill replaced the written value: %q (%v)", cached, err)
	}
	got, err := cache.Get(ctx, "v", TasksKey)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `["a","b"]` {
		t.Fatalf("expected latest write, got %q", got)
	}
}

func TestCacheSetWithoutTTLEvicts(t *testing.T) {
	mr, client := newTestRedis(t)
	if err := mr.Set(cacheKey("v", TasksKey), `[]`); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	cache := NewCache(&stubBackend{
		setFn: func(context.Context, string, string, []byte) error { return nil },
	}, client, 0)

	if err := cache.Set(context.Background(), "v", TasksKey, []byte(`[1]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if mr.Exists(cacheKey("v", TasksKey)) {
		t.Fatalf("expected eviction when caching is disabled")
	}
}

func TestCacheSetFailureKeepsCache(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	boom := errors.New("backend down")

	if err := mr.Set(cacheKey("v", TasksKey), `[]`); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	cache := NewCache(&stubBackend{
		setFn: func(context.Context, string, string, []byte) error { return boom },
	}, client, time.Minute)

	if err := cache.Set(ctx, "v", TasksKey, []byte(`[1]`)); !errors.Is(err, boom) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if !mr.Exists(cacheKey("v", TasksKey)) {
		t.Fatalf("failed write must not evict")
	}
}

func TestCacheNotFoundIsNotCached(t *testing.T) {
	mr, client := newTestRedis(t)
	cache := NewCache(&stubBackend{
		getFn: func(context.Context, string, string) ([]byte, error) { return nil, ErrNotFound },
	}, client, time.Minute)

	if _, err := cache.Get(context.Background(), "v", TasksKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if mr.Exists(cacheKey("v", TasksKey)) {
		t.Fatalf("missing values must not be cached")
	}
}

func TestCacheWithoutRedisPassesThrough(t *testing.T) {
	var calls int
	cache := NewCache(&stubBackend{
		getFn: func(context.Context, string, string) ([]byte, error) {
			calls++
			return []byte("x"), nil
		},
	}, nil, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := cache.Get(context.Background(), "v", "k"); err != nil {
			t.Fatalf("get: %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("expected every read to hit backend, got %d", calls)
	}
}
