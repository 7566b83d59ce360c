package storage

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDeduper remembers submission keys in Redis so every instance rejects
// a submission it has already processed.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper keeping keys for ttl.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func dedupeKey(visitorID, key string) string {
	return "dedupe:" + visitorID + ":" + key
}

// Add records the key if it does not already exist. It returns true when the
// key was newly added.
func (r *RedisDeduper) Add(ctx context.Context, visitorID, key string) (bool, error) {
	return r.client.SetNX(ctx, dedupeKey(visitorID, key), 1, r.ttl).Result()
}

// Remove forgets a key so a failed submission can be retried.
func (r *RedisDeduper) Remove(ctx context.Context, visitorID, key string) error {
	return r.client.Del(ctx, dedupeKey(visitorID, key)).Err()
}

// MemoryDeduper is the process-local counterpart of RedisDeduper.
type MemoryDeduper struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewMemoryDeduper creates a deduper keeping keys for ttl.
func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{ttl: ttl, now: time.Now, seen: make(map[string]time.Time)}
}

func (m *MemoryDeduper) Add(_ context.Context, visitorID, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, exp := range m.seen {
		if !now.Before(exp) {
			delete(m.seen, k)
		}
	}
	k := dedupeKey(visitorID, key)
	if _, ok := m.seen[k]; ok {
		return false, nil
	}
	m.seen[k] = now.Add(m.ttl)
	return true, nil
}

func (m *MemoryDeduper) Remove(_ context.Context, visitorID, key string) error {
	m.mu.Lock()
	delete(m.seen, dedupeKey(visitorID, key))
	m.mu.Unlock()
	return nil
}
