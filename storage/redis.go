package storage

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores values under "ls:<visitor>:<key>" so every instance of the
// site sees the same visitor data.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis backend. A ttl of zero keeps values forever.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl < 0 {
		ttl = 0
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, visitorID, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, redisKey(visitorID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func (r *Redis) Set(ctx context.Context, visitorID, key string, value []byte) error {
	if err := r.client.Set(ctx, redisKey(visitorID, key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, visitorID, key string) error {
	if err := r.client.Del(ctx, redisKey(visitorID, key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func redisKey(visitorID, key string) string {
	return "ls:" + visitorID + ":" + key
}

// ParseRedisConnection accepts either a redis:// URL or the
// "host:port,password=...,ssl=true" form used by hosted caches.
func ParseRedisConnection(conn string) (*redis.Options, error) {
	conn = strings.TrimSpace(conn)
	if conn == "" {
		return nil, errors.New("empty redis connection string")
	}
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts, nil
	}
	parts := strings.Split(conn, ",")
	if parts[0] == "" || strings.Contains(parts[0], "=") {
		return nil, fmt.Errorf("invalid redis connection string %q", conn)
	}
	opts := &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(strings.TrimSpace(kv[1]), "true") {
				opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			}
		}
	}
	return opts, nil
}
