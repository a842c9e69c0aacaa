// Package redis is a SeenSet shared across processes through Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JakeFAU/jobswipe/internal/hash/sha256"
)

// Options configure the Redis connection and key layout.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// commands is the subset of the go-redis client the set uses.
type commands interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// SeenSet stores hashed keys with an optional TTL.
type SeenSet struct {
	client commands
	closer func() error
	pinger func(context.Context) error
	prefix string
	ttl    time.Duration
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, opts Options) (*SeenSet, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}
	s := newWithClient(client, opts)
	s.closer = client.Close
	s.pinger = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	return s, nil
}

func newWithClient(client commands, opts Options) *SeenSet {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "jobswipe:seen:"
	}
	return &SeenSet{client: client, prefix: prefix, ttl: opts.TTL}
}

// Seen reports whether key has been marked.
func (s *SeenSet) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// Mark records keys.
func (s *SeenSet) Mark(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if err := s.client.Set(ctx, s.key(k), 1, s.ttl).Err(); err != nil {
			return fmt.Errorf("redis set: %w", err)
		}
	}
	return nil
}

// Ping checks the connection. Sets built without a live client always
// report healthy.
func (s *SeenSet) Ping(ctx context.Context) error {
	if s.pinger == nil {
		return nil
	}
	if err := s.pinger(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *SeenSet) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

func (s *SeenSet) key(k string) string {
	return sha256.Key(s.prefix, k)
}
