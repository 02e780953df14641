package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisScanCount = 100

// Redis is a Store backed by Redis.
// Entries are serialized with the configured Marshaler (default: JSON) and
// kept for the retention ReadThrough passes to Save.
type Redis[V any] struct {
	client    redis.UniversalClient
	marshaler Marshaler[V]
	prefix    string
}

// RedisOption configures the Redis store.
type RedisOption func(*redisOptions)

type redisOptions struct {
	prefix string
}

// WithPrefix sets a key prefix for all store operations.
// Keys are stored as "{prefix}:{key}" so several caches can share one Redis
// database without clearing each other.
func WithPrefix(prefix string) RedisOption {
	return func(o *redisOptions) {
		o.prefix = prefix
	}
}

// NewRedis creates a Redis-backed store.
// The client should be obtained from pkg/redis.Open.
//
// An optional Marshaler can be provided to customize serialization.
// If nil, JSON serialization is used.
//
// Example:
//
//	client, _ := redis.Open(ctx, redis.Config{URL: os.Getenv("REDIS_URL")})
//	store := cache.NewRedis[Property](client, nil, cache.WithPrefix("property"))
func NewRedis[V any](client redis.UniversalClient, m Marshaler[V], opts ...RedisOption) *Redis[V] {
	o := &redisOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if m == nil {
		m = jsonMarshaler[V]{}
	}

	return &Redis[V]{
		client:    client,
		marshaler: m,
		prefix:    o.prefix,
	}
}

// Load fetches and decodes the entry for key.
func (r *Redis[V]) Load(ctx context.Context, key string) (Entry[V], bool, error) {
	data, err := r.client.Get(ctx, r.prefixedKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry[V]{}, false, nil
		}
		return Entry[V]{}, false, err
	}

	e, err := r.marshaler.Unmarshal(data)
	if err != nil {
		return Entry[V]{}, false, err
	}

	return e, true, nil
}

// Save encodes e and stores it with retain as the Redis key TTL.
// A non-positive retain keeps the key until it is deleted.
func (r *Redis[V]) Save(ctx context.Context, key string, e Entry[V], retain time.Duration) error {
	data, err := r.marshaler.Marshal(e)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, r.prefixedKey(key), data, max(retain, 0)).Err()
}

// Delete removes key from Redis.
func (r *Redis[V]) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefixedKey(key)).Err()
}

// DeleteFunc scans the store's keyspace and removes every entry fn selects.
// Entries that cannot be decoded are passed to fn as zero entries.
func (r *Redis[V]) DeleteFunc(ctx context.Context, fn func(key string, e Entry[V]) bool) (int, error) {
	removed := 0

	err := r.scan(ctx, func(keys []string, entries []Entry[V]) (bool, error) {
		var doomed []string
		for i, k := range keys {
			if fn(r.unprefixedKey(k), entries[i]) {
				doomed = append(doomed, k)
			}
		}
		if len(doomed) == 0 {
			return true, nil
		}
		n, err := r.client.Del(ctx, doomed...).Result()
		if err != nil {
			return false, err
		}
		removed += int(n)
		return true, nil
	})

	return removed, err
}

// Range calls fn for each stored entry until fn returns false.
func (r *Redis[V]) Range(ctx context.Context, fn func(key string, e Entry[V]) bool) error {
	return r.scan(ctx, func(keys []string, entries []Entry[V]) (bool, error) {
		for i, k := range keys {
			if !fn(r.unprefixedKey(k), entries[i]) {
				return false, nil
			}
		}
		return true, nil
	})
}

// Clear removes all entries.
// If a prefix is configured, only keys matching the prefix are removed using SCAN.
// If no prefix is configured, FLUSHDB is used.
func (r *Redis[V]) Clear(ctx context.Context) error {
	if r.prefix == "" {
		return r.client.FlushDB(ctx).Err()
	}

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.pattern(), redisScanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Close is a no-op for Redis. The client lifecycle is managed separately
// by the caller (via pkg/redis.Shutdown).
func (r *Redis[V]) Close() error {
	return nil
}

// scan walks the keyspace in SCAN batches, loading each batch with MGET.
// Keys that vanished between SCAN and MGET are skipped.
func (r *Redis[V]) scan(ctx context.Context, visit func(keys []string, entries []Entry[V]) (bool, error)) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.pattern(), redisScanCount).Result()
		if err != nil {
			return err
		}

		if len(keys) > 0 {
			vals, err := r.client.MGet(ctx, keys...).Result()
			if err != nil {
				return err
			}

			present := make([]string, 0, len(keys))
			entries := make([]Entry[V], 0, len(keys))
			for i, v := range vals {
				s, ok := v.(string)
				if !ok {
					continue
				}
				e, _ := r.marshaler.Unmarshal([]byte(s))
				present = append(present, keys[i])
				entries = append(entries, e)
			}

			cont, err := visit(present, entries)
			if err != nil || !cont {
				return err
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (r *Redis[V]) pattern() string {
	if r.prefix == "" {
		return "*"
	}
	return r.prefix + ":*"
}

func (r *Redis[V]) prefixedKey(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

func (r *Redis[V]) unprefixedKey(key string) string {
	if r.prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, r.prefix+":")
}

var _ Store[any] = (*Redis[any])(nil)
