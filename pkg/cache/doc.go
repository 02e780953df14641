// Package cache provides a generic read-through cache with TTL expiry,
// stale-on-error fallback, version tagging and predicate-based invalidation,
// running on a pluggable Store (in-memory or Redis).
//
// # Read-Through Cache
//
// [ReadThrough] memoizes the result of a caller-supplied fetch function under a
// string key:
//
//	c := cache.New(cache.NewMemory[[]Property](), cache.WithName("listings"))
//	defer c.Close()
//
//	props, err := c.Get(ctx, "properties-{}", fetchListings, cache.Options{
//	    TTL: 5 * time.Minute,
//	})
//
// [Options] fields and their defaults:
//
//   - TTL: how long an entry is served on the primary path (5 minutes)
//   - MaxAge: primary-path age bound; stale fallback accepts up to 2×MaxAge (24 hours)
//   - ForceRefresh: skip the cache read (false)
//   - Version: entries with another version are treated as absent ([DefaultVersion])
//
// When the fetch function fails, Get returns the last stored value for the key
// if its version matches and it is no older than 2×MaxAge. Otherwise the fetch
// error is returned unchanged. Get never retries; retry policy belongs to the
// fetch function.
//
// # Concurrency
//
// ReadThrough is safe for concurrent use. By default two concurrent misses for
// the same key both call their fetch functions and the last write wins.
// [WithSingleflight] coalesces them into a single in-flight fetch whose result
// every waiter receives.
//
// A janitor goroutine calls ClearExpired every 5 minutes
// ([WithCleanupInterval] changes or disables it). Close stops it.
//
// # Invalidation
//
//   - Clear(ctx, key): one key
//   - ClearAll(ctx): everything
//   - ClearExpired(ctx): entries past their TTL
//   - ClearPattern(ctx, `^properties-`): regular expression over keys
//   - ClearMatching(ctx, cache.Namespace("properties")): structured predicate
//
// Build keys with [Key] so a whole namespace can be dropped with [Namespace]
// instead of a hand-written regular expression.
//
// # Stores
//
// [NewMemory] keeps entries in process with optional LRU capping.
// [NewRedis] keeps JSON-encoded entries in Redis under a key prefix, with a
// Redis TTL long enough for the stale fallback:
//
//	client, _ := redis.Open(ctx, os.Getenv("REDIS_URL"))
//	store := cache.NewRedis[Property](client, nil, cache.WithPrefix("property"))
//
// # Registry
//
// [Registry] groups caches of different value types by name for admin tooling:
// stats snapshots and fan-out invalidation.
//
// # Error Handling
//
// The package defines sentinel errors:
//
//   - [ErrEmptyKey]: empty key passed to Get, Refresh or Set
//   - [ErrClosed]: operation on a closed store
//   - [ErrInvalidPattern]: ClearPattern got a malformed regular expression
//   - [ErrUnknownCache]: Registry lookup by an unregistered name
//   - [ErrMarshal] / [ErrUnmarshal]: entry serialization failed
//
// Store faults never fail Get: a failed load counts as a miss and a failed
// save is logged while the fetched value is still returned.
package cache
