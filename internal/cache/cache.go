// Package cache wraps the Redis-backed side-effect cache: idempotency
// records, rate-limit buckets, and the delayed ordered set. Every
// multi-step decision here is a server-side Lua script so concurrent
// instances never race on a check-then-set.
package cache

import "github.com/redis/go-redis/v9"

// NewClient returns a Redis client configured from the given connection
// parameters. A single client is shared by every cache-backed component in
// a process.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}
