package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// consumeScript implements a token bucket as a single atomic round trip:
// refill proportionally to elapsed time, then attempt to take one token.
var consumeScript = redis.NewScript(`
local bucket = redis.call('HMGET', KEYS[1], 'tokens', 'last_refill')
local capacity = tonumber(ARGV[1])
local refill_per_sec = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local tokens = tonumber(bucket[1])
local last_refill = tonumber(bucket[2])
if tokens == nil then
	tokens = capacity
	last_refill = now
end

local elapsed_ms = math.max(0, now - last_refill)
local refilled = math.floor(elapsed_ms / 1000 * refill_per_sec)
if refilled > 0 then
	tokens = math.min(capacity, tokens + refilled)
	last_refill = now
end

if tokens < 1 then
	redis.call('HSET', KEYS[1], 'tokens', tokens, 'last_refill', last_refill)
	redis.call('EXPIRE', KEYS[1], 3600)
	return 0
end

tokens = tokens - 1
redis.call('HSET', KEYS[1], 'tokens', tokens, 'last_refill', last_refill)
redis.call('EXPIRE', KEYS[1], 3600)
return 1
`)

// RateLimiter enforces a per-channel token bucket shared across every
// consumer instance for that channel — unlike an in-process limiter, the
// bucket state lives in the cache so horizontally-scaled consumers of the
// same channel draw from one shared budget.
type RateLimiter struct {
	rdb     *redis.Client
	tokens  map[string]int
	refill  map[string]int
}

func NewRateLimiter(rdb *redis.Client, tokens, refillPerSec map[string]int) *RateLimiter {
	return &RateLimiter{rdb: rdb, tokens: tokens, refill: refillPerSec}
}

func bucketKey(channel string) string {
	return fmt.Sprintf("ratelimit:%s", channel)
}

// Allow consumes one token from channel's bucket. It returns false when the
// bucket is exhausted — the caller must treat this as a recoverable
// failure and defer the message via the delayed topic.
func (r *RateLimiter) Allow(ctx context.Context, channel string, nowMS int64) (bool, error) {
	capacity := r.tokens[channel]
	if capacity == 0 {
		capacity = 100
	}
	refill := r.refill[channel]
	if refill == 0 {
		refill = capacity
	}
	res, err := consumeScript.Run(ctx, r.rdb, []string{bucketKey(channel)}, capacity, refill, nowMS).Result()
	if err != nil {
		return false, err
	}
	allowed, _ := res.(int64)
	return allowed == 1, nil
}
