package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const delayedSetKey = "delayed:set"

// claimScript selects up to ARGV[2] members due at or before ARGV[1] that
// are not already claimed, and stamps a short-TTL claim lock for each —
// without removing them from the set. A member disappears from the set
// only once Confirm runs, after its publish has succeeded.
var claimScript = redis.NewScript(`
local candidates = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
local claimed = {}
for _, member in ipairs(candidates) do
	local claimKey = 'delayed:claim:' .. redis.sha1hex(member)
	local ok = redis.call('SET', claimKey, '1', 'NX', 'EX', ARGV[3])
	if ok then
		table.insert(claimed, member)
	end
end
return claimed
`)

// confirmScript removes each given member from the set and releases its
// claim lock. Only called after the member's target-topic publish has
// already succeeded.
var confirmScript = redis.NewScript(`
for i = 1, #ARGV do
	local member = ARGV[i]
	redis.call('ZREM', KEYS[1], member)
	redis.call('DEL', 'delayed:claim:' .. redis.sha1hex(member))
end
return #ARGV
`)

// DelayedSet is the cache-only ordered set of due-events, keyed by
// serialized event with score = absolute due instant in milliseconds.
type DelayedSet struct {
	rdb *redis.Client
}

func NewDelayedSet(rdb *redis.Client) *DelayedSet {
	return &DelayedSet{rdb: rdb}
}

// Stage inserts or overwrites member with the given due score. Called by
// the delayed consumer after receiving a delayed-topic message.
func (d *DelayedSet) Stage(ctx context.Context, member string, dueAtMS int64) error {
	return d.rdb.ZAdd(ctx, delayedSetKey, redis.Z{Score: float64(dueAtMS), Member: member}).Err()
}

// Claim reserves up to limit members due at or before nowMS.
func (d *DelayedSet) Claim(ctx context.Context, nowMS int64, limit int64, claimTTLSeconds int) ([]string, error) {
	res, err := claimScript.Run(ctx, d.rdb, []string{delayedSetKey}, nowMS, limit, claimTTLSeconds).Result()
	if err != nil {
		return nil, err
	}
	list, _ := res.([]interface{})
	members := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			members = append(members, s)
		}
	}
	return members, nil
}

// Confirm removes the given members from the set and releases their claim
// locks. Call only after each member's publish succeeded.
func (d *DelayedSet) Confirm(ctx context.Context, members []string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return confirmScript.Run(ctx, d.rdb, []string{delayedSetKey}, args...).Err()
}

// ReleaseClaim frees a single member's claim lock without removing it from
// the set — used when a claimed member's publish fails, allowing immediate
// re-claim by the next poll.
func (d *DelayedSet) ReleaseClaim(ctx context.Context, member string) error {
	return d.rdb.Del(ctx, "delayed:claim:"+sha1Hex(member)).Err()
}

// Remove drops member from the set outright — used to drop a dead-lettered
// event once its terminal failure status has been published.
func (d *DelayedSet) Remove(ctx context.Context, member string) error {
	return d.rdb.ZRem(ctx, delayedSetKey, member).Err()
}
