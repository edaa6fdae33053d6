package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AcquireOutcome discriminates the result of the acquire-processing-lock
// script.
type AcquireOutcome string

const (
	AcquireFirstAttempt AcquireOutcome = "first_attempt"
	AcquireRetry        AcquireOutcome = "retry"
	AcquireAlreadyActive AcquireOutcome = "already_active"
	AcquireAlreadyDone   AcquireOutcome = "already_done"
)

// acquireScript inspects any existing idempotency record and, in the same
// round trip, decides and applies the outcome. No check-then-set: the
// decision and the write happen inside one Lua invocation.
var acquireScript = redis.NewScript(`
local existing = redis.call('GET', KEYS[1])
if not existing then
	redis.call('SET', KEYS[1], 'processing', 'EX', ARGV[1])
	return 'first_attempt'
elseif existing == 'processing' then
	return 'already_active'
elseif existing == 'delivered' then
	return 'already_done'
elseif existing == 'failed' then
	redis.call('SET', KEYS[1], 'processing', 'EX', ARGV[1])
	return 'retry'
else
	return 'already_active'
end
`)

// Idempotency mediates the cache's idempotency records, keyed by
// notification identifier.
type Idempotency struct {
	rdb            *redis.Client
	processingTTL  time.Duration
	terminalTTL    time.Duration
}

func NewIdempotency(rdb *redis.Client, processingTTL, terminalTTL time.Duration) *Idempotency {
	return &Idempotency{rdb: rdb, processingTTL: processingTTL, terminalTTL: terminalTTL}
}

func idemKey(notificationID string) string {
	return fmt.Sprintf("idem:%s", notificationID)
}

// AcquireProcessing attempts to take the per-notification processing lock.
func (i *Idempotency) AcquireProcessing(ctx context.Context, notificationID string) (AcquireOutcome, error) {
	res, err := acquireScript.Run(ctx, i.rdb, []string{idemKey(notificationID)}, int(i.processingTTL.Seconds())).Result()
	if err != nil {
		return "", err
	}
	s, _ := res.(string)
	return AcquireOutcome(s), nil
}

// MarkDelivered records the long-TTL terminal delivered state.
func (i *Idempotency) MarkDelivered(ctx context.Context, notificationID string) error {
	return i.rdb.Set(ctx, idemKey(notificationID), "delivered", i.terminalTTL).Err()
}

// MarkFailed records the long-TTL terminal failed state (or the
// between-retries failed state that still permits a later retry).
func (i *Idempotency) MarkFailed(ctx context.Context, notificationID string) error {
	return i.rdb.Set(ctx, idemKey(notificationID), "failed", i.terminalTTL).Err()
}

// Status reads the current idempotency record's status, used by the
// recovery cron to decide how to reconcile a stuck notification. Returns
// ("", nil) when no record exists.
func (i *Idempotency) Status(ctx context.Context, notificationID string) (string, error) {
	v, err := i.rdb.Get(ctx, idemKey(notificationID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}
