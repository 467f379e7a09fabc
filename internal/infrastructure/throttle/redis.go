package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const throttleKeyPrefix = "thr"

// incrScript increments the window counter and starts its TTL on first use,
// in a single round trip so the counter can never be left without an expiry.
var incrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if tonumber(current) == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisThrottle is a fixed-window counter shared across instances. A refused
// subject with a Block policy gets a separate blocked key whose TTL lengthens
// the refusal past the normal window boundary.
type RedisThrottle struct {
	client *redis.Client
}

func NewRedisThrottle(client *redis.Client) *RedisThrottle {
	return &RedisThrottle{client: client}
}

func (t *RedisThrottle) key(bucket, subject string) string {
	return throttleKeyPrefix + ":" + bucket + ":" + subject
}

func (t *RedisThrottle) Check(ctx context.Context, bucket, subject string, p Policy) (Result, error) {
	key := t.key(bucket, subject)
	blockedKey := "blocked:" + key

	ttl, err := t.client.TTL(ctx, blockedKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("throttle blocked lookup: %w", err)
	}
	if ttl > 0 {
		return Result{Allowed: false, RetryAfter: ttl}, nil
	}

	count, err := incrScript.Run(ctx, t.client, []string{key}, int(p.Window.Seconds())).Int64()
	if err != nil {
		return Result{}, fmt.Errorf("throttle increment: %w", err)
	}

	if count > int64(p.Limit) {
		retryAfter := t.windowRemaining(ctx, key, p.Window)
		if p.Block > 0 {
			if err := t.client.Set(ctx, blockedKey, "1", p.Block).Err(); err != nil {
				return Result{}, fmt.Errorf("throttle block: %w", err)
			}
			retryAfter = p.Block
		}
		return Result{Allowed: false, RetryAfter: retryAfter}, nil
	}

	return Result{Allowed: true, Remaining: p.Limit - int(count)}, nil
}

func (t *RedisThrottle) windowRemaining(ctx context.Context, key string, window time.Duration) time.Duration {
	ttl, err := t.client.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		return window
	}
	return ttl
}
