package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"leadgate/internal/ratelimit"
)

// allowScript implements atomic sliding-window check-and-increment on a
// sorted set keyed by submission time. Returns {allowed, count, oldest}.
var allowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	return {0, count, oldest[2]}
end
local seq = redis.call('INCR', key .. ':seq')
redis.call('PEXPIRE', key .. ':seq', window)
redis.call('ZADD', key, now, now .. '-' .. seq)
redis.call('PEXPIRE', key, window)
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
return {1, count + 1, oldest[2]}
`)

// Redis implements the sliding-window store on a Redis sorted set, sharing
// counters across instances.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration) (*ratelimit.Result, error) {
	now := time.Now()
	raw, err := allowScript.Run(ctx, s.client,
		[]string{"ratelimit:" + key},
		now.UnixMilli(), window.Milliseconds(), limit,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit script: %w", err)
	}

	allowed, count, oldestMilli, err := decodeAllowReply(raw, now.UnixMilli())
	if err != nil {
		return nil, err
	}
	resetAt := time.UnixMilli(oldestMilli).Add(window)

	result := &ratelimit.Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: max(limit-count, 0),
		ResetAt:   resetAt,
	}
	if !allowed {
		result.RetryAfter = retryAfterSeconds(now, resetAt)
	}
	return result, nil
}

// decodeAllowReply unpacks the {allowed, count, oldest} table the script
// returns. Redis hands integers back as int64 and sorted-set scores as
// strings; anything else means the script and this decoder have drifted.
func decodeAllowReply(raw any, fallbackMilli int64) (allowed bool, count int, oldestMilli int64, err error) {
	reply, ok := raw.([]any)
	if !ok || len(reply) < 3 {
		return false, 0, 0, fmt.Errorf("rate limit script: unexpected reply %v", raw)
	}
	flag, ok := reply[0].(int64)
	if !ok {
		return false, 0, 0, fmt.Errorf("rate limit script: unexpected reply %v", raw)
	}
	rawCount, ok := reply[1].(int64)
	if !ok {
		return false, 0, 0, fmt.Errorf("rate limit script: unexpected reply %v", raw)
	}

	oldestMilli = fallbackMilli
	if str, ok := reply[2].(string); ok {
		// Ignore parse failures and fall back to now so ResetAt is still
		// bounded by the window.
		var parsed int64
		if _, serr := fmt.Sscanf(str, "%d", &parsed); serr == nil {
			oldestMilli = parsed
		}
	}
	return flag == 1, int(rawCount), oldestMilli, nil
}

func (s *Redis) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, "ratelimit:"+key, "ratelimit:"+key+":seq").Err(); err != nil {
		return fmt.Errorf("rate limit reset: %w", err)
	}
	return nil
}
