package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript runs the refill-then-consume step atomically on the server.
// KEYS[1] bucket; ARGV capacity, refill rate, interval ms, now ms, tokens.
var consumeScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local interval = tonumber(ARGV[3])
local now = tonumber(ARGV[4])
local n = tonumber(ARGV[5])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'refill')
local tokens = tonumber(state[1])
local refill = tonumber(state[2])
if tokens == nil or refill == nil then
  tokens = capacity
  refill = now
end

local intervals = math.floor((now - refill) / interval)
local cap = math.floor(capacity / rate) + 1
if intervals > cap then intervals = cap end
if intervals > 0 then
  tokens = math.min(tokens + intervals * rate, capacity)
  refill = now
end

tokens = tokens - n
redis.call('HSET', KEYS[1], 'tokens', tokens, 'refill', refill)
redis.call('PEXPIRE', KEYS[1], (cap + 1) * interval)
return {tokens, refill + interval}
`)

// DefaultRedisPrefix namespaces bucket keys.
const DefaultRedisPrefix = "hubauth:ratelimit:"

// RedisStore shares buckets between instances.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

func (s *RedisStore) ConsumeTokens(ctx context.Context, key string, tokens int, cfg Config) (int, time.Time, error) {
	now := s.now()
	res, err := consumeScript.Run(ctx, s.client, []string{s.prefix + key},
		cfg.Capacity, cfg.RefillRate, cfg.RefillInterval.Milliseconds(), now.UnixMilli(), tokens,
	).Int64Slice()
	if err != nil {
		return 0, time.Time{}, errors.Join(ErrStoreUnavailable, err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("%w: unexpected script reply %v", ErrStoreUnavailable, res)
	}
	return int(res[0]), time.UnixMilli(res[1]), nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
