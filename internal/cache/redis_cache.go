package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// setIfNotOlder keeps an entry whose version is higher than ARGV[1]; an
// unreadable entry is overwritten.
var setIfNotOlder = redis.NewScript(`
local cur = redis.call("GET", KEYS[1])
if cur then
	local ok, doc = pcall(cjson.decode, cur)
	if ok and type(doc) == "table" then
		local v = tonumber(doc["version"])
		if v and v > tonumber(ARGV[1]) then
			return 0
		end
	end
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// RedisCache stores JSON snapshots under plain string keys.
type RedisCache struct {
	rdb redis.Cmdable
}

func NewRedisCache(rdb redis.Cmdable) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// GetJSON treats a missing or undecodable entry as a miss; undecodable entries
// are removed so the next read goes to the store.
func (c *RedisCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		_ = c.rdb.Unlink(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

// SetJSON requires a positive ttl; snapshots are never cached forever.
func (c *RedisCache) SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, ttl).Err()
}

// SetVersionedJSON is SetJSON guarded by the snapshot version, so a reader
// that loaded an older record cannot overwrite a newer write-through.
func (c *RedisCache) SetVersionedJSON(ctx context.Context, key string, version int64, val any, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, nil
	}
	b, err := json.Marshal(val)
	if err != nil {
		return false, err
	}
	ms := ttl.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	n, err := setIfNotOlder.Run(ctx, c.rdb, []string{key}, version, b, ms).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Unlink(ctx, keys...).Err()
}
