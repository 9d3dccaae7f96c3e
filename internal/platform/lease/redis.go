package lease

import (
	"context"
	"fmt"
	"time"

	"autosolver/internal/common"

	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

// RedisLocker implements Locker with SET NX PX and a compare-and-delete release.
type RedisLocker struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisLocker(rdb redis.UniversalClient, prefix string) *RedisLocker {
	return &RedisLocker{rdb: rdb, prefix: prefix, now: time.Now}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	holder := NewHolderID()
	ok, err := l.rdb.SetNX(ctx, l.prefix+key, holder, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("RedisLocker.Acquire %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("key %s: %w", key, common.ErrLeaseHeld)
	}
	return &Lease{Key: key, Holder: holder, ExpiresAt: l.now().Add(ttl)}, nil
}

func (l *RedisLocker) Release(ctx context.Context, ls *Lease) error {
	if ls == nil {
		return nil
	}
	if _, err := releaseScript.Run(ctx, l.rdb, []string{l.prefix + ls.Key}, ls.Holder).Result(); err != nil {
		return fmt.Errorf("RedisLocker.Release %s: %w", ls.Key, err)
	}
	return nil
}
