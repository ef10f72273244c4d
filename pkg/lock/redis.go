package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only while it still holds our token, so a
// holder whose TTL lapsed cannot free somebody else's lock.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

var ErrLockTimeout = errors.New("lock: timed out waiting for key")

// RedisLocker is a Locker shared by every node pointing at the same Redis.
// Lock gives up after one TTL even when ctx has no deadline.
type RedisLocker struct {
	rdb        redis.Cmdable
	ttl        time.Duration
	wait       time.Duration
	retryEvery time.Duration
	prefix     string
	token      func() string
	log        *zap.Logger
}

func NewRedisLocker(rdb redis.Cmdable, ttl time.Duration, log *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{
		rdb:        rdb,
		ttl:        ttl,
		wait:       ttl,
		retryEvery: 25 * time.Millisecond,
		prefix:     "lock:",
		token:      func() string { return uuid.NewString() },
		log:        log.With(zap.String("component", "redis_lock")),
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := l.token()

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(l.retryEvery)
	defer ticker.Stop()

	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", redisKey, err)
		}
		if ok {
			break
		}

		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, redisKey)
		case <-ticker.C:
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()

		if err := l.rdb.Eval(releaseCtx, releaseScript, []string{redisKey}, token).Err(); err != nil {
			l.log.Warn("Failed to release lock", zap.String("key", redisKey), zap.Error(err))
		}
	}, nil
}
