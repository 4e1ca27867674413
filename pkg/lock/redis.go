package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Only the holder's token may delete the key; an expired lock re-acquired by
// someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX so every API replica shares the
// same locks.
type RedisLocker struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
	wait   time.Duration
	log    *zap.Logger
}

func NewRedisLocker(rdb redis.UniversalClient, prefix string, ttl, wait time.Duration, log *zap.Logger) *RedisLocker {
	if prefix == "" {
		prefix = "lock"
	}
	return &RedisLocker{rdb: rdb, prefix: prefix, ttl: ttl, wait: wait, log: log}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (Unlock, error) {
	fullKey := l.prefix + ":" + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.rdb.SetNX(ctx, fullKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquiring %s: %w", fullKey, err)
		}
		if ok {
			break
		}
		if !time.Now().Before(deadline) {
			return nil, ErrBusy
		}

		t := time.NewTimer(retryInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The request context may already be cancelled.
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.rdb, []string{fullKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				l.log.Warn("failed to release schedule lock", zap.String("key", fullKey), zap.Error(err))
			}
		})
	}, nil
}
