package workers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker guards a sweep run. TryLock reports false without blocking when a
// run already holds the lock; the returned func releases it.
type Locker interface {
	TryLock(ctx context.Context) (bool, func(), error)
}

// LocalLocker prevents overlapping runs inside one process.
type LocalLocker struct {
	mu sync.Mutex
}

func (l *LocalLocker) TryLock(ctx context.Context) (bool, func(), error) {
	if !l.mu.TryLock() {
		return false, nil, nil
	}
	return true, l.mu.Unlock, nil
}

const sweepLockKey = "workwise:reconcile:lock"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a lease shared by every replica. The lease expires on its
// own after ttl so a crashed holder does not block later runs forever.
type RedisLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, key: sweepLockKey, ttl: ttl}
}

func (l *RedisLocker) TryLock(ctx context.Context) (bool, func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return false, nil, fmt.Errorf("acquire sweep lease: %w", err)
	}
	if !ok {
		return false, nil, nil
	}
	release := func() {
		// only the holder's token may delete the key
		_ = releaseScript.Run(context.Background(), l.client, []string{l.key}, token).Err()
	}
	return true, release, nil
}

// ConnectRedis builds a client from a redis:// URL or a plain host:port.
func ConnectRedis(redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}
