package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// ErrLockLost is returned by Refresh when the lock expired or changed owner.
var ErrLockLost = errors.New("distributed lock lost")

var (
	unlockScript = backend.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)
	refreshScript = backend.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)
)

// Locker implements ports.DistributedLocker using Redis.
type Locker struct {
	client *backend.Client
	prefix string
	token  string
}

// NewLocker creates a new Redis locker. The locker owns a random token so it
// only ever releases or extends its own locks.
func NewLocker(client *backend.Client, prefix string) *Locker {
	return &Locker{
		client: client,
		prefix: prefix,
		token:  uuid.NewString(),
	}
}

func (l *Locker) lockKey(key string) string {
	return l.prefix + "lock:" + key
}

// TryLock acquires the lock with a single SET NX PX.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	lockKey := l.lockKey(key)
	ok, err := l.client.SetNX(ctx, lockKey, l.token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error acquiring lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrLockHeld, key)
	}
	return func(ctx context.Context) error {
		return unlockScript.Run(ctx, l.client, []string{lockKey}, l.token).Err()
	}, nil
}

// Refresh extends the lock if this locker still owns it.
func (l *Locker) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	n, err := refreshScript.Run(ctx, l.client, []string{l.lockKey(key)}, l.token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis error refreshing lock: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrLockLost, key)
	}
	return nil
}
