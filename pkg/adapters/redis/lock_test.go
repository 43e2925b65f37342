package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/bbseed/pkg/adapters/redis"
	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.DistributedLocker = (*redis.Locker)(nil)

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.TryLock(ctx, "bb5", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:bb5"), "Lock key should be set in Redis")

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:bb5"), "Lock key should be removed after unlock")
}

func TestRedisLocker_Contention(t *testing.T) {
	mr, client := newClient(t)
	first := redis.NewLocker(client, "test:")
	second := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := first.TryLock(ctx, "bb5", 5*time.Second)
	require.NoError(t, err)

	_, err = second.TryLock(ctx, "bb5", 5*time.Second)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	// Another owner cannot extend the lock.
	assert.Error(t, second.Refresh(ctx, "bb5", time.Second))
	assert.True(t, mr.Exists("test:lock:bb5"))

	require.NoError(t, first.Refresh(ctx, "bb5", 10*time.Second))
	assert.Greater(t, mr.TTL("test:lock:bb5"), 5*time.Second)

	require.NoError(t, unlock(ctx))
	unlock2, err := second.TryLock(ctx, "bb5", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestRedisLocker_Expiry(t *testing.T) {
	mr, client := newClient(t)
	ctx := context.Background()

	_, err := redis.NewLocker(client, "test:").TryLock(ctx, "bb5", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	_, err = redis.NewLocker(client, "test:").TryLock(ctx, "bb5", time.Second)
	assert.NoError(t, err)
}
