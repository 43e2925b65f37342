package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker guards a run against concurrent owners. Two processes
// resuming the same checkpoint would both emit the frontier's subtrees.
type DistributedLocker interface {
	// TryLock acquires the lock for key or fails at once with
	// domain.ErrLockHeld. The lock expires after ttl unless refreshed.
	TryLock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)

	// Refresh extends a held lock.
	Refresh(ctx context.Context, key string, ttl time.Duration) error
}
