package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/ports"
)

// Locker implements ports.DistributedLocker for a single process.
type Locker struct {
	mu    sync.Mutex
	locks map[string]time.Time
}

// NewLocker creates an empty locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]time.Time)}
}

// TryLock takes key unless an unexpired lock holds it.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, ok := l.locks[key]; ok && time.Now().Before(expiry) {
		return nil, fmt.Errorf("%w: %s", domain.ErrLockHeld, key)
	}
	expiry := time.Now().Add(ttl)
	l.locks[key] = expiry
	return func(ctx context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.locks, key)
		return nil
	}, nil
}

// Refresh extends a held lock.
func (l *Locker) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.locks[key]; !ok {
		return fmt.Errorf("lock %s is not held", key)
	}
	l.locks[key] = time.Now().Add(ttl)
	return nil
}
