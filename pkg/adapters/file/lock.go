package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/ports"
	"github.com/google/uuid"
)

// Locker implements ports.DistributedLocker with lock files next to the
// checkpoints. A lock file holds the owner token and its expiry; an expired
// lock is taken over.
type Locker struct {
	BasePath string
	token    string
}

// NewLocker creates a locker writing "<key>.lock" files under basePath.
func NewLocker(basePath string) *Locker {
	if basePath == "" {
		basePath = ".bbseed"
	}
	return &Locker{BasePath: basePath, token: uuid.NewString()}
}

func (l *Locker) path(key string) string {
	return filepath.Join(l.BasePath, key+".lock")
}

func (l *Locker) content(ttl time.Duration) []byte {
	return []byte(l.token + " " + time.Now().Add(ttl).UTC().Format(time.RFC3339Nano) + "\n")
}

// TryLock creates the lock file exclusively.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if err := os.MkdirAll(l.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to ensure lock directory: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(l.path(key), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			_, werr := f.Write(l.content(ttl))
			cerr := f.Close()
			if err := errors.Join(werr, cerr); err != nil {
				return nil, fmt.Errorf("failed to write lock file: %w", err)
			}
			return func(ctx context.Context) error { return l.release(key) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}
		owner, expiry, rerr := l.read(key)
		if rerr != nil || time.Now().Before(expiry) {
			return nil, fmt.Errorf("%w: %s held by %s until %s", domain.ErrLockHeld, key, owner, expiry.Format(time.RFC3339))
		}
		// Expired: remove and retry once.
		if err := os.Remove(l.path(key)); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove expired lock: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrLockHeld, key)
}

// Refresh rewrites the expiry of a lock this locker holds.
func (l *Locker) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	owner, _, err := l.read(key)
	if err != nil {
		return err
	}
	if owner != l.token {
		return fmt.Errorf("%w: %s is owned by %s", domain.ErrLockHeld, key, owner)
	}
	return os.WriteFile(l.path(key), l.content(ttl), 0644)
}

func (l *Locker) release(key string) error {
	owner, _, err := l.read(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if owner != l.token {
		return nil
	}
	if err := os.Remove(l.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

func (l *Locker) read(key string) (owner string, expiry time.Time, err error) {
	data, err := os.ReadFile(l.path(key))
	if err != nil {
		return "", time.Time{}, err
	}
	owner, at, ok := strings.Cut(strings.TrimSpace(string(data)), " ")
	if !ok {
		return "", time.Time{}, fmt.Errorf("malformed lock file %s", l.path(key))
	}
	expiry, err = time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("malformed lock file %s: %w", l.path(key), err)
	}
	return owner, expiry, nil
}
