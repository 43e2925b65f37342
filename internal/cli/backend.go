package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/bbseed/internal/config"
	"github.com/aretw0/bbseed/pkg/adapters/badger"
	"github.com/aretw0/bbseed/pkg/adapters/file"
	"github.com/aretw0/bbseed/pkg/adapters/memory"
	"github.com/aretw0/bbseed/pkg/adapters/redis"
	"github.com/aretw0/bbseed/pkg/ports"
)

// backend bundles the checkpoint store of a run with the locker guarding it.
type backend struct {
	store  ports.CheckpointStore
	locker ports.DistributedLocker
	close  func() error
}

// openBackend builds the configured checkpoint backend. Badger holds an
// exclusive lock on its directory and needs no separate locker.
func openBackend(cfg config.Config, logger *slog.Logger) (*backend, error) {
	cp := cfg.Checkpoint
	nop := func() error { return nil }

	switch cp.Backend {
	case config.BackendFile:
		if err := os.MkdirAll(cp.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
		}
		return &backend{store: file.New(cp.Dir), locker: file.NewLocker(cp.Dir), close: nop}, nil

	case config.BackendRedis:
		store := redis.New(cp.Redis.Addr, cp.Redis.Password, cp.Redis.DB, redis.WithPrefix(cp.Redis.Prefix))
		return &backend{
			store:  store,
			locker: redis.NewLocker(store.Client(), store.Prefix()),
			close:  store.Close,
		}, nil

	case config.BackendBadger:
		store, err := badger.Open(filepath.Join(cp.Dir, "badger"), badger.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return &backend{store: store, close: store.Close}, nil

	case config.BackendMemory:
		return &backend{store: memory.NewStore(), locker: memory.NewLocker(), close: nop}, nil
	}
	return nil, fmt.Errorf("unknown checkpoint backend %q", cp.Backend)
}
