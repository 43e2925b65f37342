// Package badger stores checkpoints in an embedded BadgerDB database.
//
// Badger holds an exclusive lock on its directory while open, so a second
// process cannot resume the same runs concurrently.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "checkpoint/"

// Store implements ports.CheckpointStore on top of BadgerDB.
type Store struct {
	db *badger.DB
}

// Option configures Open.
type Option func(*badger.Options)

// WithLogger routes Badger's internal logging through slog.
func WithLogger(logger *slog.Logger) Option {
	return func(o *badger.Options) {
		*o = o.WithLogger(&badgerLogger{logger: logger})
	}
}

// InMemory keeps the database in memory only. Used by tests.
func InMemory() Option {
	return func(o *badger.Options) {
		*o = o.WithInMemory(true).WithDir("").WithValueDir("")
	}
}

// Open opens (or creates) the database in dir with synchronous writes.
func Open(dir string, opts ...Option) (*Store, error) {
	o := badger.DefaultOptions(dir).
		WithSyncWrites(true).
		WithNumVersionsToKeep(1).
		WithLogger(nil)
	for _, opt := range opts {
		opt(&o)
	}
	if !o.InMemory {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}

	db, err := badger.Open(o)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

func key(name string) []byte {
	return []byte(keyPrefix + name)
}

// Save writes the checkpoint in a single transaction.
func (s *Store) Save(ctx context.Context, name string, cp *domain.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(name), data)
	}); err != nil {
		return fmt.Errorf("failed to save to badger: %w", err)
	}
	return nil
}

// Load reads the checkpoint.
func (s *Store) Load(ctx context.Context, name string) (*domain.Checkpoint, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("failed to read from badger: %w", err)
	}

	var cp domain.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptCheckpoint, name, err)
	}
	return &cp, nil
}

// Delete removes the checkpoint.
func (s *Store) Delete(ctx context.Context, name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(name))
	})
}

// List returns the stored run names in key order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var runs []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			runs = append(runs, string(it.Item().Key()[len(keyPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Close closes the database and releases its directory lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
