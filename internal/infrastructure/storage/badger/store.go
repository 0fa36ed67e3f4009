// Package badger keeps session snapshots in an embedded BadgerDB.
package badger

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/turtacn/ffengine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ffengine/pkg/errors"
)

const keyPrefix = "snapshot/"

var (
	ErrSnapshotNotFound = errors.New(errors.CodeNotFound, "snapshot not found")
	ErrStoreClosed      = errors.New(errors.CodeStorage, "badger store is closed")
)

// Config holds the database parameters.
type Config struct {
	Dir        string
	InMemory   bool
	SyncWrites bool

	// GCInterval triggers value log GC periodically.  Zero disables it and
	// in-memory databases never run it.
	GCInterval     time.Duration
	GCDiscardRatio float64
}

// badgerLogger routes badger's own messages into the engine logger.
type badgerLogger struct {
	logger logging.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// SnapshotStore implements session.SnapshotStore on one database.
type SnapshotStore struct {
	db     *badger.DB
	cfg    Config
	logger logging.Logger

	mu     sync.RWMutex
	closed bool
	stop   chan struct{}
	done   chan struct{}
}

// Open opens (or creates) the database described by cfg.
func Open(cfg Config, log logging.Logger) (*SnapshotStore, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, errors.InvalidArgument("badger dir is required for a persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			return nil, errors.Wrap(err, errors.CodeStorage, "failed to create badger dir").WithDetail(cfg.Dir)
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{logger: log.Named("badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorage, "failed to open badger database")
	}

	s := &SnapshotStore{db: db, cfg: cfg, logger: log}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		if cfg.GCDiscardRatio <= 0 || cfg.GCDiscardRatio >= 1 {
			s.cfg.GCDiscardRatio = 0.5
		}
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.runGC()
	}
	log.Info("badger snapshot store opened",
		logging.String("dir", cfg.Dir),
		logging.Bool("in_memory", cfg.InMemory))
	return s, nil
}

func (s *SnapshotStore) runGC() {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(s.cfg.GCDiscardRatio)
			if err != nil && !stderrors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("badger value log GC failed", logging.Err(err))
			}
		}
	}
}

func (s *SnapshotStore) view(fn func(txn *badger.Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.View(fn)
}

func (s *SnapshotStore) update(fn func(txn *badger.Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.Update(fn)
}

func (s *SnapshotStore) Put(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return errors.InvalidArgument("snapshot key is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+key), data)
	})
	if err != nil && !errors.IsCode(err, errors.CodeStorage) {
		return errors.Wrap(err, errors.CodeStorage, "failed to write snapshot").WithDetail(key)
	}
	return err
}

func (s *SnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := s.view(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	switch {
	case err == nil:
		return data, nil
	case stderrors.Is(err, badger.ErrKeyNotFound):
		return nil, ErrSnapshotNotFound.WithDetail(key)
	case errors.IsCode(err, errors.CodeStorage):
		return nil, err
	default:
		return nil, errors.Wrap(err, errors.CodeStorage, "failed to read snapshot").WithDetail(key)
	}
}

// Delete removes key.  Deleting a missing key is not an error.
func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + key))
	})
	if err != nil && !errors.IsCode(err, errors.CodeStorage) {
		return errors.Wrap(err, errors.CodeStorage, "failed to delete snapshot").WithDetail(key)
	}
	return err
}

// List returns every stored key in sorted order.
func (s *SnapshotStore) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, string(it.Item().Key()[len(keyPrefix):]))
		}
		return nil
	})
	if err != nil {
		if errors.IsCode(err, errors.CodeStorage) || ctx.Err() != nil {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.CodeStorage, "failed to list snapshots")
	}
	sort.Strings(keys)
	return keys, nil
}

// Close stops the GC loop and closes the database.  It is idempotent.
func (s *SnapshotStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.stop != nil {
		close(s.stop)
		<-s.done
	}
	return s.db.Close()
}

//Personal.AI order the ending
