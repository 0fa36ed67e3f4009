package redis

import (
	"context"
	stderrors "errors"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/ffengine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ffengine/pkg/errors"
)

// ErrSnapshotNotFound is returned by Get for unknown keys.
var ErrSnapshotNotFound = errors.New(errors.CodeNotFound, "snapshot not found")

// SnapshotStore keeps encoded forcefield sets as plain redis strings under
// prefix+key.  Concurrent reads of one key share a single round trip.
type SnapshotStore struct {
	client *Client
	logger logging.Logger
	prefix string
	ttl    time.Duration
	scan   int64
	group  singleflight.Group
}

// StoreOption configures a SnapshotStore.
type StoreOption func(*SnapshotStore)

func WithPrefix(prefix string) StoreOption {
	return func(s *SnapshotStore) { s.prefix = prefix }
}

// WithTTL expires snapshots ttl after their last save.  Zero keeps them
// forever.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *SnapshotStore) { s.ttl = ttl }
}

func WithScanCount(n int64) StoreOption {
	return func(s *SnapshotStore) { s.scan = n }
}

func NewSnapshotStore(client *Client, log logging.Logger, opts ...StoreOption) *SnapshotStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	s := &SnapshotStore{
		client: client,
		logger: log,
		prefix: "ffengine:snapshot:",
		scan:   100,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SnapshotStore) fullKey(key string) string { return s.prefix + key }

func (s *SnapshotStore) Put(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return errors.InvalidArgument("snapshot key is empty")
	}
	if err := s.client.Set(ctx, s.fullKey(key), data, s.ttl).Err(); err != nil {
		return errors.Wrap(err, errors.CodeStorage, "failed to write snapshot")
	}
	s.logger.Debug("snapshot written", logging.String("key", key), logging.Int("bytes", len(data)))
	return nil
}

func (s *SnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		data, err := s.client.Get(ctx, s.fullKey(key)).Bytes()
		if stderrors.Is(err, redis.Nil) {
			return nil, ErrSnapshotNotFound.WithDetail(key)
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeStorage, "failed to read snapshot")
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	data := v.([]byte)
	if shared {
		data = append([]byte(nil), data...)
	}
	return data, nil
}

// Delete removes key.  Deleting an absent key is not an error.
func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.fullKey(key)).Err(); err != nil {
		return errors.Wrap(err, errors.CodeStorage, "failed to delete snapshot")
	}
	return nil
}

// List scans for every key under the prefix.
func (s *SnapshotStore) List(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", s.scan).Result()
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeStorage, "failed to list snapshots")
		}
		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, s.prefix))
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	sort.Strings(keys)
	return keys, nil
}

//Personal.AI order the ending
