package minio

import (
	"bytes"
	"context"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/ffengine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ffengine/pkg/errors"
)

// SnapshotStore keeps encoded forcefield sets as objects named
// prefix+key in the configured bucket.
type SnapshotStore struct {
	client *MinIOClient
	logger logging.Logger
}

func NewSnapshotStore(client *MinIOClient, log logging.Logger) *SnapshotStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &SnapshotStore{client: client, logger: log}
}

func (s *SnapshotStore) object(key string) string { return s.client.config.Prefix + key }

func (s *SnapshotStore) Put(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return errors.InvalidArgument("snapshot key is required")
	}
	api, err := s.client.api()
	if err != nil {
		return err
	}
	_, err = api.PutObject(ctx, s.client.config.Bucket, s.object(key),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return errors.Wrap(err, errors.CodeStorage, "failed to upload snapshot").WithDetail(key)
	}
	s.logger.Debug("snapshot uploaded", logging.String("key", key), logging.Int("bytes", len(data)))
	return nil
}

func (s *SnapshotStore) Get(ctx context.Context, key string) ([]byte, error) {
	api, err := s.client.api()
	if err != nil {
		return nil, err
	}
	data, err := api.ReadObject(ctx, s.client.config.Bucket, s.object(key))
	if err != nil {
		if errors.IsCode(err, errors.CodeNotFound) {
			return nil, errors.NotFound("snapshot not found").WithDetail(key)
		}
		return nil, errors.Wrap(err, errors.CodeStorage, "failed to download snapshot").WithDetail(key)
	}
	return data, nil
}

func (s *SnapshotStore) Delete(ctx context.Context, key string) error {
	api, err := s.client.api()
	if err != nil {
		return err
	}
	if err := api.RemoveObject(ctx, s.client.config.Bucket, s.object(key), minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.CodeStorage, "failed to delete snapshot").WithDetail(key)
	}
	return nil
}

func (s *SnapshotStore) List(ctx context.Context) ([]string, error) {
	api, err := s.client.api()
	if err != nil {
		return nil, err
	}
	prefix := s.client.config.Prefix
	var keys []string
	for obj := range api.ListObjects(ctx, s.client.config.Bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.CodeStorage, "failed to list snapshots")
		}
		keys = append(keys, strings.TrimPrefix(obj.Key, prefix))
	}
	sort.Strings(keys)
	return keys, nil
}

//Personal.AI order the ending
