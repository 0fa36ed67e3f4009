package badger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ffengine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ffengine/pkg/errors"
)

func openInMemory(t *testing.T) *SnapshotStore {
	t.Helper()
	s, err := Open(Config{InMemory: true}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_RequiresDir(t *testing.T) {
	_, err := Open(Config{}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestSnapshotStore_PutGet(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "s1", []byte{1, 2, 3}))
	data, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	require.NoError(t, s.Put(ctx, "s1", []byte{4}))
	data, err = s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, data)
}

func TestSnapshotStore_EmptyKey(t *testing.T) {
	s := openInMemory(t)
	err := s.Put(context.Background(), "", []byte{1})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestSnapshotStore_GetMissing(t *testing.T) {
	s := openInMemory(t)
	_, err := s.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestSnapshotStore_DeleteAndList(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()
	for _, k := range []string{"c", "a", "b"} {
		require.NoError(t, s.Put(ctx, k, []byte(k)))
	}

	keys, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	require.NoError(t, s.Delete(ctx, "b"))
	require.NoError(t, s.Delete(ctx, "missing"))
	keys, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, keys)
}

func TestSnapshotStore_Persistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(Config{Dir: dir, SyncWrites: true}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "kept", []byte("payload")))
	require.NoError(t, s.Close())

	s, err = Open(Config{Dir: dir}, nil)
	require.NoError(t, err)
	defer s.Close()
	data, err := s.Get(ctx, "kept")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestSnapshotStore_Closed(t *testing.T) {
	s, err := Open(Config{InMemory: true}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, s.Put(context.Background(), "k", nil), ErrStoreClosed)
}

func TestSnapshotStore_CancelledContext(t *testing.T) {
	s := openInMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Put(ctx, "k", []byte{1}), context.Canceled)
}

func TestSnapshotStore_ConcurrentWriters(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Put(ctx, string(rune('a'+i)), []byte{byte(i)}))
		}(i)
	}
	wg.Wait()

	keys, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 20)
}

//Personal.AI order the ending
