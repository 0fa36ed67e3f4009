package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ffengine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ffengine/pkg/errors"
)

func newMiniClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(&RedisConfig{Mode: "standalone", Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestNewClient_Standalone(t *testing.T) {
	client, _ := newMiniClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestNewClient_UnknownModeFallsBack(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(&RedisConfig{Mode: "bogus", Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()))
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	client, err := NewClient(&RedisConfig{Mode: "standalone", Addr: "localhost:1"}, logging.NewNopLogger())
	assert.Nil(t, client)
	assert.True(t, errors.IsCode(err, errors.CodeStorage))
}

func TestUniversalOptions_Modes(t *testing.T) {
	opts, err := universalOptions(&RedisConfig{Mode: "sentinel", MasterName: "m", SentinelAddrs: []string{"a:1", "b:1"}})
	require.NoError(t, err)
	assert.Equal(t, "m", opts.MasterName)
	assert.Equal(t, []string{"a:1", "b:1"}, opts.Addrs)

	opts, err = universalOptions(&RedisConfig{Mode: "cluster", ClusterAddrs: []string{"c:1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"c:1"}, opts.Addrs)
	assert.Empty(t, opts.MasterName)

	_, err = universalOptions(&RedisConfig{TLSEnabled: true, TLSCAFile: "/does/not/exist"})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestClient_Close(t *testing.T) {
	client, _ := newMiniClient(t)
	require.NoError(t, client.Close())
	assert.NoError(t, client.Close())

	ctx := context.Background()
	assert.Equal(t, ErrClientClosed, client.Get(ctx, "k").Err())
	assert.Equal(t, ErrClientClosed, client.Set(ctx, "k", "v", 0).Err())
	assert.Equal(t, ErrClientClosed, client.Del(ctx, "k").Err())
	assert.Equal(t, ErrClientClosed, client.Scan(ctx, 0, "*", 10).Err())
	assert.Equal(t, ErrClientClosed, client.Ping(ctx))
}

//Personal.AI order the ending
