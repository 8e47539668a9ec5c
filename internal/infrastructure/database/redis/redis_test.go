package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/fishlwr/pkg/errors"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient(ClientConfig{Addr: mr.Addr(), KeyPrefix: "test"}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	t.Parallel()

	_, err := NewClient(ClientConfig{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCacheError))
}

func TestClient_KeyAndClose(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)
	assert.Equal(t, "test:doc:344", c.Key("doc", "344"))
	assert.NoError(t, c.Ping(context.Background()))

	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.Ping(context.Background()), ErrClientClosed)

	bare := NewClientFromUniversal(goredis.NewClient(&goredis.Options{}), "", nil)
	assert.Equal(t, "a:b", bare.Key("a", "b"))
}

func TestCache_GetSetDelete(t *testing.T) {
	t.Parallel()

	c, mr := newTestClient(t)
	cache := NewCache(c, "doc", nil)
	ctx := context.Background()

	_, err := cache.Get(ctx, "344")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, "344", []byte("<html/>"), time.Hour))
	assert.True(t, mr.Exists("test:doc:344"))
	ttl := mr.TTL("test:doc:344")
	assert.InDelta(t, float64(time.Hour), float64(ttl), float64(7*time.Minute))

	got, err := cache.Get(ctx, "344")
	require.NoError(t, err)
	assert.Equal(t, []byte("<html/>"), got)

	require.NoError(t, cache.Delete(ctx, "344"))
	_, err = cache.Get(ctx, "344")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestCache_GetOrLoad(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)
	cache := NewCache(c, "doc", nil)
	ctx := context.Background()

	var calls int32
	loader := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("body"), nil
	}

	for i := 0; i < 3; i++ {
		got, err := cache.GetOrLoad(ctx, "u1", time.Minute, loader)
		require.NoError(t, err)
		assert.Equal(t, []byte("body"), got)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, err := cache.GetOrLoad(ctx, "u2", time.Minute, func(context.Context) ([]byte, error) {
		return nil, errors.New(errors.ErrCodeFetchTimeout, "slow")
	})
	assert.True(t, errors.IsCode(err, errors.ErrCodeFetchTimeout))
	_, err = cache.Get(ctx, "u2")
	assert.ErrorIs(t, err, ErrCacheMiss, "failures are not cached")
}

func TestMutex(t *testing.T) {
	t.Parallel()

	c, mr := newTestClient(t)
	ctx := context.Background()

	a := NewMutex(c, "merge", WithLockTTL(time.Minute))
	b := NewMutex(c, "merge", WithRetryCount(2), WithRetryDelay(time.Millisecond))

	require.NoError(t, a.Lock(ctx))
	assert.True(t, mr.Exists("test:lock:merge"))

	ok, err := b.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, errors.IsCode(b.Lock(ctx), errors.ErrCodeConflict))

	assert.ErrorIs(t, b.Unlock(ctx), ErrLockNotHeld)

	extended, err := a.Extend(ctx, 2*time.Minute)
	require.NoError(t, err)
	assert.True(t, extended)

	require.NoError(t, a.Unlock(ctx))
	ok, err = b.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, b.Unlock(ctx))
}

func TestMutex_Watchdog(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)
	ctx := context.Background()

	m := NewMutex(c, "wd", WithLockTTL(300*time.Millisecond), WithWatchdog(true))
	ok, err := m.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, m.Unlock(ctx))
	assert.Nil(t, m.stopWatchdog)
}

//Personal.AI order the ending
