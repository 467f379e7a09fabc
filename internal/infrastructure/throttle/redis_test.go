package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisThrottle(t *testing.T) (*RedisThrottle, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedisThrottle(rdb), mr
}

func TestRedisThrottle_AllowsUpToLimit(t *testing.T) {
	thr, _ := newTestRedisThrottle(t)
	p := Policy{Limit: 5, Window: time.Minute}
	ctx := context.Background()

	prev := p.Limit
	for i := 0; i < 5; i++ {
		res, err := thr.Check(ctx, "issue:id", "user@example.com", p)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i+1)
		assert.Less(t, res.Remaining, prev)
		prev = res.Remaining
	}

	res, err := thr.Check(ctx, "issue:id", "user@example.com", p)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
}

func TestRedisThrottle_WindowExpires(t *testing.T) {
	thr, mr := newTestRedisThrottle(t)
	p := Policy{Limit: 1, Window: time.Minute}
	ctx := context.Background()

	res, err := thr.Check(ctx, "b", "s", p)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = thr.Check(ctx, "b", "s", p)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	mr.FastForward(61 * time.Second)

	res, err = thr.Check(ctx, "b", "s", p)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisThrottle_BlockKeyExtendsRefusal(t *testing.T) {
	thr, mr := newTestRedisThrottle(t)
	p := Policy{Limit: 1, Window: time.Minute, Block: 5 * time.Minute}
	ctx := context.Background()

	_, err := thr.Check(ctx, "b", "s", p)
	require.NoError(t, err)
	res, err := thr.Check(ctx, "b", "s", p)
	require.NoError(t, err)
	require.False(t, res.Allowed)
	assert.Equal(t, 5*time.Minute, res.RetryAfter)
	assert.True(t, mr.Exists("blocked:thr:b:s"))

	// The window counter expires but the block key holds.
	mr.FastForward(2 * time.Minute)
	res, err = thr.Check(ctx, "b", "s", p)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	mr.FastForward(4 * time.Minute)
	res, err = thr.Check(ctx, "b", "s", p)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisThrottle_BackendDown_ReturnsError(t *testing.T) {
	thr, mr := newTestRedisThrottle(t)
	mr.Close()

	_, err := thr.Check(context.Background(), "b", "s", Policy{Limit: 1, Window: time.Minute})
	assert.Error(t, err)
}
