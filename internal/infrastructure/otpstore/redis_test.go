package otpstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/qwiksale/verify-api/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedisStore(rdb, 10*time.Minute), mr
}

func TestRedisStore_PutGet(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "user@example.com", "123456", domain.ChannelEmail, 10*time.Minute))

	rec, err := s.Get(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", rec.Identifier)
	assert.Equal(t, domain.ChannelEmail, rec.Channel)
	assert.Equal(t, HashCode("123456"), rec.CodeHash)
	assert.Equal(t, 0, rec.Attempts)
}

func TestRedisStore_Get_Missing(t *testing.T) {
	s, _ := newTestRedisStore(t)
	_, err := s.Get(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Consume_SingleUse(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "user@example.com", "123456", domain.ChannelEmail, 10*time.Minute))

	outcome, err := s.Consume(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeOK, outcome)

	outcome, err = s.Consume(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeMissing, outcome)
}

func TestRedisStore_Consume_MismatchIncrementsAttempts(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "254712345678", "123456", domain.ChannelPhone, 10*time.Minute))

	for i := 1; i <= 3; i++ {
		outcome, err := s.Consume(ctx, "254712345678", "000000")
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeMismatch, outcome)

		rec, err := s.Get(ctx, "254712345678")
		require.NoError(t, err)
		assert.Equal(t, i, rec.Attempts)
	}

	// Mismatches never invalidate the real code.
	outcome, err := s.Consume(ctx, "254712345678", "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeOK, outcome)
}

func TestRedisStore_Consume_ExpiredWithinGrace(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()
	now := time.Now()
	s.now = func() time.Time { return now }
	require.NoError(t, s.Put(ctx, "user@example.com", "123456", domain.ChannelEmail, 10*time.Minute))

	// Past validity but inside the grace window: the key still exists, so the
	// caller learns the code expired rather than that it never existed.
	now = now.Add(15 * time.Minute)
	outcome, err := s.Consume(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeExpired, outcome)

	// The expired read evicted the record.
	outcome, err = s.Consume(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeMissing, outcome)
}

func TestRedisStore_KeyEvictedAfterGrace(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "user@example.com", "123456", domain.ChannelEmail, 10*time.Minute))

	// Validity 10m + grace 10m: past both, Redis has dropped the key.
	mr.FastForward(21 * time.Minute)

	outcome, err := s.Consume(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeMissing, outcome)
}

func TestRedisStore_Get_EvictsExpiredWithinGrace(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()
	now := time.Now()
	s.now = func() time.Time { return now }
	require.NoError(t, s.Put(ctx, "user@example.com", "123456", domain.ChannelEmail, 10*time.Minute))

	now = now.Add(15 * time.Minute)
	_, err := s.Get(ctx, "user@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, mr.Exists("otp:user@example.com"))
}

func TestRedisStore_PutOverwritesPreviousCode(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "user@example.com", "111111", domain.ChannelEmail, 10*time.Minute))
	require.NoError(t, s.Put(ctx, "user@example.com", "222222", domain.ChannelEmail, 10*time.Minute))

	outcome, err := s.Consume(ctx, "user@example.com", "111111")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeMismatch, outcome)

	outcome, err = s.Consume(ctx, "user@example.com", "222222")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeOK, outcome)
}

func TestRedisStore_Ping(t *testing.T) {
	s, mr := newTestRedisStore(t)
	assert.NoError(t, s.Ping(context.Background()))
	mr.Close()
	assert.Error(t, s.Ping(context.Background()))
}
