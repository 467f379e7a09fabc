package otpstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/qwiksale/verify-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryStore() *MemoryStore {
	return NewMemoryStore(0)
}

func TestMemoryStore_ConsumeBeforePut_Missing(t *testing.T) {
	s := newTestMemoryStore()
	outcome, err := s.Consume(context.Background(), "user@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeMissing, outcome)
}

func TestMemoryStore_SingleUse(t *testing.T) {
	s := newTestMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "user@example.com", "123456", domain.ChannelEmail, 10*time.Minute))

	outcome, err := s.Consume(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeOK, outcome)

	outcome, err = s.Consume(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeMissing, outcome)
}

func TestMemoryStore_MismatchKeepsRecordValid(t *testing.T) {
	s := newTestMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "user@example.com", "123456", domain.ChannelEmail, 10*time.Minute))

	outcome, err := s.Consume(ctx, "user@example.com", "000000")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeMismatch, outcome)

	rec, err := s.Get(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Attempts)

	outcome, err = s.Consume(ctx, "user@example.com", "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeOK, outcome)
}

func TestMemoryStore_ExpiredThenMissing(t *testing.T) {
	s := newTestMemoryStore()
	ctx := context.Background()
	now := time.Now()
	s.now = func() time.Time { return now }
	require.NoError(t, s.Put(ctx, "254712345678", "123456", domain.ChannelPhone, 10*time.Minute))

	now = now.Add(11 * time.Minute)

	outcome, err := s.Consume(ctx, "254712345678", "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeExpired, outcome)

	// The expired record was evicted, so the next attempt sees nothing.
	outcome, err = s.Consume(ctx, "254712345678", "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeMissing, outcome)
}

func TestMemoryStore_GetEvictsExpired(t *testing.T) {
	s := newTestMemoryStore()
	ctx := context.Background()
	now := time.Now()
	s.now = func() time.Time { return now }
	require.NoError(t, s.Put(ctx, "user@example.com", "123456", domain.ChannelEmail, 10*time.Minute))

	now = now.Add(11 * time.Minute)
	_, err := s.Get(ctx, "user@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_PutOverwritesPreviousCode(t *testing.T) {
	s := newTestMemoryStore()
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

func TestMemoryStore_TTLFloor(t *testing.T) {
	s := newTestMemoryStore()
	ctx := context.Background()
	now := time.Now()
	s.now = func() time.Time { return now }
	require.NoError(t, s.Put(ctx, "user@example.com", "123456", domain.ChannelEmail, 0))

	rec, err := s.Get(ctx, "user@example.com")
	require.NoError(t, err)
	assert.False(t, rec.ExpiresAt.Before(now.Add(MinTTL)))
}

func TestMemoryStore_PurgeExpired(t *testing.T) {
	s := newTestMemoryStore()
	ctx := context.Background()
	now := time.Now()
	s.now = func() time.Time { return now }
	require.NoError(t, s.Put(ctx, "a@example.com", "111111", domain.ChannelEmail, 5*time.Minute))
	require.NoError(t, s.Put(ctx, "b@example.com", "222222", domain.ChannelEmail, 30*time.Minute))

	now = now.Add(10 * time.Minute)
	removed, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.Get(ctx, "b@example.com")
	assert.NoError(t, err)
}

func TestMemoryStore_ConcurrentConsume_AtMostOneOK(t *testing.T) {
	s := newTestMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "user@example.com", "123456", domain.ChannelEmail, 10*time.Minute))

	const workers = 16
	outcomes := make([]domain.VerifyOutcome, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, err := s.Consume(ctx, "user@example.com", "123456")
			assert.NoError(t, err)
			outcomes[i] = outcome
		}(i)
	}
	wg.Wait()

	oks := 0
	for _, o := range outcomes {
		if o == domain.OutcomeOK {
			oks++
		} else {
			assert.Equal(t, domain.OutcomeMissing, o)
		}
	}
	assert.Equal(t, 1, oks)
}
