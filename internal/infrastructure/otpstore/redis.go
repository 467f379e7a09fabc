package otpstore

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/qwiksale/verify-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	otpKeyPrefix      = "otp"
	consumeMaxRetries = 4
)

// errConsumeContention is returned when a consume loses the optimistic
// transaction race more times than consumeMaxRetries allows.
var errConsumeContention = errors.New("otp consume contention")

// RedisStore persists records in Redis with native per-key TTL.
//
// The key TTL is the validity window plus a grace period. Inside the grace
// period the record is still readable, so a late verification can be answered
// with "expired" rather than collapsing into "missing"; after it, Redis has
// evicted the key and the outcome is "missing".
type RedisStore struct {
	client *redis.Client
	grace  time.Duration
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, grace time.Duration) *RedisStore {
	return &RedisStore{client: client, grace: grace, now: time.Now}
}

func (s *RedisStore) key(identifier string) string {
	return otpKeyPrefix + ":" + identifier
}

func (s *RedisStore) Put(ctx context.Context, identifier, plainCode string, channel domain.Channel, ttl time.Duration) error {
	if ttl < MinTTL {
		ttl = MinTTL
	}
	rec := Record{
		Identifier: identifier,
		Channel:    channel,
		CodeHash:   HashCode(plainCode),
		ExpiresAt:  s.now().Add(ttl),
	}
	encoded, err := json.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("marshal otp record: %w", err)
	}
	if err := s.client.Set(ctx, s.key(identifier), encoded, ttl+s.grace).Err(); err != nil {
		return fmt.Errorf("store otp record: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, identifier string) (*Record, error) {
	data, err := s.client.Get(ctx, s.key(identifier)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch otp record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode otp record: %w", err)
	}
	if rec.Expired(s.now()) {
		_ = s.client.Del(ctx, s.key(identifier)).Err()
		return nil, ErrNotFound
	}
	return &rec, nil
}

// Consume runs the fetch/compare/delete sequence inside an optimistic WATCH
// transaction so concurrent attempts for the same identifier serialize: the
// transaction of whichever attempt commits first wins, the loser re-reads and
// observes the deleted (or mutated) record.
func (s *RedisStore) Consume(ctx context.Context, identifier, plainCode string) (domain.VerifyOutcome, error) {
	key := s.key(identifier)
	suppliedHash := HashCode(plainCode)

	for i := 0; i < consumeMaxRetries; i++ {
		var outcome domain.VerifyOutcome

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				outcome = domain.OutcomeMissing
				return nil
			}
			if err != nil {
				return err
			}

			var rec Record
			if err := json.Unmarshal(data, &rec); err != nil {
				return fmt.Errorf("decode otp record: %w", err)
			}

			if rec.Expired(s.now()) {
				outcome = domain.OutcomeExpired
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				return err
			}

			if subtle.ConstantTimeCompare([]byte(rec.CodeHash), []byte(suppliedHash)) != 1 {
				outcome = domain.OutcomeMismatch
				rec.Attempts++
				encoded, err := json.Marshal(&rec)
				if err != nil {
					return fmt.Errorf("marshal otp record: %w", err)
				}
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, key, encoded, redis.KeepTTL)
					return nil
				})
				return err
			}

			outcome = domain.OutcomeOK
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("consume otp record: %w", err)
		}
		return outcome, nil
	}
	return "", errConsumeContention
}

// PurgeExpired is a no-op: Redis evicts keys itself once the grace TTL passes.
func (s *RedisStore) PurgeExpired(context.Context) (int, error) {
	return 0, nil
}

// Ping reports backend reachability, used by the readiness endpoint.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
