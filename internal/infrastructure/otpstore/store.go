// Package otpstore holds the live one-time code per identifier.
//
// At most one live record exists per identifier; a Put overwrites any prior
// record and immediately invalidates its code. Codes are kept hashed at rest
// so a compromised backend does not disclose usable codes. A successful
// Consume deletes the record, so a code verifies at most once even under
// concurrent attempts.
package otpstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/qwiksale/verify-api/internal/domain"
)

// ErrNotFound is returned by Get when no live record exists for an identifier.
var ErrNotFound = errors.New("otp record not found")

// MinTTL is the floor applied to the validity window on Put.
const MinTTL = time.Minute

// Record is the stored state for one identifier.
type Record struct {
	Identifier string         `json:"identifier"`
	Channel    domain.Channel `json:"channel"`
	CodeHash   string         `json:"code_hash"`
	ExpiresAt  time.Time      `json:"expires_at"`
	Attempts   int            `json:"attempts"`
}

// Expired reports whether the record is dead at the given instant.
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Store is the persistence contract for OTP records.
type Store interface {
	// Put unconditionally overwrites any record for identifier with a fresh
	// code valid for max(ttl, MinTTL).
	Put(ctx context.Context, identifier, plainCode string, channel domain.Channel, ttl time.Duration) error

	// Get returns the live record, or ErrNotFound when none exists. Reading an
	// expired record evicts it and reports ErrNotFound.
	Get(ctx context.Context, identifier string) (*Record, error)

	// Consume atomically resolves a verification attempt. OutcomeOK deletes the
	// record; OutcomeMismatch leaves it live and increments its attempt
	// counter; OutcomeExpired evicts it. Concurrent calls for one identifier
	// resolve to at most one OutcomeOK.
	Consume(ctx context.Context, identifier, plainCode string) (domain.VerifyOutcome, error)

	// PurgeExpired is a best-effort sweep for backends without native TTL
	// eviction. It returns the number of records removed.
	PurgeExpired(ctx context.Context) (int, error)
}

// HashCode is the at-rest form of a code. It must be deterministic: the
// atomic consume paths compare stored and supplied codes by hash equality.
func HashCode(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
