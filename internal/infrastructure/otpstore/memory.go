package otpstore

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	"github.com/qwiksale/verify-api/internal/domain"
)

// MemoryStore keeps records in a process-local map. Records are lost on
// restart and invisible to other instances, so it is only correct for
// single-instance deployments; production uses the Redis store.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	now     func() time.Time
}

// NewMemoryStore creates an empty in-process store and starts a janitor that
// sweeps expired records every sweepEvery. Pass 0 to disable the sweep (reads
// still evict lazily).
func NewMemoryStore(sweepEvery time.Duration) *MemoryStore {
	s := &MemoryStore{
		records: make(map[string]*Record),
		now:     time.Now,
	}
	if sweepEvery > 0 {
		go s.janitor(sweepEvery)
	}
	return s
}

func (s *MemoryStore) janitor(every time.Duration) {
	for {
		time.Sleep(every)
		_, _ = s.PurgeExpired(context.Background())
	}
}

func (s *MemoryStore) Put(_ context.Context, identifier, plainCode string, channel domain.Channel, ttl time.Duration) error {
	if ttl < MinTTL {
		ttl = MinTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[identifier] = &Record{
		Identifier: identifier,
		Channel:    channel,
		CodeHash:   HashCode(plainCode),
		ExpiresAt:  s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, identifier string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[identifier]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.Expired(s.now()) {
		delete(s.records, identifier)
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) Consume(_ context.Context, identifier, plainCode string) (domain.VerifyOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[identifier]
	if !ok {
		return domain.OutcomeMissing, nil
	}
	if rec.Expired(s.now()) {
		delete(s.records, identifier)
		return domain.OutcomeExpired, nil
	}
	supplied := HashCode(plainCode)
	if subtle.ConstantTimeCompare([]byte(rec.CodeHash), []byte(supplied)) != 1 {
		rec.Attempts++
		return domain.OutcomeMismatch, nil
	}
	delete(s.records, identifier)
	return domain.OutcomeOK, nil
}

func (s *MemoryStore) PurgeExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for identifier, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, identifier)
			removed++
		}
	}
	return removed, nil
}
