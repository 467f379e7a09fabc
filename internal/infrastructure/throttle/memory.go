package throttle

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count        int
	resetAt      time.Time
	blockedUntil time.Time
	lastSeen     time.Time
}

// MemoryThrottle is a process-local fixed-window counter with stale-entry
// cleanup. Single-instance only; production uses the Redis throttle.
type MemoryThrottle struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// NewMemoryThrottle creates an empty throttle and starts a goroutine that
// drops entries not seen for a while.
func NewMemoryThrottle() *MemoryThrottle {
	t := &MemoryThrottle{
		windows: make(map[string]*window),
		now:     time.Now,
	}
	go t.cleanup()
	return t
}

// cleanup removes stale entries every 5 minutes.
func (t *MemoryThrottle) cleanup() {
	for {
		time.Sleep(5 * time.Minute)
		t.mu.Lock()
		now := t.now()
		for key, w := range t.windows {
			if now.Sub(w.lastSeen) > 30*time.Minute && now.After(w.blockedUntil) {
				delete(t.windows, key)
			}
		}
		t.mu.Unlock()
	}
}

func (t *MemoryThrottle) Check(_ context.Context, bucket, subject string, p Policy) (Result, error) {
	key := bucket + ":" + subject
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.windows[key]
	if !ok {
		w = &window{}
		t.windows[key] = w
	}
	w.lastSeen = now

	if now.Before(w.blockedUntil) {
		return Result{Allowed: false, RetryAfter: w.blockedUntil.Sub(now)}, nil
	}

	if w.count == 0 || now.After(w.resetAt) {
		w.count = 1
		w.resetAt = now.Add(p.Window)
	} else {
		w.count++
	}

	if w.count > p.Limit {
		retryAfter := w.resetAt.Sub(now)
		if p.Block > 0 {
			w.blockedUntil = now.Add(p.Block)
			retryAfter = p.Block
		}
		return Result{Allowed: false, RetryAfter: retryAfter}, nil
	}

	return Result{Allowed: true, Remaining: p.Limit - w.count}, nil
}
