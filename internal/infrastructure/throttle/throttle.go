// Package throttle bounds the rate of sensitive operations per subject with a
// fixed-window counter. One logical action composes several buckets (per IP
// and per identifier) and every bucket must allow the request.
package throttle

import (
	"context"
	"time"
)

// Policy is one bucket's budget: Limit requests per Window. When Block is
// non-zero a refused subject stays blocked for Block instead of being let back
// in at the window boundary.
type Policy struct {
	Limit  int
	Window time.Duration
	Block  time.Duration
}

// Result is the decision for a single check.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Throttle counts requests per (bucket, subject) key. Implementations return
// backend errors as-is; the caller decides the failure posture (the OTP
// service fails open).
type Throttle interface {
	Check(ctx context.Context, bucket, subject string, p Policy) (Result, error)
}
