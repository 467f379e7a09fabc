package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
	ErrThrottled  = errors.New("too many requests")
)

// ThrottledError carries how long the caller should wait before retrying.
// It unwraps to ErrThrottled so errors.Is checks keep working.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

func (e *ThrottledError) Unwrap() error { return ErrThrottled }
