// Package transport is the HTTP layer shared by both providers. It
// applies retries, feeds rate-limit headers into the tracker, and turns
// failure modes into typed errors instead of panics.
package transport

import (
	"errors"
	"fmt"
	"time"

	"gitstore/internal/ratelimit"
)

// ErrAuthRequired signals that the provider rejected the request for
// lack of credentials and the user should sign in.
var ErrAuthRequired = errors.New("authentication required")

// RateLimitError means the provider's quota is exhausted. It carries the
// snapshot so callers can tell the user when to retry.
type RateLimitError struct {
	Snapshot ratelimit.Snapshot
}

func (e *RateLimitError) Error() string {
	wait := e.Snapshot.TimeUntilReset(time.Now()).Round(time.Second)
	return fmt.Sprintf("%s rate limit exhausted, resets in %s", e.Snapshot.Provider, wait)
}

// HTTPError is any non-success status that is not a rate-limit or auth
// condition.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected response: %s", e.Status)
}

// DecodeError wraps a body that could not be parsed into the expected
// shape.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding response body: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
