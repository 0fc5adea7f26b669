// Package ratelimit tracks provider rate-limit state parsed from API
// response headers and answers whether requests should be held back.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"gitstore/internal/model"
)

// Snapshot is the rate-limit state reported by a single API response.
type Snapshot struct {
	Provider  model.Provider
	Limit     int
	Remaining int
	ResetAt   time.Time
	Resource  string
}

// Exhausted reports whether the quota is spent and the reset time is
// still in the future. A reset in the past means the window has already
// rolled over and requests may proceed.
func (s Snapshot) Exhausted(now time.Time) bool {
	return s.Remaining == 0 && s.ResetAt.After(now)
}

// TimeUntilReset returns how long until the quota window resets, never
// negative.
func (s Snapshot) TimeUntilReset(now time.Time) time.Duration {
	d := s.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// FromHeaders parses rate-limit headers for the given provider. GitHub
// uses the X-RateLimit-* family, GitLab the unprefixed RateLimit-*
// family. Returns false when the required headers are absent or
// malformed.
func FromHeaders(h http.Header, provider model.Provider) (Snapshot, bool) {
	var limitKey, remainingKey, resetKey string
	switch provider {
	case model.ProviderGitLab:
		limitKey, remainingKey, resetKey = "RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset"
	default:
		limitKey, remainingKey, resetKey = "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"
	}

	limit, okL := headerInt(h, limitKey)
	remaining, okR := headerInt(h, remainingKey)
	resetUnix, okT := headerInt64(h, resetKey)
	if !okL || !okR || !okT {
		return Snapshot{}, false
	}

	return Snapshot{
		Provider:  provider,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   time.Unix(resetUnix, 0),
		Resource:  h.Get("X-RateLimit-Resource"),
	}, true
}

func headerInt(h http.Header, key string) (int, bool) {
	v, ok := headerInt64(h, key)
	return int(v), ok
}

func headerInt64(h http.Header, key string) (int64, bool) {
	raw := h.Get(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Tracker holds the latest rate-limit snapshot per provider. It is safe
// for concurrent use by the transports feeding it and the callers
// consulting it.
type Tracker struct {
	mu     sync.RWMutex
	latest map[model.Provider]Snapshot
}

func NewTracker() *Tracker {
	return &Tracker{latest: make(map[model.Provider]Snapshot)}
}

// Record stores the snapshot as the latest state for its provider.
func (t *Tracker) Record(s Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest[s.Provider] = s
}

// RecordHeaders parses and records rate-limit headers in one step.
// Responses without rate-limit headers leave the stored state untouched.
func (t *Tracker) RecordHeaders(provider model.Provider, h http.Header) (Snapshot, bool) {
	s, ok := FromHeaders(h, provider)
	if !ok {
		return Snapshot{}, false
	}
	t.Record(s)
	return s, true
}

// IsBlocked reports whether the provider's quota is currently exhausted.
// Unknown providers are never blocked.
func (t *Tracker) IsBlocked(provider model.Provider) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.latest[provider]
	return ok && s.Exhausted(time.Now())
}

// TimeUntilReset returns the wait until the provider's quota resets, or
// zero when the provider is not blocked.
func (t *Tracker) TimeUntilReset(provider model.Provider) time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.latest[provider]
	if !ok || !s.Exhausted(time.Now()) {
		return 0
	}
	return s.TimeUntilReset(time.Now())
}

// Current returns the latest snapshot recorded for the provider.
func (t *Tracker) Current(provider model.Provider) (Snapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.latest[provider]
	return s, ok
}

// Clear drops the stored state for a provider. Used after sign-in, since
// authenticated quotas are much larger than anonymous ones.
func (t *Tracker) Clear(provider model.Provider) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.latest, provider)
}
