// Package appstate holds the client-wide runtime state: which providers
// are signed in, the shared rate-limit tracker, and an event stream for
// conditions the UI layer should surface.
package appstate

import (
	"sync"

	"gitstore/internal/auth"
	"gitstore/internal/log"
	"gitstore/internal/model"
	"gitstore/internal/ratelimit"
)

type EventKind string

const (
	EventRateLimited  EventKind = "rate_limited"
	EventAuthRequired EventKind = "auth_required"
	EventSignedIn     EventKind = "signed_in"
	EventSignedOut    EventKind = "signed_out"
)

// Event is a state change worth telling the user about.
type Event struct {
	Kind     EventKind
	Provider model.Provider
	Snapshot ratelimit.Snapshot // set for EventRateLimited
}

// Manager watches the per-provider sessions and republishes their
// lifecycle, alongside rate-limit and auth signals from the discovery
// pipelines. It implements discovery.Notifier.
type Manager struct {
	tracker  *ratelimit.Tracker
	sessions map[model.Provider]*auth.Session

	mu     sync.RWMutex
	authed map[model.Provider]bool

	events chan Event
	stops  []func()
}

func NewManager(tracker *ratelimit.Tracker, sessions ...*auth.Session) *Manager {
	m := &Manager{
		tracker:  tracker,
		sessions: make(map[model.Provider]*auth.Session, len(sessions)),
		authed:   make(map[model.Provider]bool, len(sessions)),
		events:   make(chan Event, 32),
	}
	for _, s := range sessions {
		m.sessions[s.Provider()] = s
	}
	return m
}

// Start subscribes to every session's token stream. Call Close when
// done.
func (m *Manager) Start() {
	for provider, session := range m.sessions {
		ch, cancel := session.Changes()
		m.stops = append(m.stops, cancel)

		// The subscription replays the current token first; that
		// initial delivery seeds the flag without raising an event.
		tok := <-ch
		m.mu.Lock()
		m.authed[provider] = tok != nil
		m.mu.Unlock()

		go m.watch(provider, ch)
	}
}

func (m *Manager) watch(provider model.Provider, ch <-chan *model.Token) {
	for tok := range ch {
		signedIn := tok != nil

		m.mu.Lock()
		was := m.authed[provider]
		m.authed[provider] = signedIn
		m.mu.Unlock()
		if was == signedIn {
			continue
		}

		if signedIn {
			// Authenticated quotas are far larger; stale anonymous
			// exhaustion must not keep blocking requests.
			m.tracker.Clear(provider)
			log.Info("signed in", "provider", provider)
			m.publish(Event{Kind: EventSignedIn, Provider: provider})
		} else {
			log.Info("signed out", "provider", provider)
			m.publish(Event{Kind: EventSignedOut, Provider: provider})
		}
	}
}

func (m *Manager) Close() {
	for _, stop := range m.stops {
		stop()
	}
}

// Events returns the stream of state changes. The channel is never
// closed; drain it from a single goroutine.
func (m *Manager) Events() <-chan Event {
	return m.events
}

func (m *Manager) Authenticated(provider model.Provider) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authed[provider]
}

func (m *Manager) Session(provider model.Provider) *auth.Session {
	return m.sessions[provider]
}

func (m *Manager) Tracker() *ratelimit.Tracker {
	return m.tracker
}

// RateLimited records the snapshot and raises an event.
func (m *Manager) RateLimited(provider model.Provider, s ratelimit.Snapshot) {
	if s.Provider != "" {
		m.tracker.Record(s)
	}
	m.publish(Event{Kind: EventRateLimited, Provider: provider, Snapshot: s})
}

// AuthRequired raises a sign-in prompt event.
func (m *Manager) AuthRequired(provider model.Provider) {
	m.publish(Event{Kind: EventAuthRequired, Provider: provider})
}

func (m *Manager) publish(e Event) {
	select {
	case m.events <- e:
	default:
		// A full buffer drops the oldest concern on the floor rather
		// than stalling a pipeline.
	}
}
