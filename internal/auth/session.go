package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"gitstore/internal/log"
	"gitstore/internal/model"
)

// ErrNoToken is returned by Token when the session has no credentials.
var ErrNoToken = errors.New("not signed in")

// ErrRefreshFailed wraps a failed token refresh. The session clears its
// credentials when this happens, so the caller should re-authenticate.
var ErrRefreshFailed = errors.New("token refresh failed")

// Refresher exchanges a refresh token for a new token. GitLab implements
// this with the OAuth refresh_token grant; GitHub device-flow tokens do
// not expire and never need one.
type Refresher interface {
	Refresh(ctx context.Context, tok *model.Token) (*model.Token, error)
}

// Session holds the in-memory token for one provider, backed by a Store.
// It loads persisted credentials lazily, publishes changes to
// subscribers, and coalesces concurrent refresh attempts so only one
// network refresh runs at a time.
type Session struct {
	provider  model.Provider
	store     Store
	refresher Refresher

	loadOnce sync.Once
	ready    chan struct{}

	mu      sync.RWMutex
	current *model.Token

	refreshMu sync.Mutex

	subMu sync.Mutex
	subs  map[int]chan *model.Token
	nextS int
}

func NewSession(provider model.Provider, store Store, refresher Refresher) *Session {
	return &Session{
		provider:  provider,
		store:     store,
		refresher: refresher,
		ready:     make(chan struct{}),
		subs:      make(map[int]chan *model.Token),
	}
}

// Load reads the persisted token into memory. Safe to call repeatedly;
// only the first call touches the store. Every other accessor waits for
// this to complete, so callers may fire it from a goroutine at startup.
func (s *Session) Load(ctx context.Context) error {
	var loadErr error
	s.loadOnce.Do(func() {
		defer close(s.ready)
		tok, err := s.store.Load(s.provider)
		if err != nil {
			loadErr = fmt.Errorf("loading %s token: %w", s.provider, err)
			return
		}
		s.mu.Lock()
		s.current = tok
		s.mu.Unlock()
	})
	return loadErr
}

func (s *Session) awaitLoad() {
	// Callers that never ran Load still need a consistent view.
	_ = s.Load(context.Background())
	<-s.ready
}

// ReloadFromStore re-reads the persisted token, replacing the in-memory
// one and notifying subscribers. Useful when another process may have
// signed in or out. Waits for the initial Load to finish first.
func (s *Session) ReloadFromStore() error {
	s.awaitLoad()
	tok, err := s.store.Load(s.provider)
	if err != nil {
		return fmt.Errorf("reloading %s token: %w", s.provider, err)
	}
	s.set(tok)
	return nil
}

// Provider returns the provider this session authenticates against.
func (s *Session) Provider() model.Provider {
	return s.provider
}

// Current returns the token held in memory, or nil when signed out.
func (s *Session) Current() *model.Token {
	s.awaitLoad()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Authenticated reports whether the session holds a token.
func (s *Session) Authenticated() bool {
	return s.Current() != nil
}

// Save persists the token and makes it the current one.
func (s *Session) Save(tok *model.Token) error {
	s.awaitLoad()
	if tok == nil {
		return errors.New("nil token")
	}
	tok.Provider = s.provider
	if tok.CreatedAt.IsZero() {
		tok.CreatedAt = time.Now()
	}
	if err := s.store.Save(tok); err != nil {
		return err
	}
	s.set(tok)
	return nil
}

// Clear signs the session out, removing both the persisted and the
// in-memory token.
func (s *Session) Clear() error {
	s.awaitLoad()
	if err := s.store.Clear(s.provider); err != nil {
		return err
	}
	s.set(nil)
	return nil
}

func (s *Session) set(tok *model.Token) {
	s.mu.Lock()
	s.current = tok
	s.mu.Unlock()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- tok:
		default:
			// A subscriber that stopped draining loses updates rather
			// than stalling the session.
		}
	}
}

// Changes returns a channel that first replays the current token and
// then delivers every subsequent sign-in or sign-out. The returned
// cancel func unsubscribes and must be called when done.
func (s *Session) Changes() (<-chan *model.Token, func()) {
	s.awaitLoad()

	ch := make(chan *model.Token, 16)

	s.subMu.Lock()
	id := s.nextS
	s.nextS++
	s.subs[id] = ch
	s.subMu.Unlock()

	s.mu.RLock()
	ch <- s.current
	s.mu.RUnlock()

	cancel := func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
	return ch, cancel
}

// RefreshIfNeeded returns a token that is valid for at least the expiry
// leeway, refreshing it first when necessary. Concurrent callers share a
// single refresh. A failed refresh clears the session so stale
// credentials are not retried forever.
func (s *Session) RefreshIfNeeded(ctx context.Context) (*model.Token, error) {
	s.awaitLoad()

	tok := s.Current()
	if tok == nil {
		return nil, nil
	}
	if !tok.ExpiringSoon(time.Now()) {
		return tok, nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// Another caller may have finished the refresh while we waited.
	tok = s.Current()
	if tok == nil || !tok.ExpiringSoon(time.Now()) {
		return tok, nil
	}

	if s.refresher == nil || tok.RefreshToken == "" {
		if err := s.Clear(); err != nil {
			log.Warn("clearing expired token", "provider", s.provider, "error", err)
		}
		return nil, fmt.Errorf("%w: no refresh token for %s", ErrRefreshFailed, s.provider)
	}

	log.Debug("refreshing token", "provider", s.provider)
	fresh, err := s.refresher.Refresh(ctx, tok)
	if err != nil {
		if clearErr := s.Clear(); clearErr != nil {
			log.Warn("clearing token after failed refresh", "provider", s.provider, "error", clearErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	if err := s.Save(fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// Token implements oauth2.TokenSource so a session can plug straight
// into HTTP transports. Returns ErrNoToken when signed out.
func (s *Session) Token() (*oauth2.Token, error) {
	tok, err := s.RefreshIfNeeded(context.Background())
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, ErrNoToken
	}
	ot := &oauth2.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    "Bearer",
	}
	if tok.ExpiresAt != nil {
		ot.Expiry = *tok.ExpiresAt
	}
	return ot, nil
}

var _ oauth2.TokenSource = (*Session)(nil)
