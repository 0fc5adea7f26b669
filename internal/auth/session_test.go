package auth

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitstore/internal/model"
)

type fakeRefresher struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context, tok *model.Token) (*model.Token, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	exp := time.Now().Add(2 * time.Hour)
	return &model.Token{
		AccessToken:  "fresh-" + tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    &exp,
		Provider:     tok.Provider,
	}, nil
}

func newTestSession(t *testing.T, provider model.Provider, r Refresher) *Session {
	t.Helper()
	store := NewFileStoreAt(filepath.Join(t.TempDir(), "tokens"))
	return NewSession(provider, store, r)
}

func expiringToken(provider model.Provider) *model.Token {
	exp := time.Now().Add(time.Minute) // inside the 5 minute leeway
	return &model.Token{
		AccessToken:  "stale",
		RefreshToken: "refresh-1",
		ExpiresAt:    &exp,
		Provider:     provider,
	}
}

func TestSessionLoadsPersistedToken(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tokens")
	store := NewFileStoreAt(dir)
	require.NoError(t, store.Save(&model.Token{AccessToken: "persisted", Provider: model.ProviderGitHub}))

	s := NewSession(model.ProviderGitHub, store, nil)
	require.NoError(t, s.Load(context.Background()))

	tok := s.Current()
	require.NotNil(t, tok)
	assert.Equal(t, "persisted", tok.AccessToken)
	assert.True(t, s.Authenticated())
}

func TestSessionReloadFromStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tokens")
	store := NewFileStoreAt(dir)

	s := NewSession(model.ProviderGitHub, store, nil)
	require.NoError(t, s.Load(context.Background()))
	assert.Nil(t, s.Current())

	// Another process signs in behind our back.
	require.NoError(t, store.Save(&model.Token{AccessToken: "external", Provider: model.ProviderGitHub}))

	require.NoError(t, s.ReloadFromStore())
	tok := s.Current()
	require.NotNil(t, tok)
	assert.Equal(t, "external", tok.AccessToken)
}

func TestSessionSaveAndClear(t *testing.T) {
	s := newTestSession(t, model.ProviderGitHub, nil)

	assert.Nil(t, s.Current())
	require.NoError(t, s.Save(&model.Token{AccessToken: "tok-1"}))

	tok := s.Current()
	require.NotNil(t, tok)
	assert.Equal(t, model.ProviderGitHub, tok.Provider, "session stamps its provider")
	assert.False(t, tok.CreatedAt.IsZero())

	require.NoError(t, s.Clear())
	assert.Nil(t, s.Current())
}

func TestSessionChangesReplaysCurrent(t *testing.T) {
	s := newTestSession(t, model.ProviderGitLab, nil)
	require.NoError(t, s.Save(&model.Token{AccessToken: "existing"}))

	ch, cancel := s.Changes()
	defer cancel()

	first := <-ch
	require.NotNil(t, first)
	assert.Equal(t, "existing", first.AccessToken)

	require.NoError(t, s.Clear())
	assert.Nil(t, <-ch)

	require.NoError(t, s.Save(&model.Token{AccessToken: "next"}))
	next := <-ch
	require.NotNil(t, next)
	assert.Equal(t, "next", next.AccessToken)
}

func TestSessionChangesCancelStopsDelivery(t *testing.T) {
	s := newTestSession(t, model.ProviderGitLab, nil)

	ch, cancel := s.Changes()
	assert.Nil(t, <-ch)
	cancel()

	require.NoError(t, s.Save(&model.Token{AccessToken: "after-cancel"}))
	select {
	case tok := <-ch:
		assert.Nil(t, tok, "no delivery expected after cancel")
	default:
	}
}

func TestRefreshIfNeededPassThrough(t *testing.T) {
	r := &fakeRefresher{}
	s := newTestSession(t, model.ProviderGitLab, r)

	exp := time.Now().Add(2 * time.Hour)
	require.NoError(t, s.Save(&model.Token{AccessToken: "valid", RefreshToken: "r", ExpiresAt: &exp}))

	tok, err := s.RefreshIfNeeded(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "valid", tok.AccessToken)
	assert.Equal(t, int32(0), r.calls.Load(), "token outside leeway is not refreshed")
}

func TestRefreshIfNeededNoExpiry(t *testing.T) {
	r := &fakeRefresher{}
	s := newTestSession(t, model.ProviderGitHub, r)
	require.NoError(t, s.Save(&model.Token{AccessToken: "gh-token"}))

	tok, err := s.RefreshIfNeeded(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gh-token", tok.AccessToken)
	assert.Equal(t, int32(0), r.calls.Load(), "tokens without expiry never refresh")
}

func TestRefreshIfNeededRefreshes(t *testing.T) {
	r := &fakeRefresher{}
	s := newTestSession(t, model.ProviderGitLab, r)
	require.NoError(t, s.Save(expiringToken(model.ProviderGitLab)))

	tok, err := s.RefreshIfNeeded(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-stale", tok.AccessToken)
	assert.Equal(t, int32(1), r.calls.Load())

	// persisted as well
	stored, err := s.store.Load(model.ProviderGitLab)
	require.NoError(t, err)
	assert.Equal(t, "fresh-stale", stored.AccessToken)
}

func TestRefreshIfNeededCoalescesConcurrentCallers(t *testing.T) {
	r := &fakeRefresher{delay: 50 * time.Millisecond}
	s := newTestSession(t, model.ProviderGitLab, r)
	require.NoError(t, s.Save(expiringToken(model.ProviderGitLab)))

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*model.Token, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := s.RefreshIfNeeded(context.Background())
			assert.NoError(t, err)
			results[i] = tok
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), r.calls.Load(), "concurrent callers share one refresh")
	for _, tok := range results {
		require.NotNil(t, tok)
		assert.Equal(t, "fresh-stale", tok.AccessToken)
	}
}

func TestRefreshFailureClearsSession(t *testing.T) {
	r := &fakeRefresher{err: assert.AnError}
	s := newTestSession(t, model.ProviderGitLab, r)
	require.NoError(t, s.Save(expiringToken(model.ProviderGitLab)))

	_, err := s.RefreshIfNeeded(context.Background())
	require.ErrorIs(t, err, ErrRefreshFailed)
	assert.Nil(t, s.Current(), "failed refresh signs the session out")
}

func TestRefreshWithoutRefreshTokenClearsSession(t *testing.T) {
	s := newTestSession(t, model.ProviderGitLab, &fakeRefresher{})

	exp := time.Now().Add(time.Minute)
	require.NoError(t, s.Save(&model.Token{AccessToken: "stale", ExpiresAt: &exp}))

	_, err := s.RefreshIfNeeded(context.Background())
	require.ErrorIs(t, err, ErrRefreshFailed)
	assert.Nil(t, s.Current())
}

func TestTokenSource(t *testing.T) {
	s := newTestSession(t, model.ProviderGitHub, nil)

	_, err := s.Token()
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, s.Save(&model.Token{AccessToken: "gh-token"}))
	ot, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "gh-token", ot.AccessToken)
	assert.Equal(t, "Bearer", ot.TokenType)
}
