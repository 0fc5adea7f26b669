package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitstore/internal/model"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStoreAt(filepath.Join(t.TempDir(), "tokens"))

	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	tok := &model.Token{
		AccessToken:  "glpat-abc",
		RefreshToken: "refresh-xyz",
		ExpiresAt:    &exp,
		Provider:     model.ProviderGitLab,
		CreatedAt:    time.Now().Truncate(time.Second),
	}
	require.NoError(t, store.Save(tok))

	got, err := store.Load(model.ProviderGitLab)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "glpat-abc", got.AccessToken)
	assert.Equal(t, "refresh-xyz", got.RefreshToken)
	require.NotNil(t, got.ExpiresAt)
	assert.Equal(t, exp.Unix(), got.ExpiresAt.Unix())
	assert.Equal(t, model.ProviderGitLab, got.Provider)
}

func TestFileStoreMissingToken(t *testing.T) {
	store := NewFileStoreAt(filepath.Join(t.TempDir(), "tokens"))

	got, err := store.Load(model.ProviderGitHub)
	require.NoError(t, err)
	assert.Nil(t, got, "missing token is signed-out state, not an error")
}

func TestFileStoreCorruptToken(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tokens")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "token_github.json"), []byte("{not json"), 0o600))

	store := NewFileStoreAt(dir)
	got, err := store.Load(model.ProviderGitHub)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStoreProvidersIsolated(t *testing.T) {
	store := NewFileStoreAt(filepath.Join(t.TempDir(), "tokens"))

	require.NoError(t, store.Save(&model.Token{AccessToken: "gh", Provider: model.ProviderGitHub}))
	require.NoError(t, store.Save(&model.Token{AccessToken: "gl", Provider: model.ProviderGitLab}))

	gh, err := store.Load(model.ProviderGitHub)
	require.NoError(t, err)
	assert.Equal(t, "gh", gh.AccessToken)

	require.NoError(t, store.Clear(model.ProviderGitHub))

	gh, err = store.Load(model.ProviderGitHub)
	require.NoError(t, err)
	assert.Nil(t, gh)

	gl, err := store.Load(model.ProviderGitLab)
	require.NoError(t, err)
	require.NotNil(t, gl)
	assert.Equal(t, "gl", gl.AccessToken)
}

func TestFileStoreClearIdempotent(t *testing.T) {
	store := NewFileStoreAt(filepath.Join(t.TempDir(), "tokens"))
	assert.NoError(t, store.Clear(model.ProviderGitLab))
	assert.NoError(t, store.Clear(model.ProviderGitLab))
}

func TestFileStorePermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tokens")
	store := NewFileStoreAt(dir)
	require.NoError(t, store.Save(&model.Token{AccessToken: "gh", Provider: model.ProviderGitHub}))

	info, err := os.Stat(filepath.Join(dir, "token_github.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
