// Package auth handles token persistence, session lifecycle and the
// OAuth device authorization flow for both providers.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gitstore/internal/log"
	"gitstore/internal/model"
)

// Store persists one token per provider. Load returns (nil, nil) when no
// token is stored, so callers can treat "signed out" as a plain state
// rather than an error.
type Store interface {
	Save(tok *model.Token) error
	Load(provider model.Provider) (*model.Token, error)
	Clear(provider model.Provider) error
}

// FileStore keeps tokens as JSON files in a private directory, one file
// per provider.
type FileStore struct {
	dir string
}

// NewFileStore places the token directory under the user config dir.
func NewFileStore() (*FileStore, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("locating config directory: %w", err)
	}
	return NewFileStoreAt(filepath.Join(base, "gitstore", "tokens")), nil
}

// NewFileStoreAt uses an explicit directory. Tests point this at a temp
// dir.
func NewFileStoreAt(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(provider model.Provider) string {
	return filepath.Join(s.dir, fmt.Sprintf("token_%s.json", provider))
}

func (s *FileStore) Save(tok *model.Token) error {
	if tok == nil || tok.Provider == "" {
		return errors.New("token has no provider")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	tmp := s.path(tok.Provider) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmp, s.path(tok.Provider)); err != nil {
		return fmt.Errorf("replacing token file: %w", err)
	}
	return nil
}

func (s *FileStore) Load(provider model.Provider) (*model.Token, error) {
	data, err := os.ReadFile(s.path(provider))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	var tok model.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		// A corrupt file is treated as signed out rather than a hard
		// failure, so a bad write can't wedge the whole client.
		log.Warn("discarding unreadable token file", "provider", provider, "error", err)
		return nil, nil
	}
	if tok.AccessToken == "" {
		return nil, nil
	}
	tok.Provider = provider
	return &tok, nil
}

func (s *FileStore) Clear(provider model.Provider) error {
	err := os.Remove(s.path(provider))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing token file: %w", err)
	}
	return nil
}
