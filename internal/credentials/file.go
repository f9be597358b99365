package credentials

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	configDirName       = "spotify-playlist-updater"
	credentialsFileName = "credentials.json"
)

// FileStore keeps the credential blob in a local file.
// It is meant for running the updater outside Lambda.
type FileStore struct {
	path string
}

// DefaultFileStore returns a FileStore using the default location:
// ~/.config/spotify-playlist-updater/credentials.json
func DefaultFileStore() (*FileStore, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("getting user config dir: %w", err)
	}

	path := filepath.Join(configDir, configDirName, credentialsFileName)
	return &FileStore{path: path}, nil
}

// NewFileStore creates a FileStore with a custom path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file path where credentials are stored.
func (s *FileStore) Path() string {
	return s.path
}

// Get reads the credential file.
// A missing file is an ErrSecretUnavailable error: there is no OAuth flow to fall back to.
func (s *FileStore) Get(_ context.Context) (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no credentials at %s", ErrSecretUnavailable, s.path)
		}
		return nil, fmt.Errorf("%w: reading credentials file: %w", ErrSecretUnavailable, err)
	}

	return Decode(data)
}

// Put writes the credentials to disk, creating the parent directory if needed.
func (s *FileStore) Put(_ context.Context, creds *Credentials) error {
	data, err := Encode(creds)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSecretWriteFailed, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("%w: creating config directory: %w", ErrSecretWriteFailed, err)
	}

	// Write to a sibling file and rename so a crash never leaves half a blob behind.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("%w: writing credentials file: %w", ErrSecretWriteFailed, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: replacing credentials file: %w", ErrSecretWriteFailed, err)
	}

	return nil
}
