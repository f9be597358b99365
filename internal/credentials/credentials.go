// Package credentials persists the Spotify OAuth credential blob.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

var (
	// ErrSecretUnavailable is returned when the credential blob cannot be read or parsed.
	ErrSecretUnavailable = errors.New("secret unavailable")

	// ErrSecretWriteFailed is returned when the credential blob cannot be written back.
	ErrSecretWriteFailed = errors.New("secret write failed")
)

// Credentials is the JSON record kept in secret storage.
// It is the only state carried between invocations.
type Credentials struct {
	ClientID        string `json:"client_id"`
	ClientSecret    string `json:"client_secret"`
	AccessToken     string `json:"access_token"`
	RefreshToken    string `json:"refresh_token"`
	UserID          string `json:"user_id"`
	TokenExpiration int64  `json:"token_expiration"` // epoch seconds
}

// Rotate replaces the access token and its absolute expiry.
// The two fields are never updated independently.
func (c *Credentials) Rotate(accessToken string, expiresAt int64) {
	c.AccessToken = accessToken
	c.TokenExpiration = expiresAt
}

// Clone returns a copy that can be handed to a store without aliasing.
func (c *Credentials) Clone() *Credentials {
	cp := *c
	return &cp
}

// Store reads and overwrites the credential blob.
// Writes replace the whole blob; there is no optimistic concurrency, so
// concurrent writers race and the last one wins.
type Store interface {
	Get(ctx context.Context) (*Credentials, error)
	Put(ctx context.Context, creds *Credentials) error
}

// Decode parses a credential blob.
func Decode(data []byte) (*Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("%w: parsing credentials: %w", ErrSecretUnavailable, err)
	}
	if err := creds.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSecretUnavailable, err)
	}
	return &creds, nil
}

// Encode serializes a credential blob.
func Encode(creds *Credentials) ([]byte, error) {
	if creds == nil {
		return nil, errors.New("cannot encode nil credentials")
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("encoding credentials: %w", err)
	}
	return data, nil
}

func (c *Credentials) validate() error {
	switch {
	case c.ClientID == "":
		return errors.New("client_id is empty")
	case c.ClientSecret == "":
		return errors.New("client_secret is empty")
	case c.RefreshToken == "":
		return errors.New("refresh_token is empty")
	}
	return nil
}
