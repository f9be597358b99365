// Package auth builds an authenticated HTTP client for the Spotify Web API
// and persists access tokens the client rotates.
package auth

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/justestif/spotify-playlist-updater/internal/credentials"
)

// ErrNoRefreshToken is returned when the stored credentials cannot be refreshed.
var ErrNoRefreshToken = errors.New("credentials have no refresh token")

// Rotator is told about every new access token the client obtains.
// It is called synchronously before the token is used; an error aborts the request.
type Rotator interface {
	OnRotate(ctx context.Context, accessToken string, lifetime int64) error
}

// Options configures NewHTTPClient.
type Options struct {
	// TokenURL overrides the Spotify accounts token endpoint.
	TokenURL string
	// RefreshClient is used to call the token endpoint.
	RefreshClient *http.Client
	// Base is the transport API requests go through after authorization.
	Base http.RoundTripper
	// Now overrides the clock used to compute token lifetimes.
	Now func() time.Time
}

// NewHTTPClient returns an HTTP client that authorizes requests with the
// stored access token, refreshes it with the refresh token when it expires,
// and reports each new token to rotator.
func NewHTTPClient(ctx context.Context, creds *credentials.Credentials, rotator Rotator, opts Options) (*http.Client, error) {
	if creds.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	tokenURL := opts.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if opts.RefreshClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.RefreshClient)
	}

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   spotifyauth.AuthURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	src := &rotatingTokenSource{
		ctx:     ctx,
		base:    conf.TokenSource(ctx, Token(creds)),
		rotator: rotator,
		now:     now,
		last:    creds.AccessToken,
	}

	return &http.Client{
		Transport: &oauth2.Transport{Source: src, Base: opts.Base},
	}, nil
}

// Token converts stored credentials to an oauth2 token.
// An unknown expiry is treated as already expired so the first request
// refreshes and a real expiry gets persisted.
func Token(creds *credentials.Credentials) *oauth2.Token {
	expiry := time.Unix(0, 0)
	if creds.TokenExpiration > 0 {
		expiry = time.Unix(creds.TokenExpiration, 0)
	}
	return &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       expiry,
	}
}

// rotatingTokenSource calls the rotator whenever the wrapped source yields an
// access token it has not seen before.
type rotatingTokenSource struct {
	ctx     context.Context
	base    oauth2.TokenSource
	rotator Rotator
	now     func() time.Time

	mu   sync.Mutex
	last string
}

func (s *rotatingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == s.last {
		return tok, nil
	}

	if err := s.rotator.OnRotate(s.ctx, tok.AccessToken, lifetime(tok, s.now())); err != nil {
		return nil, err
	}
	s.last = tok.AccessToken
	return tok, nil
}

// lifetime returns the token lifetime in whole seconds as reported by the
// token endpoint, falling back to the time left until its expiry.
func lifetime(tok *oauth2.Token, now time.Time) int64 {
	if tok.ExpiresIn > 0 {
		return tok.ExpiresIn
	}
	if tok.Expiry.IsZero() {
		return 0
	}
	return max(int64(tok.Expiry.Sub(now)/time.Second), 0)
}
