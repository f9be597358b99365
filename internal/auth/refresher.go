package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/justestif/spotify-playlist-updater/internal/credentials"
)

// Refresher persists rotated access tokens to the credential store.
//
// Concurrent invocations that refresh at the same time each write their own
// blob and the last write wins; the store has no locking.
type Refresher struct {
	store credentials.Store
	now   func() time.Time

	mu    sync.Mutex
	creds *credentials.Credentials
	err   error
}

// NewRefresher returns a Refresher that owns creds for the rest of the invocation.
func NewRefresher(store credentials.Store, creds *credentials.Credentials) *Refresher {
	return &Refresher{store: store, creds: creds, now: time.Now}
}

// withClock overrides the wall clock.
func (r *Refresher) withClock(now func() time.Time) *Refresher {
	r.now = now
	return r
}

// OnRotate records a new access token that lives for lifetime seconds from
// now and writes the full credential set back to the store.
func (r *Refresher) OnRotate(ctx context.Context, accessToken string, lifetime int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	expiresAt := r.now().UTC().Unix() + lifetime
	r.creds.Rotate(accessToken, expiresAt)

	if err := r.store.Put(ctx, r.creds.Clone()); err != nil {
		r.err = fmt.Errorf("persisting rotated access token: %w", err)
		return r.err
	}

	log.FromContext(ctx).Info("persisted rotated access token",
		"expires_at", time.Unix(expiresAt, 0).UTC().Format(time.RFC3339))
	return nil
}

// Err returns the last persistence failure, if any.
func (r *Refresher) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
