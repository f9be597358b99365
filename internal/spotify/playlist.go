package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/justestif/spotify-playlist-updater/internal/retry"
)

// playlistPageSize is the maximum page size Spotify allows for /me/playlists.
const playlistPageSize = 50

// ErrPlaylistNotFound is returned when none of the user's playlists has the requested ID.
var ErrPlaylistNotFound = errors.New("playlist not found")

// Playlist is a playlist of the authenticated user.
type Playlist struct {
	ID         string
	Name       string
	SnapshotID string
}

// AuthError is a client-error response (bad request or unauthorized) received
// while looking up playlists. It is reported to the caller, never retried.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("spotify: %d %s", e.StatusCode, e.Message)
}

// Resolve finds the user's playlist with the given ID by scanning the
// current user's playlists in order. It returns ErrPlaylistNotFound when no
// playlist matches and *AuthError when Spotify rejects the credentials.
func (c *Client) Resolve(ctx context.Context, playlistID string) (Playlist, error) {
	offset := 0
	for {
		page, err := retry.Do(ctx, c.exec, func(ctx context.Context) retry.Result[*spotify.SimplePlaylistPage] {
			page, err := c.api.CurrentUsersPlaylists(ctx, spotify.Limit(playlistPageSize), spotify.Offset(offset))
			return classify(page, err)
		})
		if err != nil {
			if authErr := asAuthError(err); authErr != nil {
				return Playlist{}, authErr
			}
			return Playlist{}, fmt.Errorf("fetching playlists (offset %d): %w", offset, err)
		}

		for _, pl := range page.Playlists {
			if pl.ID.String() == playlistID {
				return Playlist{
					ID:         pl.ID.String(),
					Name:       pl.Name,
					SnapshotID: pl.SnapshotID,
				}, nil
			}
		}

		offset += len(page.Playlists)
		if len(page.Playlists) == 0 || offset >= int(page.Total) {
			return Playlist{}, ErrPlaylistNotFound
		}
	}
}

// asAuthError extracts a 400/401 from either the Web API or the token endpoint.
func asAuthError(err error) *AuthError {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}

	var st *StatusError
	if errors.As(err, &st) && isClientAuthStatus(st.StatusCode) {
		return &AuthError{StatusCode: st.StatusCode, Message: st.Message}
	}

	var se spotify.Error
	if errors.As(err, &se) && isClientAuthStatus(se.Status) {
		return &AuthError{StatusCode: se.Status, Message: se.Message}
	}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil && isClientAuthStatus(re.Response.StatusCode) {
		msg := re.ErrorDescription
		if msg == "" {
			msg = re.ErrorCode
		}
		if msg == "" {
			msg = http.StatusText(re.Response.StatusCode)
		}
		return &AuthError{StatusCode: re.Response.StatusCode, Message: msg}
	}

	return nil
}

func isClientAuthStatus(code int) bool {
	return code == http.StatusBadRequest || code == http.StatusUnauthorized
}
