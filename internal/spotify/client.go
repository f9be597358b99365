// Package spotify provides playlist lookup and batched track upload on top of
// the Spotify Web API.
package spotify

import (
	"context"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/spotify-playlist-updater/internal/retry"
)

// API is the subset of *spotify.Client used by this package.
type API interface {
	CurrentUsersPlaylists(ctx context.Context, opts ...spotify.RequestOption) (*spotify.SimplePlaylistPage, error)
	ReplacePlaylistItems(ctx context.Context, playlistID spotify.ID, items ...spotify.URI) (string, error)
	AddTracksToPlaylist(ctx context.Context, playlistID spotify.ID, trackIDs ...spotify.ID) (string, error)
}

var _ API = (*spotify.Client)(nil)

// Client wraps the Spotify API client with playlist operations.
// Every remote call goes through the retry executor.
type Client struct {
	api  API
	exec *retry.Executor
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api API, exec *retry.Executor) *Client {
	if exec == nil {
		exec = retry.New()
	}
	return &Client{api: api, exec: exec}
}

// Uploader returns an Uploader sharing this client's API and executor.
func (c *Client) Uploader(opts ...UploaderOption) *Uploader {
	return NewUploader(c.api, c.exec, opts...)
}

// classify maps an API call outcome onto a retry.Result.
func classify[T any](v T, err error) retry.Result[T] {
	return retry.Classify(v, err, RetryAfter)
}
