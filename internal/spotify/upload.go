package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"github.com/zmb3/spotify/v2"

	"github.com/justestif/spotify-playlist-updater/internal/retry"
)

// MaxItemsPerRequest is the number of tracks sent in one replace or append call.
const MaxItemsPerRequest = 50

// UploadResult describes a completed upload.
type UploadResult struct {
	// SnapshotID is the playlist version reported by the last successful call.
	SnapshotID string
	// Processed is the number of tracks sent. It equals the input length.
	Processed int
	// Calls is the number of replace and append calls made, not counting retries.
	Calls int
	// SuppressedReplaceError is set when a 500 on the replace call was tolerated.
	SuppressedReplaceError error
}

// Uploader writes a track list to a playlist: the first batch replaces the
// playlist's contents and the remaining batches are appended in order.
type Uploader struct {
	api       API
	exec      *retry.Executor
	batchSize int

	tolerateReplaceServerError bool
}

// UploaderOption configures an Uploader.
type UploaderOption func(*Uploader)

// withBatchSize overrides MaxItemsPerRequest. Values below 1 are ignored.
func withBatchSize(n int) UploaderOption {
	return func(u *Uploader) {
		if n > 0 {
			u.batchSize = n
		}
	}
}

// WithTolerateReplaceServerError makes a 500 on the replace call a logged
// warning instead of a failure. Off by default.
func WithTolerateReplaceServerError(tolerate bool) UploaderOption {
	return func(u *Uploader) { u.tolerateReplaceServerError = tolerate }
}

// NewUploader creates an Uploader.
func NewUploader(api API, exec *retry.Executor, opts ...UploaderOption) *Uploader {
	if exec == nil {
		exec = retry.New()
	}
	u := &Uploader{api: api, exec: exec, batchSize: MaxItemsPerRequest}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Upload replaces the playlist's tracks with trackIDs.
// An empty list still issues one replace call, which clears the playlist.
// Calls are sequential; each one, including its retries, completes before the next starts.
func (u *Uploader) Upload(ctx context.Context, playlist Playlist, ids []string) (UploadResult, error) {
	logger := log.FromContext(ctx).With("playlist_id", playlist.ID)

	uris := TrackURIs(ids)
	total := len(uris)

	first := []spotify.URI{}
	var rest [][]spotify.URI
	if total > 0 {
		batches := lo.Chunk(uris, u.batchSize)
		first, rest = batches[0], batches[1:]
	}

	result := UploadResult{SnapshotID: playlist.SnapshotID}

	snapshot, err := retry.Do(ctx, u.exec, func(ctx context.Context) retry.Result[string] {
		snapshot, err := u.api.ReplacePlaylistItems(ctx, spotify.ID(playlist.ID), first...)
		return classify(snapshot, err)
	})
	result.Calls++
	switch {
	case err == nil:
		result.SnapshotID = lo.CoalesceOrEmpty(snapshot, result.SnapshotID)
	case u.tolerateReplaceServerError && isInternalServerError(err):
		logger.Warn("tolerating server error on replace", "tracks", len(first), "err", err)
		result.SuppressedReplaceError = err
	default:
		return result, fmt.Errorf("replacing playlist tracks (1-%d): %w", len(first), err)
	}
	result.Processed = len(first)
	logger.Debug("replaced playlist tracks", "tracks", len(first), "snapshot_id", result.SnapshotID)

	for _, batch := range rest {
		start := result.Processed + 1
		end := result.Processed + len(batch)
		batchIDs := trackIDs(batch)

		snapshot, err := retry.Do(ctx, u.exec, func(ctx context.Context) retry.Result[string] {
			snapshot, err := u.api.AddTracksToPlaylist(ctx, spotify.ID(playlist.ID), batchIDs...)
			return classify(snapshot, err)
		})
		result.Calls++
		if err != nil {
			return result, fmt.Errorf("adding tracks (batch %d-%d): %w", start, end, err)
		}

		result.SnapshotID = lo.CoalesceOrEmpty(snapshot, result.SnapshotID)
		result.Processed = end
		logger.Debug("appended playlist tracks", "from", start, "to", end, "snapshot_id", result.SnapshotID)
	}

	if result.Processed != total {
		return result, fmt.Errorf("processed %d of %d tracks", result.Processed, total)
	}
	return result, nil
}

func isInternalServerError(err error) bool {
	var st *StatusError
	if errors.As(err, &st) {
		return st.StatusCode == http.StatusInternalServerError
	}
	var se spotify.Error
	return errors.As(err, &se) && se.Status == http.StatusInternalServerError
}
