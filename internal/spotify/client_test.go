package spotify

import (
	"context"
	"fmt"
	"time"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/spotify-playlist-updater/internal/retry"
)

type apiCall struct {
	op         string
	playlistID spotify.ID
	uris       []spotify.URI
}

// fakeAPI records calls and returns queued errors before succeeding.
type fakeAPI struct {
	playlists []spotify.SimplePlaylist
	pageSize  int

	listErrs    []error
	replaceErrs []error
	addErrs     []error

	calls       []apiCall
	listCalls   int
	pagesServed int
	version     int
}

func (f *fakeAPI) CurrentUsersPlaylists(_ context.Context, _ ...spotify.RequestOption) (*spotify.SimplePlaylistPage, error) {
	f.listCalls++
	if len(f.listErrs) > 0 {
		err := f.listErrs[0]
		f.listErrs = f.listErrs[1:]
		return nil, err
	}

	size := f.pageSize
	if size == 0 {
		size = playlistPageSize
	}
	start := min(f.pagesServed*size, len(f.playlists))
	end := min(start+size, len(f.playlists))
	f.pagesServed++

	page := &spotify.SimplePlaylistPage{Playlists: f.playlists[start:end]}
	page.Total = spotify.Numeric(len(f.playlists))
	return page, nil
}

func (f *fakeAPI) ReplacePlaylistItems(_ context.Context, playlistID spotify.ID, items ...spotify.URI) (string, error) {
	f.calls = append(f.calls, apiCall{op: "replace", playlistID: playlistID, uris: append([]spotify.URI{}, items...)})
	if len(f.replaceErrs) > 0 {
		err := f.replaceErrs[0]
		f.replaceErrs = f.replaceErrs[1:]
		return "", err
	}
	return f.nextSnapshot(), nil
}

func (f *fakeAPI) AddTracksToPlaylist(_ context.Context, playlistID spotify.ID, trackIDs ...spotify.ID) (string, error) {
	uris := make([]spotify.URI, len(trackIDs))
	for i, id := range trackIDs {
		uris[i] = spotify.URI(trackURIPrefix + string(id))
	}
	f.calls = append(f.calls, apiCall{op: "append", playlistID: playlistID, uris: uris})
	if len(f.addErrs) > 0 {
		err := f.addErrs[0]
		f.addErrs = f.addErrs[1:]
		return "", err
	}
	return f.nextSnapshot(), nil
}

func (f *fakeAPI) nextSnapshot() string {
	f.version++
	return fmt.Sprintf("snapshot-%d", f.version)
}

// instantExecutor records waits instead of sleeping.
func instantExecutor(waits *[]time.Duration) *retry.Executor {
	return retry.New(retry.WithSleeper(func(_ context.Context, d time.Duration) error {
		if waits != nil {
			*waits = append(*waits, d)
		}
		return nil
	}))
}

func simplePlaylist(id, name, snapshot string) spotify.SimplePlaylist {
	return spotify.SimplePlaylist{ID: spotify.ID(id), Name: name, SnapshotID: snapshot}
}
