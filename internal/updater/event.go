package updater

import (
	"github.com/goccy/go-json"
)

// Event is the invocation input.
type Event struct {
	PlaylistID string   `json:"playlist_id"`
	TrackIDs   []string `json:"track_ids"`
}

// UnmarshalJSON accepts both the current keys and the older
// spotify_playlist_id / spotify_track_ids keys.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw struct {
		PlaylistID       string   `json:"playlist_id"`
		TrackIDs         []string `json:"track_ids"`
		LegacyPlaylistID string   `json:"spotify_playlist_id"`
		LegacyTrackIDs   []string `json:"spotify_track_ids"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.PlaylistID = raw.PlaylistID
	if e.PlaylistID == "" {
		e.PlaylistID = raw.LegacyPlaylistID
	}
	e.TrackIDs = raw.TrackIDs
	if e.TrackIDs == nil {
		e.TrackIDs = raw.LegacyTrackIDs
	}
	return nil
}

// Response is the invocation output. Body holds a JSON-encoded ResponseBody.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// ResponseBody is the decoded form of Response.Body.
type ResponseBody struct {
	Message    string `json:"message"`
	SnapshotID string `json:"snapshot_id,omitempty"`
}

func newResponse(status int, body ResponseBody) Response {
	data, err := json.Marshal(body)
	if err != nil {
		// ResponseBody only holds strings.
		panic(err)
	}
	return Response{StatusCode: status, Body: string(data)}
}
