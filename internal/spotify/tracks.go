package spotify

import (
	"strings"

	"github.com/samber/lo"
	"github.com/zmb3/spotify/v2"
)

const trackURIPrefix = "spotify:track:"

// TrackURI converts a track ID to its spotify:track: URI.
// Values already in URI form are returned unchanged.
func TrackURI(id string) spotify.URI {
	if strings.HasPrefix(id, trackURIPrefix) {
		return spotify.URI(id)
	}
	return spotify.URI(trackURIPrefix + id)
}

// TrackURIs converts track IDs to URIs, preserving order.
func TrackURIs(ids []string) []spotify.URI {
	return lo.Map(ids, func(id string, _ int) spotify.URI { return TrackURI(id) })
}

func trackIDs(uris []spotify.URI) []spotify.ID {
	return lo.Map(uris, func(uri spotify.URI, _ int) spotify.ID {
		return spotify.ID(strings.TrimPrefix(string(uri), trackURIPrefix))
	})
}
