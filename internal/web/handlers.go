package web

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/justestif/spotify-playlist-updater/internal/updater"
)

// maxBodyBytes bounds the request body; 1 MiB holds tens of thousands of track IDs.
const maxBodyBytes = 1 << 20

// Updater runs one playlist update.
type Updater interface {
	Handle(ctx context.Context, ev updater.Event) (updater.Response, error)
}

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	updater Updater
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(u Updater) *Handlers {
	return &Handlers{updater: u}
}

type updateRequest struct {
	TrackIDs []string `json:"track_ids"`
}

// UpdatePlaylist replaces a playlist's tracks (POST /playlists/{playlistID}/tracks).
func (h *Handlers) UpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, updater.ResponseBody{Message: "invalid request body"})
		return
	}

	resp, err := h.updater.Handle(r.Context(), updater.Event{
		PlaylistID: chi.URLParam(r, "playlistID"),
		TrackIDs:   req.TrackIDs,
	})
	if err != nil {
		log.FromContext(r.Context()).Error("update failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, updater.ResponseBody{Message: "internal error"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write([]byte(resp.Body))
}

// Health reports that the server is up (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, updater.ResponseBody{Message: "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body updater.ResponseBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
