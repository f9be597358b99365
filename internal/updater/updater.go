// Package updater handles one playlist update invocation: it loads the stored
// credentials, resolves the target playlist and uploads the track list.
package updater

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	zspotify "github.com/zmb3/spotify/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/justestif/spotify-playlist-updater/internal/auth"
	"github.com/justestif/spotify-playlist-updater/internal/credentials"
	"github.com/justestif/spotify-playlist-updater/internal/retry"
	"github.com/justestif/spotify-playlist-updater/internal/spotify"
)

const tracerName = "github.com/justestif/spotify-playlist-updater/internal/updater"

// ClientFactory builds an authenticated Spotify API client from the stored
// credentials. rotator must be called for every access token the client obtains.
type ClientFactory func(ctx context.Context, creds *credentials.Credentials, rotator auth.Rotator) (spotify.API, error)

// Endpoints overrides the Spotify URLs. Empty fields keep the public endpoints.
type Endpoints struct {
	// TokenURL is the accounts service token endpoint.
	TokenURL string
	// APIURL is the Web API base URL, with a trailing slash.
	APIURL string
}

// NewClientFactory returns a ClientFactory for the Web API at ep. Requests go
// through spotify.ErrorTransport so rate limits and auth failures surface as
// typed errors.
func NewClientFactory(ep Endpoints) ClientFactory {
	return func(ctx context.Context, creds *credentials.Credentials, rotator auth.Rotator) (spotify.API, error) {
		httpClient, err := auth.NewHTTPClient(ctx, creds, rotator, auth.Options{
			TokenURL: ep.TokenURL,
			Base:     &spotify.ErrorTransport{},
		})
		if err != nil {
			return nil, fmt.Errorf("creating authenticated client: %w", err)
		}

		var opts []zspotify.ClientOption
		if ep.APIURL != "" {
			opts = append(opts, zspotify.WithBaseURL(ep.APIURL))
		}
		return zspotify.New(httpClient, opts...), nil
	}
}

// DefaultClientFactory talks to the public Spotify Web API.
var DefaultClientFactory = NewClientFactory(Endpoints{})

// Updater runs playlist update invocations.
type Updater struct {
	store      credentials.Store
	newClient  ClientFactory
	exec       *retry.Executor
	maxRetries int
	uploader   []spotify.UploaderOption
	logger     *log.Logger
	tracer     trace.Tracer
}

// Option configures an Updater.
type Option func(*Updater)

// WithClientFactory replaces DefaultClientFactory.
func WithClientFactory(f ClientFactory) Option {
	return func(u *Updater) { u.newClient = f }
}

// WithExecutor sets the retry executor used for every Spotify call.
func WithExecutor(exec *retry.Executor) Option {
	return func(u *Updater) { u.exec = exec }
}

// WithMaxRetries sets the rate-limit retry ceiling of the default executor.
// It has no effect together with WithExecutor.
func WithMaxRetries(n int) Option {
	return func(u *Updater) { u.maxRetries = n }
}

// WithUploaderOptions configures the batch uploader.
func WithUploaderOptions(opts ...spotify.UploaderOption) Option {
	return func(u *Updater) { u.uploader = append(u.uploader, opts...) }
}

// WithLogger sets the base logger.
func WithLogger(logger *log.Logger) Option {
	return func(u *Updater) { u.logger = logger }
}

// New creates an Updater reading and writing credentials through store.
func New(store credentials.Store, opts ...Option) *Updater {
	u := &Updater{
		store:      store,
		newClient:  DefaultClientFactory,
		maxRetries: retry.DefaultMaxRetries,
		logger:     log.Default(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.exec == nil {
		u.exec = retry.New(
			retry.WithMaxRetries(u.maxRetries),
			retry.WithObserver(func(attempt int, wait time.Duration) {
				u.logger.Warn("rate limited, waiting", "attempt", attempt, "wait", wait)
			}),
		)
	}
	return u
}

// Handle runs one invocation. Client errors are reported in the Response;
// anything else is returned as an error and fails the invocation.
func (u *Updater) Handle(ctx context.Context, ev Event) (Response, error) {
	logger := u.logger.With("invocation_id", invocationID(ctx), "playlist_id", ev.PlaylistID)
	ctx = log.WithContext(ctx, logger)

	if resp, ok := validate(ev); !ok {
		logger.Warn("rejected event", "message", resp.Body)
		return resp, nil
	}
	logger.Info("updating playlist", "tracks", len(ev.TrackIDs), "max_retries", u.exec.MaxRetries())

	creds, err := u.store.Get(ctx)
	if err != nil {
		return u.fail(ctx, fmt.Errorf("loading credentials: %w", err))
	}

	refresher := auth.NewRefresher(u.store, creds)
	api, err := u.newClient(ctx, creds, refresher)
	if err != nil {
		return u.fail(ctx, err)
	}
	client := spotify.New(api, u.exec)

	playlist, err := u.resolve(ctx, client, ev.PlaylistID)
	if err != nil {
		var authErr *spotify.AuthError
		switch {
		case errors.As(err, &authErr):
			logger.Warn("spotify rejected credentials", "status", authErr.StatusCode, "message", authErr.Message)
			return newResponse(authErr.StatusCode, ResponseBody{Message: authErr.Message}), nil
		case errors.Is(err, spotify.ErrPlaylistNotFound):
			logger.Warn("playlist not found")
			return newResponse(http.StatusBadRequest, ResponseBody{
				Message: fmt.Sprintf("could not find playlist with id %s", ev.PlaylistID),
			}), nil
		default:
			return u.fail(ctx, u.fatal(refresher, fmt.Errorf("resolving playlist: %w", err)))
		}
	}

	result, err := u.upload(ctx, client, playlist, ev.TrackIDs)
	if err != nil {
		return u.fail(ctx, u.fatal(refresher, fmt.Errorf("uploading tracks: %w", err)))
	}

	logger.Info("saved tracks",
		"tracks", result.Processed,
		"calls", result.Calls,
		"snapshot_id", result.SnapshotID,
		"suppressed_replace_error", result.SuppressedReplaceError != nil)

	return newResponse(http.StatusOK, ResponseBody{
		Message:    fmt.Sprintf("saved %d tracks to playlist %s", len(ev.TrackIDs), ev.PlaylistID),
		SnapshotID: result.SnapshotID,
	}), nil
}

func (u *Updater) resolve(ctx context.Context, client *spotify.Client, playlistID string) (spotify.Playlist, error) {
	ctx, span := u.tracer.Start(ctx, "updater.resolve", trace.WithAttributes(
		attribute.String("playlist.id", playlistID),
	))
	defer span.End()

	playlist, err := client.Resolve(ctx, playlistID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return playlist, err
}

func (u *Updater) upload(ctx context.Context, client *spotify.Client, playlist spotify.Playlist, trackIDs []string) (spotify.UploadResult, error) {
	ctx, span := u.tracer.Start(ctx, "updater.upload", trace.WithAttributes(
		attribute.String("playlist.id", playlist.ID),
		attribute.Int("tracks.total", len(trackIDs)),
	))
	defer span.End()

	result, err := client.Uploader(u.uploader...).Upload(ctx, playlist, trackIDs)
	span.SetAttributes(
		attribute.Int("tracks.processed", result.Processed),
		attribute.Int("calls", result.Calls),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

// fatal prefers the token persistence failure, if any, since it explains
// every later authentication failure.
func (u *Updater) fatal(refresher *auth.Refresher, err error) error {
	if rerr := refresher.Err(); rerr != nil && !errors.Is(err, credentials.ErrSecretWriteFailed) {
		return errors.Join(rerr, err)
	}
	return err
}

func (u *Updater) fail(ctx context.Context, err error) (Response, error) {
	log.FromContext(ctx).Error("invocation failed", "err", err)
	return Response{}, err
}

func validate(ev Event) (Response, bool) {
	if ev.PlaylistID == "" {
		return newResponse(http.StatusBadRequest, ResponseBody{Message: "missing playlist_id"}), false
	}
	for i, id := range ev.TrackIDs {
		if id == "" {
			return newResponse(http.StatusBadRequest, ResponseBody{
				Message: fmt.Sprintf("track_ids[%d] is empty", i),
			}), false
		}
	}
	return Response{}, true
}

func invocationID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}
