// Package web serves the playlist updater over HTTP for local runs.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	// DefaultAddr is the default server address.
	DefaultAddr = "127.0.0.1:8080"

	// writeTimeout covers a full upload including rate-limit waits.
	writeTimeout = 15 * time.Minute

	shutdownGrace = 30 * time.Second
)

// ServerConfig configures NewServer. Updater is required.
type ServerConfig struct {
	Addr    string
	Updater Updater
	Logger  *log.Logger
}

// Server exposes an Updater over HTTP.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	logger   *log.Logger
}

// NewServer wires the routes and middleware. Addr and Logger default to
// DefaultAddr and the default logger.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	s := &Server{
		router:   chi.NewRouter(),
		handlers: NewHandlers(cfg.Updater),
		logger:   cfg.Logger,
	}
	s.routes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger:  s.logger.StandardLog(),
			NoColor: true,
		}),
		middleware.Recoverer,
		s.withLogger,
	)

	s.router.Get("/healthz", s.handlers.Health)
	s.router.Post("/playlists/{playlistID}/tracks", s.handlers.UpdatePlaylist)
}

// withLogger tags the context logger with the chi request id.
func (s *Server) withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := s.logger.With("request_id", middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(log.WithContext(r.Context(), logger)))
	})
}

// ListenAndServe serves until ctx is cancelled or SIGINT/SIGTERM arrives,
// then drains in-flight updates for up to shutdownGrace.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", "http://"+s.server.Addr)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("draining", "grace", shutdownGrace)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("stopped")
	return nil
}
