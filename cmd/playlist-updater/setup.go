package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/justestif/spotify-playlist-updater/internal/config"
	"github.com/justestif/spotify-playlist-updater/internal/credentials"
	"github.com/justestif/spotify-playlist-updater/internal/logging"
	"github.com/justestif/spotify-playlist-updater/internal/spotify"
	"github.com/justestif/spotify-playlist-updater/internal/updater"
)

type app struct {
	updater *updater.Updater
	logger  *log.Logger
	close   func()
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	log.SetDefault(logger)

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	u := updater.New(store,
		updater.WithLogger(logger),
		updater.WithClientFactory(updater.NewClientFactory(updater.Endpoints{
			TokenURL: cfg.TokenURL,
			APIURL:   cfg.APIURL,
		})),
		updater.WithMaxRetries(cfg.MaxRetries),
		updater.WithUploaderOptions(spotify.WithTolerateReplaceServerError(cfg.TolerateReplaceServerError)),
	)

	return &app{updater: u, logger: logger, close: closeStore}, nil
}

// openStore opens the credential store selected by cfg.Backend. The returned
// func releases its resources.
func openStore(ctx context.Context, cfg *config.Config) (credentials.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendSecretsManager:
		store, err := credentials.OpenSecretsManager(ctx, cfg.Region, cfg.SecretName)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil

	case config.BackendPostgres:
		store, err := credentials.OpenPostgres(ctx, cfg.DatabaseURL, cfg.SecretName)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil

	case config.BackendFile:
		if cfg.CredentialsFile != "" {
			return credentials.NewFileStore(cfg.CredentialsFile), func() {}, nil
		}
		store, err := credentials.DefaultFileStore()
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown credential backend %q", cfg.Backend)
}
