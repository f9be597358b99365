// Package config reads the updater's configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/justestif/spotify-playlist-updater/internal/retry"
)

// Credential backends.
const (
	BackendSecretsManager = "secretsmanager"
	BackendPostgres       = "postgres"
	BackendFile           = "file"
)

var (
	// ErrMissingSecretName is returned when SPOTIFY_ACCESS is not set for the secretsmanager backend.
	ErrMissingSecretName = errors.New("missing SPOTIFY_ACCESS environment variable")

	// ErrMissingRegion is returned when neither AWS_REGION nor AWS_DEFAULT_REGION is set.
	ErrMissingRegion = errors.New("missing AWS_REGION or AWS_DEFAULT_REGION environment variable")

	// ErrMissingDatabaseURL is returned when DATABASE_URL is not set for the postgres backend.
	ErrMissingDatabaseURL = errors.New("missing DATABASE_URL environment variable")
)

// Config holds the updater configuration.
type Config struct {
	// Backend selects where credentials are stored.
	Backend string
	// Region is the AWS region of the secret.
	Region string
	// SecretName names the credential blob: the Secrets Manager secret id or
	// the row name in the credentials table.
	SecretName string
	// DatabaseURL is the PostgreSQL connection string for the postgres backend.
	DatabaseURL string
	// CredentialsFile is the path for the file backend. Empty means the default location.
	CredentialsFile string

	// TokenURL and APIURL override the Spotify endpoints, e.g. for a proxy.
	// Empty means the public endpoints.
	TokenURL string
	APIURL   string

	// MaxRetries is the rate-limit retry ceiling per call.
	MaxRetries int
	// TolerateReplaceServerError downgrades a 500 on the replace call to a warning.
	TolerateReplaceServerError bool

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables, after loading a .env
// file from the working directory if one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Backend:         strings.ToLower(valueOr(getenv("CREDENTIAL_BACKEND"), BackendSecretsManager)),
		Region:          valueOr(getenv("AWS_REGION"), getenv("AWS_DEFAULT_REGION")),
		SecretName:      getenv("SPOTIFY_ACCESS"),
		DatabaseURL:     getenv("DATABASE_URL"),
		CredentialsFile: getenv("CREDENTIALS_FILE"),
		TokenURL:        getenv("SPOTIFY_TOKEN_URL"),
		APIURL:          withTrailingSlash(getenv("SPOTIFY_API_URL")),
		MaxRetries:      retry.DefaultMaxRetries,
		LogLevel:        valueOr(getenv("LOG_LEVEL"), "info"),
		LogFormat:       valueOr(getenv("LOG_FORMAT"), "json"),
	}

	if v := getenv("MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid MAX_RETRIES %q", v)
		}
		cfg.MaxRetries = n
	}

	if v := getenv("TOLERATE_REPLACE_SERVER_ERROR"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TOLERATE_REPLACE_SERVER_ERROR %q: %w", v, err)
		}
		cfg.TolerateReplaceServerError = b
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendSecretsManager:
		if c.SecretName == "" {
			return ErrMissingSecretName
		}
		if c.Region == "" {
			return ErrMissingRegion
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
		if c.SecretName == "" {
			return ErrMissingSecretName
		}
	case BackendFile:
	default:
		return fmt.Errorf("unknown CREDENTIAL_BACKEND %q", c.Backend)
	}
	return nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func withTrailingSlash(u string) string {
	if u == "" || strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
