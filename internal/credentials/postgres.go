package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
	CREATE TABLE IF NOT EXISTS credentials (
		name       TEXT PRIMARY KEY,
		blob       JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// PostgresStore keeps the credential blob in a row of the credentials table.
type PostgresStore struct {
	pool *pgxpool.Pool
	name string
}

// OpenPostgres creates a connection pool and returns a store for the named row.
func OpenPostgres(ctx context.Context, databaseURL, name string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool, name: name}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Migrate creates the credentials table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating credentials table: %w", err)
	}
	return nil
}

// Get retrieves the credential blob.
func (s *PostgresStore) Get(ctx context.Context) (*Credentials, error) {
	query := `
		SELECT blob
		FROM credentials
		WHERE name = $1
	`
	var blob []byte
	err := s.pool.QueryRow(ctx, query, s.name).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: no credentials named %q", ErrSecretUnavailable, s.name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: querying credentials: %w", ErrSecretUnavailable, err)
	}
	return Decode(blob)
}

// Put upserts the whole credential blob.
func (s *PostgresStore) Put(ctx context.Context, creds *Credentials) error {
	data, err := Encode(creds)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSecretWriteFailed, err)
	}

	query := `
		INSERT INTO credentials (name, blob, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET
			blob = EXCLUDED.blob,
			updated_at = NOW()
	`
	if _, err := s.pool.Exec(ctx, query, s.name, data); err != nil {
		return fmt.Errorf("%w: upserting credentials: %w", ErrSecretWriteFailed, err)
	}
	return nil
}
