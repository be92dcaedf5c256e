package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// locatorScheme prefixes locators issued by PostgresStore
const locatorScheme = "pg://"

const schemaSQL = `CREATE TABLE IF NOT EXISTS run_artifacts (
	namespace  TEXT NOT NULL,
	name       TEXT NOT NULL,
	content    BYTEA NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (namespace, name)
)`

// PostgresStore keeps artifacts in a single PostgreSQL table.
// Locators have the form pg://namespace/name.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres establishes a connection pool and ensures the artifact table exists
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// EnsureSchema creates the artifact table when missing
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create artifact table: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Locate implements ArtifactStore
func (s *PostgresStore) Locate(namespace, name string) string {
	return locatorScheme + namespace + "/" + name
}

// Save implements ArtifactStore
func (s *PostgresStore) Save(ctx context.Context, namespace, name string, data []byte) (string, error) {
	if err := validateKeys(namespace, name); err != nil {
		return "", err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_artifacts (namespace, name, content)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (namespace, name) DO UPDATE SET content = $3, created_at = NOW()`,
		namespace, name, data,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save artifact %s: %w", name, err)
	}
	return s.Locate(namespace, name), nil
}

// SaveJSON implements ArtifactStore
func (s *PostgresStore) SaveJSON(ctx context.Context, namespace, name string, v any) (string, error) {
	data, err := marshalArtifact(v)
	if err != nil {
		return "", err
	}
	return s.Save(ctx, namespace, name, data)
}

// Delete implements ArtifactStore
func (s *PostgresStore) Delete(ctx context.Context, namespace, name string) error {
	if err := validateKeys(namespace, name); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`DELETE FROM run_artifacts WHERE namespace = $1 AND name = $2`,
		namespace, name,
	)
	if err != nil {
		return fmt.Errorf("failed to delete artifact %s: %w", name, err)
	}
	return nil
}

// Get implements ArtifactStore
func (s *PostgresStore) Get(ctx context.Context, locator string) ([]byte, error) {
	namespace, name, err := parseLocator(locator)
	if err != nil {
		return nil, err
	}
	var content []byte
	err = s.pool.QueryRow(ctx,
		`SELECT content FROM run_artifacts WHERE namespace = $1 AND name = $2`,
		namespace, name,
	).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact %s: %w", name, err)
	}
	return content, nil
}

// List implements ArtifactStore
func (s *PostgresStore) List(ctx context.Context, namespace string) ([]string, error) {
	if err := validateKey(namespace); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT name FROM run_artifacts WHERE namespace = $1 ORDER BY name`,
		namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan artifact name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	return names, nil
}

// parseLocator splits pg://namespace/name
func parseLocator(locator string) (string, string, error) {
	rest, ok := strings.CutPrefix(locator, locatorScheme)
	if !ok {
		return "", "", &KeyError{Key: locator, Message: "not a database locator"}
	}
	namespace, name, ok := strings.Cut(rest, "/")
	if !ok {
		return "", "", &KeyError{Key: locator, Message: "missing artifact name"}
	}
	if err := validateKeys(namespace, name); err != nil {
		return "", "", err
	}
	return namespace, name, nil
}
