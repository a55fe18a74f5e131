package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	_ "github.com/lib/pq"
)

// PostgresStore keeps one cursor row per feed URL in Postgres.
type PostgresStore struct {
	db      *sql.DB
	feedURL string
	logger  *log.Logger
}

// NewPostgresStore connects with dsn and ensures the cursor table exists.
func NewPostgresStore(ctx context.Context, dsn, feedURL string, logger *log.Logger) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres cache backend requires DATABASE_URL")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	const createTable = `
CREATE TABLE IF NOT EXISTS feed_cursor (
	feed_url TEXT PRIMARY KEY,
	last_id TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	if _, err := db.ExecContext(ctx, createTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &PostgresStore{db: db, feedURL: feedURL, logger: logger}, nil
}

// Load returns the identifier stored for the feed.
func (s *PostgresStore) Load(ctx context.Context) (string, error) {
	return loadCursorRow(ctx, s.db, "SELECT last_id FROM feed_cursor WHERE feed_url = $1", s.feedURL)
}

// Save upserts the identifier for the feed.
func (s *PostgresStore) Save(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO feed_cursor (feed_url, last_id) VALUES ($1, $2) ON CONFLICT (feed_url) DO UPDATE SET last_id = EXCLUDED.last_id, updated_at = now()`, s.feedURL, id)
	if err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	s.logger.Printf("saved last update id %q for %s", id, s.feedURL)
	return nil
}

// Close releases the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
