package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"releasewatch/internal/config"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore keeps one cursor row per feed URL in MySQL.
type MySQLStore struct {
	db      *sql.DB
	feedURL string
	logger  *log.Logger
}

// MySQLDSN renders the connection string; an empty dbName connects without selecting a database.
func MySQLDSN(cfg config.Config, dbName string) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=Local", cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, dbName)
}

// NewMySQLStore creates the database (if needed), ensures schema, and returns a ready store.
func NewMySQLStore(ctx context.Context, cfg config.Config, logger *log.Logger) (*MySQLStore, error) {
	rootDB, err := sql.Open("mysql", MySQLDSN(cfg, ""))
	if err != nil {
		return nil, fmt.Errorf("open root mysql connection: %w", err)
	}
	if err := rootDB.PingContext(ctx); err != nil {
		_ = rootDB.Close()
		return nil, fmt.Errorf("ping root mysql: %w", err)
	}
	createDB := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` DEFAULT CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", cfg.DBName)
	if _, err := rootDB.ExecContext(ctx, createDB); err != nil {
		_ = rootDB.Close()
		return nil, fmt.Errorf("create database: %w", err)
	}
	_ = rootDB.Close()

	db, err := sql.Open("mysql", MySQLDSN(cfg, cfg.DBName))
	if err != nil {
		return nil, fmt.Errorf("open mysql with db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql with db: %w", err)
	}

	store := &MySQLStore{db: db, feedURL: cfg.FeedURL, logger: logger}
	if err := store.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the database connection.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

func (s *MySQLStore) ensureSchema(ctx context.Context) error {
	const createTable = `
CREATE TABLE IF NOT EXISTS feed_cursor (
	feed_url VARCHAR(512) NOT NULL PRIMARY KEY,
	last_id TEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
`
	_, err := s.db.ExecContext(ctx, createTable)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Load returns the identifier stored for the feed.
func (s *MySQLStore) Load(ctx context.Context) (string, error) {
	return loadCursorRow(ctx, s.db, "SELECT last_id FROM feed_cursor WHERE feed_url = ? LIMIT 1", s.feedURL)
}

// Save upserts the identifier for the feed.
func (s *MySQLStore) Save(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO feed_cursor (feed_url, last_id)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE
	last_id=VALUES(last_id),
	updated_at=CURRENT_TIMESTAMP
`, s.feedURL, id)
	if err != nil {
		return fmt.Errorf("save cursor: %w", err)
	}
	s.logger.Printf("saved last update id %q for %s", id, s.feedURL)
	return nil
}

func loadCursorRow(ctx context.Context, db *sql.DB, query, feedURL string) (string, error) {
	var id string
	err := db.QueryRowContext(ctx, query, feedURL).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load cursor: %w", err)
	}
	return id, nil
}
