package storage

import (
	"context"
	"fmt"
	"log"

	"releasewatch/internal/config"
)

// Cursor persists the identifier of the newest entry already notified.
// Load returns "" when nothing has been stored yet.
type Cursor interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, id string) error
	Close() error
}

// Open builds the cursor selected by cfg.CacheBackend.
func Open(ctx context.Context, cfg config.Config, logger *log.Logger) (Cursor, error) {
	switch cfg.CacheBackend {
	case "", "file":
		return NewFileStore(cfg.CacheFile, logger), nil
	case "bolt":
		store, err := NewBoltStore(cfg.CacheFile, cfg.FeedURL, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "mysql":
		store, err := NewMySQLStore(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		store, err := NewPostgresStore(ctx, cfg.DatabaseURL, cfg.FeedURL, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
