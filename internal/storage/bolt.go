package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/boltdb/bolt"
)

var cursorBucket = []byte("cursor")

// BoltStore keeps one cursor per feed URL in a bolt database.
type BoltStore struct {
	db      *bolt.DB
	feedURL string
	logger  *log.Logger
}

// NewBoltStore opens (or creates) the database at path.
func NewBoltStore(path, feedURL string, logger *log.Logger) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt cursor %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cursorBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bolt cursor bucket: %w", err)
	}

	return &BoltStore{db: db, feedURL: feedURL, logger: logger}, nil
}

// Load returns the identifier stored for the feed.
func (s *BoltStore) Load(_ context.Context) (string, error) {
	var id string
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(cursorBucket).Get([]byte(s.feedURL)); v != nil {
			id = string(v)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("read bolt cursor: %w", err)
	}
	return id, nil
}

// Save stores id for the feed.
func (s *BoltStore) Save(_ context.Context, id string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cursorBucket).Put([]byte(s.feedURL), []byte(id))
	})
	if err != nil {
		return fmt.Errorf("write bolt cursor: %w", err)
	}
	s.logger.Printf("saved last update id %q for %s", id, s.feedURL)
	return nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
