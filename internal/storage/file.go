package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps the cursor in a single-line text file.
type FileStore struct {
	path   string
	logger *log.Logger
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string, logger *log.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the stored identifier. A missing file is not an error.
func (s *FileStore) Load(_ context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read cursor file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save replaces the stored identifier. The value is written to a temp file
// in the same directory and renamed over the target, so readers never see
// a partial write.
func (s *FileStore) Save(_ context.Context, id string) (err error) {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cursor file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.WriteString(id); err != nil {
		return fmt.Errorf("write temp cursor file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp cursor file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp cursor file: %w", err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp cursor file: %w", err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename cursor file: %w", err)
	}
	s.logger.Printf("saved last update id %q to %s", id, s.path)
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}
