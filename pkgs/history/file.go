package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps every record in one JSON array file.
//
// Each append rewrites the whole file under a mutex, writing to a temporary
// file first and renaming it over the original. A missing or corrupt file
// reads as empty history.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileStore returns a store writing to path. The parent directory is
// created on first append.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Append implements Store.
func (s *FileStore) Append(_ context.Context, _ string, doc json.RawMessage) error {
	if !json.Valid(doc) {
		return fmt.Errorf("history: record is not valid JSON")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.read()
	docs = append(docs, doc)

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("history: marshal records: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("history: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("history: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("history: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("history: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("history: replace %s: %w", s.path, err)
	}
	return nil
}

// List implements Store.
func (s *FileStore) List(_ context.Context, limit int) ([]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tail(s.read(), limit), nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	return nil
}

// read loads the array; callers hold s.mu.
func (s *FileStore) read() []json.RawMessage {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("history file unreadable, starting empty", "path", s.path, "error", err)
		}
		return nil
	}

	var docs []json.RawMessage
	if err := json.Unmarshal(data, &docs); err != nil {
		s.logger.Warn("history file corrupt, starting empty", "path", s.path, "error", err)
		return nil
	}
	return docs
}
