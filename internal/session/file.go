package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/Shimizu-Technology/hire-filter-api/internal/models"
)

// FileStore keeps one JSON file per client under a directory, so a slot
// survives a server restart the way browser local storage survives a reload.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("session directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// path maps a client id to its slot file. Client ids come from a cookie,
// so only canonical UUIDs are accepted to keep paths inside dir.
func (s *FileStore) path(clientID string) (string, error) {
	id, err := uuid.Parse(clientID)
	if err != nil {
		return "", fmt.Errorf("invalid client id: %w", err)
	}
	return filepath.Join(s.dir, id.String()+"."+SlotName+".json"), nil
}

// Save overwrites the client's slot file. The write goes through a temp
// file and a rename so a crash never leaves a half-written value.
func (s *FileStore) Save(_ context.Context, clientID string, files []models.CvFile) error {
	p, err := s.path(clientID)
	if err != nil {
		return err
	}
	raw, err := encode(files)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".slot-*")
	if err != nil {
		return fmt.Errorf("failed to create temp slot file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write slot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close slot file: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("failed to replace slot file: %w", err)
	}
	return nil
}

// Load reads the client's slot file.
func (s *FileStore) Load(_ context.Context, clientID string) ([]models.CvFile, error) {
	p, err := s.path(clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	s.mu.Lock()
	raw, err := os.ReadFile(p)
	s.mu.Unlock()

	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slot file: %w", err)
	}
	return decode(raw)
}

// Clear deletes the client's slot file. A missing file is fine.
func (s *FileStore) Clear(_ context.Context, clientID string) error {
	p, err := s.path(clientID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear slot file: %w", err)
	}
	return nil
}
