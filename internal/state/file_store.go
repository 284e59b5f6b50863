package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ducminhle1904/futures-signal-bot/internal/logger"
	"github.com/ducminhle1904/futures-signal-bot/internal/position"
)

// FileStore saves open positions as JSON under a state directory. Writes go
// to a temporary file first and are renamed into place.
type FileStore struct {
	mu       sync.Mutex
	stateDir string
	name     string
	logger   *logger.Logger
}

// NewFileStore creates a store writing <dir>/<name>_state.json
func NewFileStore(dir, name string, log *logger.Logger) (*FileStore, error) {
	if log == nil {
		log = logger.Discard()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileStore{stateDir: dir, name: name, logger: log}, nil
}

// Path returns the state file location
func (s *FileStore) Path() string {
	return filepath.Join(s.stateDir, fmt.Sprintf("%s_state.json", s.name))
}

func (s *FileStore) backupPath() string {
	return filepath.Join(s.stateDir, fmt.Sprintf("%s_state_backup.json", s.name))
}

// Save replaces the stored position set
func (s *FileStore) Save(_ context.Context, positions []*position.Position) error {
	data, err := encode(positions, time.Now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stateFile := s.Path()
	if prev, err := os.ReadFile(stateFile); err == nil {
		if err := os.WriteFile(s.backupPath(), prev, 0644); err != nil {
			s.logger.Warning("state backup failed: %v", err)
		}
	}

	tempFile := stateFile + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := os.Rename(tempFile, stateFile); err != nil {
		return fmt.Errorf("failed to move state file: %w", err)
	}
	return nil
}

// Load returns the stored positions. A missing file is an empty set; a
// corrupt file falls back to the backup.
func (s *FileStore) Load(_ context.Context) ([]*position.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path())
	if os.IsNotExist(err) {
		s.logger.Info("No existing state file found, starting with clean state")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	positions, err := decode(data)
	if err == nil {
		return positions, nil
	}

	s.logger.Warning("state file unusable (%v), trying backup", err)
	backup, berr := os.ReadFile(s.backupPath())
	if berr != nil {
		return nil, err
	}
	return decode(backup)
}
