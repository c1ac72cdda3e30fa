package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"igfeedprobe/pkg/instagram"
	"igfeedprobe/pkg/logger"
)

// Store keeps one account's session state in a JSON file
type Store struct {
	path   string
	logger logger.Logger
}

// NewStore creates a store backed by path. The file is created on first Save.
func NewStore(path string, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Store{path: path, logger: log}
}

// Path returns the session file location
func (s *Store) Path() string {
	return s.path
}

// Load reads the saved session. It returns nil, nil when none exists.
func (s *Store) Load() (*instagram.SessionState, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open session file: %w", err)
	}
	defer file.Close()

	var state instagram.SessionState
	if err := json.NewDecoder(file).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	s.logger.DebugWithFields("Session loaded", map[string]interface{}{
		"username": state.Username,
		"path":     s.path,
		"saved_at": state.SavedAt,
	})

	return &state, nil
}

// Save writes the session atomically with owner-only permissions
func (s *Store) Save(state *instagram.SessionState) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tempPath := s.path + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temporary session file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(state); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync session file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close session file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	s.logger.DebugWithFields("Session saved", map[string]interface{}{
		"username": state.Username,
		"path":     s.path,
	})

	return nil
}

// Delete removes the session file
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.Debug("Session deleted")
	return nil
}

// Exists checks if a session file exists
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
