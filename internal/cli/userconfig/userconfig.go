package userconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const stateFileName = "state.json"

// State is the operator's local state stored in <config dir>/state.json
type State struct {
	// PendingRedirect is the location a guard bounced from, restored after login
	PendingRedirect string `json:"pending_redirect,omitempty"`
}

// Store reads and writes the state file in a config directory
type Store struct {
	path string
}

// New returns a Store for dir
func New(dir string) *Store {
	return &Store{path: filepath.Join(dir, stateFileName)}
}

// Path returns the path to the state file
func (s *Store) Path() string {
	return s.path
}

// Load reads the state file
func (s *Store) Load() (*State, error) {
	// If state doesn't exist, return empty state
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return &State{}, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	return &st, nil
}

// Save writes the state to the file
func (s *Store) Save(st *State) error {
	// Create config directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	return nil
}

// SetPendingRedirect records where to send the operator after the next login
func (s *Store) SetPendingRedirect(location string) error {
	st, err := s.Load()
	if err != nil {
		return err
	}

	st.PendingRedirect = location
	return s.Save(st)
}

// TakePendingRedirect returns the recorded location and clears it
func (s *Store) TakePendingRedirect() (string, error) {
	st, err := s.Load()
	if err != nil {
		return "", err
	}

	location := st.PendingRedirect
	if location == "" {
		return "", nil
	}

	st.PendingRedirect = ""
	if err := s.Save(st); err != nil {
		return "", err
	}
	return location, nil
}
