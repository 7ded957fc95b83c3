// Package credstore persists the bearer token and the cached user profile.
//
// Store operations never return errors: a failing backend is logged and the
// operation degrades to a no-op write or an absent read. Writes are mirrored
// into an in-process overlay first, so within one process a read always
// reflects the last write even when the backend rejected it.
package credstore

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/brightline-agency/agency/internal/models"
)

// Well-known keys; no other keys are touched
const (
	KeyToken = "token"
	KeyUser  = "user"
)

type overlayEntry struct {
	value   string
	present bool
}

// Store is the best-effort durable credential store
type Store struct {
	backend Backend
	logger  zerolog.Logger

	mu      sync.RWMutex
	overlay map[string]overlayEntry
}

// New wraps a backend
func New(backend Backend, logger zerolog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger.With().Str("component", "credstore").Logger(),
		overlay: make(map[string]overlayEntry),
	}
}

// SetToken persists the bearer token
func (s *Store) SetToken(token string) {
	s.set(KeyToken, token)
}

// GetToken returns the bearer token, or "" when absent
func (s *Store) GetToken() string {
	token, _ := s.get(KeyToken)
	return token
}

// RemoveToken forgets the bearer token
func (s *Store) RemoveToken() {
	s.remove(KeyToken)
}

// SetUser persists the profile as JSON
func (s *Store) SetUser(user *models.UserProfile) {
	if user == nil {
		s.remove(KeyUser)
		return
	}

	data, err := json.Marshal(user)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to encode user profile, not persisting")
		return
	}
	s.set(KeyUser, string(data))
}

// GetUser returns the persisted profile, or nil when absent or malformed
func (s *Store) GetUser() *models.UserProfile {
	raw, ok := s.get(KeyUser)
	if !ok || raw == "" {
		return nil
	}

	var user models.UserProfile
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.logger.Warn().Err(err).Msg("Stored user profile is malformed, ignoring")
		return nil
	}
	if err := models.Validate(user); err != nil {
		s.logger.Warn().Err(err).Msg("Stored user profile is invalid, ignoring")
		return nil
	}
	return &user
}

// RemoveUser forgets the profile
func (s *Store) RemoveUser() {
	s.remove(KeyUser)
}

func (s *Store) set(key, value string) {
	s.mu.Lock()
	s.overlay[key] = overlayEntry{value: value, present: true}
	s.mu.Unlock()

	if err := s.backend.Set(key, value); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Storage fault on write, keeping value in memory only")
	}
}

func (s *Store) remove(key string) {
	s.mu.Lock()
	s.overlay[key] = overlayEntry{}
	s.mu.Unlock()

	if err := s.backend.Delete(key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Storage fault on delete")
	}
}

func (s *Store) get(key string) (string, bool) {
	s.mu.RLock()
	entry, touched := s.overlay[key]
	s.mu.RUnlock()
	if touched {
		return entry.value, entry.present
	}

	value, err := s.backend.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn().Err(err).Str("key", key).Msg("Storage fault on read, treating as absent")
		}
		return "", false
	}
	return value, true
}
