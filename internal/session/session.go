// Package session holds the bearer token obtained at login and persists it so
// later invocations reuse it.
//
// Lifecycle: init (constructed, nothing loaded) → active (token present) →
// cleared (logout or a 401 from the backend).
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// State is the lifecycle position of a session.
type State int

// Session states.
const (
	StateInit State = iota
	StateActive
	StateCleared
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCleared:
		return "cleared"
	default:
		return "init"
	}
}

type fileData struct {
	Token    string `yaml:"token"`
	Username string `yaml:"username"`
}

// Session is safe for concurrent use. An empty path keeps the session in
// memory only.
type Session struct {
	mu       sync.RWMutex
	path     string
	state    State
	token    string
	username string
}

// New returns a session in the init state bound to path.
func New(path string) *Session {
	return &Session{path: path}
}

// Open creates a session and loads it from path.
func Open(path string) (*Session, error) {
	s := New(path)
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file, empty for in-memory sessions.
func (s *Session) Path() string { return s.path }

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Token returns the bearer token, empty unless active.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Username returns the logged-in user name.
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// Activate stores a freshly issued token and persists it.
func (s *Session) Activate(token, username string) error {
	if token == "" {
		return errors.New("session: empty token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(fileData{Token: token, Username: username}); err != nil {
		return err
	}
	s.token, s.username, s.state = token, username, StateActive
	return nil
}

// Clear forgets the token and removes the persisted file.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.username, s.state = "", "", StateCleared
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: remove: %w", err)
	}
	return nil
}

// Reload re-reads the persisted file. A missing file clears the session.
func (s *Session) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		if s.state == StateInit {
			s.state = StateCleared
		}
		return nil
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.token, s.username, s.state = "", "", StateCleared
		return nil
	}
	if err != nil {
		return fmt.Errorf("session: read: %w", err)
	}
	var fd fileData
	if err := yaml.Unmarshal(data, &fd); err != nil {
		return fmt.Errorf("session: parse %s: %w", s.path, err)
	}
	s.token, s.username = fd.Token, fd.Username
	s.state = StateCleared
	if fd.Token != "" {
		s.state = StateActive
	}
	return nil
}

// write must be called with the lock held.
func (s *Session) write(fd fileData) error {
	if s.path == "" {
		return nil
	}
	data, err := yaml.Marshal(fd)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("session: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-tmp-*")
	if err != nil {
		return fmt.Errorf("session: create temp: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()
	if err := tmp.Chmod(0o600); err != nil {
		return fmt.Errorf("session: chmod: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("session: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("session: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("session: rename: %w", err)
	}
	success = true
	return nil
}
