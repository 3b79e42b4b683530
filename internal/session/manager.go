package session

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// ErrNotFound reports an unknown or expired session id
var ErrNotFound = errors.New("session not found")

// Manager tracks live sessions by id
type Manager struct {
	root     string
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager storing session directories under root
func NewManager(root string) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create session root: %w", err)
	}
	return &Manager{
		root:     root,
		sessions: make(map[string]*Session),
	}, nil
}

// Create opens a new session
func (m *Manager) Create() (*Session, error) {
	s, err := New(m.root)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// Get retrieves a session by id
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// Reset discards one session's artifacts without affecting any other
func (m *Manager) Reset(id string) error {
	m.mu.RLock()
	s := m.sessions[id]
	m.mu.RUnlock()
	if s == nil {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return s.Reset()
}

// Remove deletes a session and its directory
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if s != nil {
		s.Remove()
	}
}
