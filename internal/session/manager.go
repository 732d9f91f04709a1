package session

import (
	"sync"
)

// Entry records where a connection lives. It lets stateless inbound
// events (timer control, focus toggles, expression frames) resolve to a
// room without trusting a client-supplied room code on every message.
type Entry struct {
	RoomCode string
	Username string
}

// Manager is the process-wide session table: connection id -> room
// binding. An entry exists from a successful join until leave or
// disconnect.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]Entry
}

// NewManager creates an empty session table.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]Entry),
	}
}

// Bind records a connection's room membership, replacing any prior entry.
func (m *Manager) Bind(connID, roomCode, username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[connID] = Entry{RoomCode: roomCode, Username: username}
}

// Lookup resolves a connection to its binding. A miss means the
// connection never joined or already left; callers silently no-op.
func (m *Manager) Lookup(connID string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, exists := m.sessions[connID]
	return entry, exists
}

// Unbind removes and returns a connection's binding. Safe to call for an
// unknown connection.
func (m *Manager) Unbind(connID string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, exists := m.sessions[connID]
	if exists {
		delete(m.sessions, connID)
	}
	return entry, exists
}

// Count returns the number of bound connections.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
