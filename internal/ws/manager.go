package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotConnected is returned for commands addressed to an identity with no
// live connection.
var ErrNotConnected = errors.New("ws: charger not connected")

// Manager tracks charger connections and routes outbound commands to them.
type Manager struct {
	mu           sync.RWMutex
	connections  map[string]*Connection
	pingInterval time.Duration
}

// NewManager builds connection manager.
func NewManager(pingInterval time.Duration) *Manager {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Manager{
		connections:  make(map[string]*Connection),
		pingInterval: pingInterval,
	}
}

// Add registers new connection. A charger reconnecting before its previous
// socket has been torn down replaces the registry entry; the superseded
// connection is closed so its pumps wind down.
func (m *Manager) Add(conn *Connection) {
	m.mu.Lock()
	prev := m.connections[conn.Identity()]
	m.connections[conn.Identity()] = conn
	m.mu.Unlock()

	if prev != nil && prev != conn {
		prev.Close()
	}
}

// Remove unregisters the connection and reports whether it was the current
// entry for its identity. A connection replaced by a newer one is a no-op so
// late teardown of the old socket cannot evict the live replacement.
func (m *Manager) Remove(conn *Connection) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connections[conn.Identity()] != conn {
		return false
	}
	delete(m.connections, conn.Identity())
	return true
}

// Connected reports whether the identity has a live connection.
func (m *Manager) Connected(identity string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.connections[identity]
	return ok
}

// Identities lists connected chargers in stable order.
func (m *Manager) Identities() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.connections))
	for id := range m.connections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Call issues an outbound command over the identity's connection.
func (m *Manager) Call(ctx context.Context, identity, action string, payload interface{}) (json.RawMessage, error) {
	m.mu.RLock()
	conn, ok := m.connections[identity]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotConnected
	}
	return conn.Call(ctx, action, payload)
}

// Start begins ping loop to keep connections active.
func (m *Manager) Start(ctx context.Context) {
	ticker := time.NewTicker(m.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.RLock()
			for _, conn := range m.connections {
				_ = conn.Ping()
			}
			m.mu.RUnlock()
		}
	}
}
