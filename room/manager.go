package room

import (
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"github.com/DragonWolfLeo/paint-and-chat-server/domain"
)

// Manager is the registry of live rooms. It also implements domain.Registrar
// so the transport layer can hand connections to the room they are scoped to.
type Manager struct {
	cfg Config

	mu    sync.Mutex
	rooms map[string]*Room
}

// NewManager creates an empty room registry.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg, rooms: make(map[string]*Room)}
}

// Create constructs a room under a fresh identifier and registers it.
func (m *Manager) Create() *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	var id string
	for {
		id = newID()
		if _, exists := m.rooms[id]; !exists {
			break
		}
	}
	r := newRoom(id, m.cfg, m.Remove)
	m.rooms[id] = r
	slog.Info("room created", "room", id)
	return r
}

// Get looks up a live room.
func (m *Manager) Get(id string) (*Room, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	return r, ok
}

// Remove drops a room from the registry. Invoked by a room's own expiry
// callback; idempotent if the room is already gone.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	_, ok := m.rooms[id]
	delete(m.rooms, id)
	m.mu.Unlock()

	if ok {
		slog.Info("room removed", "room", id)
	}
}

// Connect routes a new transport connection to its room. Connections scoped
// to an unknown room are closed immediately.
func (m *Manager) Connect(conn domain.Connection) {
	r, ok := m.Get(conn.RoomID())
	if !ok {
		slog.Warn("connection to unknown room", "room", conn.RoomID(), "connId", conn.ID())
		conn.Close()
		return
	}
	r.Connect(conn)
}

// Disconnect routes a transport-level disconnect to its room.
func (m *Manager) Disconnect(conn domain.Connection) {
	if r, ok := m.Get(conn.RoomID()); ok {
		r.Disconnect(conn)
	}
}

// Stats reports the live room count and the total admitted-connection count.
func (m *Manager) Stats() (rooms, clients int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms), lo.SumBy(lo.Values(m.rooms), func(r *Room) int {
		return r.ClientCount()
	})
}
