package room

import (
	"sync"

	"github.com/samber/lo"

	"github.com/DragonWolfLeo/paint-and-chat-server/domain"
)

// UserSession is an admitted connection together with its authenticated
// profile. The connection handle is a non-owning reference into the transport
// layer.
type UserSession struct {
	Conn    domain.Connection
	Profile domain.UserProfile
}

// SessionRegistry is the source of truth for who is currently admitted to a
// room. It doubles as the broadcast group.
type SessionRegistry struct {
	mu     sync.RWMutex
	byConn map[string]*UserSession
}

func newSessionRegistry() *SessionRegistry {
	return &SessionRegistry{byConn: make(map[string]*UserSession)}
}

// Admit stores a session keyed by connection identity, overwriting any prior
// session for that identity.
func (s *SessionRegistry) Admit(conn domain.Connection, profile domain.UserProfile) *UserSession {
	sess := &UserSession{Conn: conn, Profile: profile}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byConn[conn.ID()] = sess
	return sess
}

// Lookup returns the session for a connection identity, if admitted.
func (s *SessionRegistry) Lookup(connID string) (*UserSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byConn[connID]
	return sess, ok
}

// Revoke removes the session for a connection identity.
func (s *SessionRegistry) Revoke(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byConn, connID)
}

// List snapshots the broadcast group.
func (s *SessionRegistry) List() []*UserSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Values(s.byConn)
}

// Len returns the admitted-connection count.
func (s *SessionRegistry) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byConn)
}
