// Package room implements the room authority: token admission, session
// tracking, typed broadcast fan-out, canvas mediation, and idle expiry.
package room

import (
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/DragonWolfLeo/paint-and-chat-server/canvas"
	"github.com/DragonWolfLeo/paint-and-chat-server/domain"
	"github.com/DragonWolfLeo/paint-and-chat-server/protocol"
)

const (
	// DefaultAuthGrace is how long an unauthenticated connection may linger.
	DefaultAuthGrace = 5 * time.Second
	// DefaultIdleGrace is how long an empty room survives before expiry.
	DefaultIdleGrace = 5 * time.Minute
)

// Config carries the per-room timer durations.
type Config struct {
	AuthGrace time.Duration
	IdleGrace time.Duration
}

func (c Config) withDefaults() Config {
	if c.AuthGrace <= 0 {
		c.AuthGrace = DefaultAuthGrace
	}
	if c.IdleGrace <= 0 {
		c.IdleGrace = DefaultIdleGrace
	}
	return c
}

// Room is an isolated broadcast+canvas scope. It owns its token and session
// registries and its canvas; every inbound event is mediated here.
type Room struct {
	id       string
	cfg      Config
	tokens   *TokenRegistry
	sessions *SessionRegistry
	canvas   *canvas.Canvas
	onExpire func(id string)

	mu        sync.Mutex
	pending   map[string]*time.Timer // auth grace timers keyed by connection id
	expiry    *time.Timer
	expiryGen int
	closed    bool
}

func newRoom(id string, cfg Config, onExpire func(string)) *Room {
	r := &Room{
		id:       id,
		cfg:      cfg.withDefaults(),
		tokens:   newTokenRegistry(),
		sessions: newSessionRegistry(),
		canvas:   canvas.New(domain.DefaultCanvasWidth, domain.DefaultCanvasHeight),
		onExpire: onExpire,
		pending:  make(map[string]*time.Timer),
	}
	// A fresh room has no admitted connections, so the idle clock starts now.
	r.mu.Lock()
	r.armExpiryLocked()
	r.mu.Unlock()
	return r
}

// ID returns the room identifier.
func (r *Room) ID() string { return r.id }

// IssueToken mints an admission token for the given identity.
func (r *Room) IssueToken(name, color string) (string, error) {
	return r.tokens.Issue(name, color)
}

// HasToken reports whether a token is valid for this room.
func (r *Room) HasToken(token string) bool {
	return r.tokens.Has(token)
}

// ClientCount returns the admitted-connection count.
func (r *Room) ClientCount() int {
	return r.sessions.Len()
}

// Closed reports whether the room has expired.
func (r *Room) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Connect registers a new transport connection and arms its authentication
// grace timer. The connection is closed if it does not authenticate in time.
func (r *Room) Connect(conn domain.Connection) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		conn.Close()
		return
	}
	r.pending[conn.ID()] = time.AfterFunc(r.cfg.AuthGrace, func() {
		r.graceExpired(conn)
	})
	r.mu.Unlock()

	slog.Info("connection opened", "room", r.id, "connId", conn.ID())
}

func (r *Room) graceExpired(conn domain.Connection) {
	r.mu.Lock()
	if _, ok := r.pending[conn.ID()]; !ok {
		// Authenticated or disconnected before the timer fired.
		r.mu.Unlock()
		return
	}
	delete(r.pending, conn.ID())
	r.mu.Unlock()

	slog.Warn("authentication window expired", "room", r.id, "connId", conn.ID())
	conn.Close()
}

// Authenticate handles an auth event. A valid token promotes the connection
// into the session registry, announces the join, and pushes a full canvas
// snapshot to the new member. An invalid token earns one error reply and a
// forced close. An auth arriving after the grace timer already closed the
// connection is rejected outright.
func (r *Room) Authenticate(conn domain.Connection, token string) {
	if token == "" {
		r.rejectAuth(conn, domain.ErrMissingToken)
		return
	}
	profile, ok := r.tokens.Resolve(token)
	if !ok {
		r.rejectAuth(conn, domain.ErrUnknownToken)
		return
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		conn.Close()
		return
	}
	t, pending := r.pending[conn.ID()]
	if _, admitted := r.sessions.Lookup(conn.ID()); !pending && !admitted {
		r.mu.Unlock()
		slog.Warn("authentication after grace expiry", "room", r.id, "connId", conn.ID())
		conn.Close()
		return
	}
	if pending {
		t.Stop()
		delete(r.pending, conn.ID())
	}
	// Disarm and admit atomically, so a concurrent last-member disconnect
	// cannot arm the idle timer between the two.
	r.disarmExpiryLocked()
	r.sessions.Admit(conn, profile)
	r.mu.Unlock()

	slog.Info("user admitted", "room", r.id, "connId", conn.ID(), "name", profile.Name)

	if data, err := protocol.Encode(protocol.TypeAuth, protocol.AuthReply{User: &profile}); err == nil {
		conn.Send(data)
	}
	r.broadcastEvent(protocol.UserEvent{Type: protocol.EventUserJoin, User: profile}, "")

	snap, err := r.canvas.Snapshot()
	if err != nil {
		slog.Error("canvas snapshot failed", "room", r.id, "error", err)
		return
	}
	if data, err := protocol.Encode(protocol.TypeCanvas, protocol.NewSnapshotPush(snap)); err == nil {
		conn.Send(data)
	}
}

func (r *Room) rejectAuth(conn domain.Connection, cause error) {
	r.mu.Lock()
	if t, pending := r.pending[conn.ID()]; pending {
		t.Stop()
		delete(r.pending, conn.ID())
	}
	r.mu.Unlock()

	slog.Warn("admission rejected", "room", r.id, "connId", conn.ID(), "error", cause)
	if data, err := protocol.Encode(protocol.TypeAuth, protocol.AuthReply{Error: cause.Error()}); err == nil {
		conn.Send(data)
	}
	conn.Close()
}

// Disconnect tears down whatever state the connection holds: a pending grace
// timer for unauthenticated connections, or the session plus a disconnect
// broadcast for admitted ones. The idle clock starts when the last admitted
// connection leaves.
func (r *Room) Disconnect(conn domain.Connection) {
	r.mu.Lock()
	if t, pending := r.pending[conn.ID()]; pending {
		t.Stop()
		delete(r.pending, conn.ID())
		r.mu.Unlock()
		slog.Info("connection closed before auth", "room", r.id, "connId", conn.ID())
		return
	}
	r.mu.Unlock()

	sess, ok := r.sessions.Lookup(conn.ID())
	if !ok {
		return
	}
	r.sessions.Revoke(conn.ID())
	slog.Info("user disconnected", "room", r.id, "connId", conn.ID(), "name", sess.Profile.Name)

	r.broadcastEvent(protocol.UserEvent{Type: protocol.EventUserDisconnect, User: sess.Profile}, conn.ID())

	r.mu.Lock()
	if r.sessions.Len() == 0 && !r.closed {
		r.armExpiryLocked()
	}
	r.mu.Unlock()
}

// Chat broadcasts a chat message to every other admitted member. Oversized
// messages and messages from unadmitted connections are dropped.
func (r *Room) Chat(conn domain.Connection, text string) {
	sess, ok := r.sessions.Lookup(conn.ID())
	if !ok {
		slog.Warn("chat from unadmitted connection", "room", r.id, "connId", conn.ID())
		return
	}
	if utf8.RuneCountInString(text) > domain.MaxChatLength {
		slog.Warn("chat message too long", "room", r.id, "connId", conn.ID(), "length", utf8.RuneCountInString(text))
		return
	}
	r.broadcastEvent(protocol.UserEvent{Type: protocol.EventUserMessage, User: sess.Profile, Message: text}, conn.ID())
}

// ApplyPatch composites a decoded-at-the-boundary image blob over the canvas
// and broadcasts the merged region to every admitted member, the sender
// included: the composited output may differ from what the sender drew.
func (r *Room) ApplyPatch(conn domain.Connection, blob []byte, x, y, width, height int) {
	if _, ok := r.sessions.Lookup(conn.ID()); !ok {
		slog.Warn("canvas patch from unadmitted connection", "room", r.id, "connId", conn.ID())
		return
	}
	if width < 0 || height < 0 || width > domain.MaxCanvasDimension || height > domain.MaxCanvasDimension {
		slog.Warn("canvas patch rectangle out of bounds", "room", r.id, "connId", conn.ID(), "width", width, "height", height)
		return
	}
	patch, err := r.canvas.Compose(blob, x, y, width, height)
	if err != nil {
		slog.Warn("canvas patch rejected", "room", r.id, "connId", conn.ID(), "error", err)
		return
	}
	if patch.Width == 0 || patch.Height == 0 {
		return
	}
	data, err := protocol.Encode(protocol.TypeCanvas, protocol.NewPatchPush(patch))
	if err != nil {
		slog.Error("encode canvas event", "room", r.id, "error", err)
		return
	}
	r.broadcast(data, "")
}

// Resize changes the canvas dimensions and broadcasts the full re-encoded
// canvas to every admitted member. Out-of-bounds requests are dropped.
func (r *Room) Resize(conn domain.Connection, width, height int) {
	if _, ok := r.sessions.Lookup(conn.ID()); !ok {
		slog.Warn("resize from unadmitted connection", "room", r.id, "connId", conn.ID())
		return
	}
	if width < 0 || height < 0 || width > domain.MaxCanvasDimension || height > domain.MaxCanvasDimension {
		slog.Warn("resize out of bounds", "room", r.id, "connId", conn.ID(), "width", width, "height", height)
		return
	}
	snap, err := r.canvas.Resize(width, height)
	if err != nil {
		slog.Error("canvas resize failed", "room", r.id, "error", err)
		return
	}
	data, err := protocol.Encode(protocol.TypeCanvas, protocol.NewSnapshotPush(snap))
	if err != nil {
		slog.Error("encode canvas event", "room", r.id, "error", err)
		return
	}
	r.broadcast(data, "")
}

func (r *Room) broadcastEvent(event protocol.UserEvent, excludeConnID string) {
	data, err := protocol.Encode(protocol.TypeMessage, event)
	if err != nil {
		slog.Error("encode user event", "room", r.id, "error", err)
		return
	}
	r.broadcast(data, excludeConnID)
}

// broadcast fans data out to the current broadcast group, optionally skipping
// one connection. Sends are non-blocking pushes into each connection's buffer.
func (r *Room) broadcast(data []byte, excludeConnID string) {
	for _, sess := range r.sessions.List() {
		if sess.Conn.ID() == excludeConnID {
			continue
		}
		if err := sess.Conn.Send(data); err != nil {
			slog.Warn("send failed", "room", r.id, "connId", sess.Conn.ID(), "error", err)
		}
	}
}

// armExpiryLocked starts (or restarts) the idle timer. Caller holds r.mu.
func (r *Room) armExpiryLocked() {
	r.expiryGen++
	gen := r.expiryGen
	if r.expiry != nil {
		r.expiry.Stop()
	}
	r.expiry = time.AfterFunc(r.cfg.IdleGrace, func() {
		r.expire(gen)
	})
}

// disarmExpiryLocked cancels a pending idle timer. Bumping the generation
// neutralizes a callback that already fired but has not yet taken the lock.
func (r *Room) disarmExpiryLocked() {
	r.expiryGen++
	if r.expiry != nil {
		r.expiry.Stop()
		r.expiry = nil
	}
}

func (r *Room) expire(gen int) {
	r.mu.Lock()
	if gen != r.expiryGen || r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	slog.Info("room expired", "room", r.id)
	if r.onExpire != nil {
		r.onExpire(r.id)
	}
}
