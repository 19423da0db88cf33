package domain

import "strings"

const (
	// MaxNameLength caps a display name after trimming.
	MaxNameLength = 20
	// MaxChatLength caps a single chat message.
	MaxChatLength = 1000

	// DefaultCanvasWidth and DefaultCanvasHeight size a fresh room canvas.
	DefaultCanvasWidth  = 600
	DefaultCanvasHeight = 500
	// MaxCanvasDimension bounds both axes of a room canvas.
	MaxCanvasDimension = 2000
)

// UserProfile is the identity a token was minted for. Immutable once created.
type UserProfile struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// NewUserProfile validates and normalizes a profile. The name is trimmed and
// capped at MaxNameLength runes; the color is opaque and only checked for
// presence.
func NewUserProfile(name, color string) (UserProfile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return UserProfile{}, ErrEmptyName
	}
	if color == "" {
		return UserProfile{}, ErrEmptyColor
	}
	if r := []rune(name); len(r) > MaxNameLength {
		name = string(r[:MaxNameLength])
	}
	return UserProfile{Name: name, Color: color}, nil
}

// Connection is a live transport-level connection scoped to one room.
// Implementations must make Send non-blocking.
type Connection interface {
	ID() string
	RoomID() string
	Send(data []byte) error
	Close() error
}

// Registrar tracks connection lifecycle for the transport layer.
type Registrar interface {
	Connect(conn Connection)
	Disconnect(conn Connection)
}

// MessageHandler consumes raw inbound frames from a connection.
type MessageHandler interface {
	Handle(conn Connection, data []byte)
}
