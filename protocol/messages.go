// Package protocol defines the closed set of events exchanged over a room's
// websocket channel and dispatches decoded, validated inbound events to the
// room authority.
package protocol

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/DragonWolfLeo/paint-and-chat-server/canvas"
	"github.com/DragonWolfLeo/paint-and-chat-server/domain"
)

// Envelope event types.
const (
	TypeAuth    = "auth"
	TypeMessage = "message"
	TypeCanvas  = "canvas"
	TypeResize  = "resize"
)

// User event discriminators carried inside a "message" envelope.
const (
	EventUserJoin       = "user_join"
	EventUserMessage    = "user_message"
	EventUserDisconnect = "user_disconnect"
)

// Envelope wraps every frame on the wire.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// AuthRequest carries the admission token.
type AuthRequest struct {
	Token string `json:"token"`
}

// ChatRequest carries a chat message.
type ChatRequest struct {
	Text string `json:"text"`
}

// CanvasRequest asks to composite an encoded image fragment over the
// rectangle (x, y, width, height) of the room canvas. Coordinates are numbers
// per the wire format; negatives are rejected at the boundary, and the
// rectangle size is capped at the canvas bound so a hostile frame cannot
// force a huge scale-buffer allocation.
type CanvasRequest struct {
	Blob   string   `json:"blob" validate:"required"`
	X      *float64 `json:"x" validate:"required,gte=0"`
	Y      *float64 `json:"y" validate:"required,gte=0"`
	Width  *float64 `json:"width" validate:"required,gte=0,lte=2000"`
	Height *float64 `json:"height" validate:"required,gte=0,lte=2000"`
}

// ResizeRequest asks to change the canvas dimensions.
type ResizeRequest struct {
	Width  *float64 `json:"width" validate:"required,gte=0,lte=2000"`
	Height *float64 `json:"height" validate:"required,gte=0,lte=2000"`
}

// AuthReply answers an auth event. Error is set on rejection, User on
// admission, never both.
type AuthReply struct {
	User  *domain.UserProfile `json:"user,omitempty"`
	Error string              `json:"error,omitempty"`
}

// UserEvent is a join, chat, or disconnect notification.
type UserEvent struct {
	Type    string             `json:"type"`
	User    domain.UserProfile `json:"user"`
	Message string             `json:"message,omitempty"`
}

// CanvasPush carries encoded canvas pixels to clients: a partial-region patch
// after compositing, or a full snapshot (SetWidth/SetHeight present) on
// admission and resize.
type CanvasPush struct {
	Buffer    string `json:"buffer"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SetWidth  *int   `json:"setWidth,omitempty"`
	SetHeight *int   `json:"setHeight,omitempty"`
}

// Encode wraps a payload in an Envelope and marshals it.
func Encode(eventType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Data: data})
}

// NewPatchPush builds the canvas event for a partial-region patch.
func NewPatchPush(p canvas.Patch) CanvasPush {
	return CanvasPush{
		Buffer: base64.StdEncoding.EncodeToString(p.Data),
		X:      p.X,
		Y:      p.Y,
		Width:  p.Width,
		Height: p.Height,
	}
}

// NewSnapshotPush builds the canvas event for a full-canvas replacement.
func NewSnapshotPush(p canvas.Patch) CanvasPush {
	push := NewPatchPush(p)
	push.SetWidth = &p.Width
	push.SetHeight = &p.Height
	return push
}

// DecodeBlob decodes a client-supplied image blob: base64, with an optional
// data-URL prefix.
func DecodeBlob(blob string) ([]byte, error) {
	if i := strings.IndexByte(blob, ','); i >= 0 && strings.HasPrefix(blob, "data:") {
		blob = blob[i+1:]
	}
	return base64.StdEncoding.DecodeString(blob)
}
