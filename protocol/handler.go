package protocol

import (
	"encoding/json"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/DragonWolfLeo/paint-and-chat-server/domain"
)

// Room is what the dispatcher needs from the room authority.
type Room interface {
	Authenticate(conn domain.Connection, token string)
	Chat(conn domain.Connection, text string)
	ApplyPatch(conn domain.Connection, blob []byte, x, y, width, height int)
	Resize(conn domain.Connection, width, height int)
}

// Handler decodes inbound frames, validates payloads at the boundary, and
// dispatches to the connection's room. Malformed frames are dropped without
// touching room logic.
type Handler struct {
	lookup   func(roomID string) (Room, bool)
	validate *validator.Validate
}

// NewHandler creates a dispatcher routing events through the given room
// lookup.
func NewHandler(lookup func(roomID string) (Room, bool)) *Handler {
	return &Handler{lookup: lookup, validate: validator.New()}
}

func (h *Handler) Handle(conn domain.Connection, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		slog.Warn("invalid frame", "connId", conn.ID(), "error", err)
		return
	}

	room, ok := h.lookup(conn.RoomID())
	if !ok {
		slog.Warn("event for unknown room", "room", conn.RoomID(), "connId", conn.ID())
		return
	}

	switch env.Type {
	case TypeAuth:
		var req AuthRequest
		if len(env.Data) > 0 && json.Unmarshal(env.Data, &req) != nil {
			slog.Warn("invalid auth payload", "connId", conn.ID())
			return
		}
		room.Authenticate(conn, req.Token)

	case TypeMessage:
		var req ChatRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			slog.Warn("invalid chat payload", "connId", conn.ID(), "error", err)
			return
		}
		room.Chat(conn, req.Text)

	case TypeCanvas:
		var req CanvasRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			slog.Warn("invalid canvas payload", "connId", conn.ID(), "error", err)
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			slog.Warn("canvas payload failed validation", "connId", conn.ID(), "error", err)
			return
		}
		blob, err := DecodeBlob(req.Blob)
		if err != nil {
			slog.Warn("undecodable canvas blob", "connId", conn.ID(), "error", err)
			return
		}
		room.ApplyPatch(conn, blob, int(*req.X), int(*req.Y), int(*req.Width), int(*req.Height))

	case TypeResize:
		var req ResizeRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			slog.Warn("invalid resize payload", "connId", conn.ID(), "error", err)
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			slog.Warn("resize payload failed validation", "connId", conn.ID(), "error", err)
			return
		}
		room.Resize(conn, int(*req.Width), int(*req.Height))

	default:
		slog.Warn("unknown event type", "type", env.Type, "connId", conn.ID())
	}
}
