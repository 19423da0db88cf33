package protocol

import (
	"encoding/base64"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DragonWolfLeo/paint-and-chat-server/domain"
)

type mockConn struct {
	id     string
	roomID string
	mu     sync.Mutex
	sent   [][]byte
}

func (m *mockConn) ID() string     { return m.id }
func (m *mockConn) RoomID() string { return m.roomID }

func (m *mockConn) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, data)
	return nil
}

func (m *mockConn) Close() error { return nil }

type call struct {
	method string
	token  string
	text   string
	blob   []byte
	x, y   int
	w, h   int
}

type recordingRoom struct {
	mu    sync.Mutex
	calls []call
}

func (m *recordingRoom) Authenticate(conn domain.Connection, token string) {
	m.record(call{method: "auth", token: token})
}

func (m *recordingRoom) Chat(conn domain.Connection, text string) {
	m.record(call{method: "chat", text: text})
}

func (m *recordingRoom) ApplyPatch(conn domain.Connection, blob []byte, x, y, width, height int) {
	m.record(call{method: "canvas", blob: blob, x: x, y: y, w: width, h: height})
}

func (m *recordingRoom) Resize(conn domain.Connection, width, height int) {
	m.record(call{method: "resize", w: width, h: height})
}

func (m *recordingRoom) record(c call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func (m *recordingRoom) getCalls() []call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func encode(t *testing.T, eventType string, payload any) []byte {
	t.Helper()
	data, err := Encode(eventType, payload)
	require.NoError(t, err)
	return data
}

func TestHandler_Dispatch(t *testing.T) {
	blob := base64.StdEncoding.EncodeToString([]byte("fragment-bytes"))

	tests := []struct {
		name  string
		frame func(t *testing.T) []byte
		want  []call
	}{
		{
			name: "auth",
			frame: func(t *testing.T) []byte {
				return encode(t, TypeAuth, AuthRequest{Token: "tok123"})
			},
			want: []call{{method: "auth", token: "tok123"}},
		},
		{
			name: "auth without payload means missing token",
			frame: func(t *testing.T) []byte {
				return []byte(`{"type":"auth"}`)
			},
			want: []call{{method: "auth"}},
		},
		{
			name: "chat",
			frame: func(t *testing.T) []byte {
				return encode(t, TypeMessage, ChatRequest{Text: "hi"})
			},
			want: []call{{method: "chat", text: "hi"}},
		},
		{
			name: "canvas",
			frame: func(t *testing.T) []byte {
				return encode(t, TypeCanvas, map[string]any{
					"blob": blob, "x": 1, "y": 2, "width": 3, "height": 4,
				})
			},
			want: []call{{method: "canvas", blob: []byte("fragment-bytes"), x: 1, y: 2, w: 3, h: 4}},
		},
		{
			name: "canvas with data URL blob",
			frame: func(t *testing.T) []byte {
				return encode(t, TypeCanvas, map[string]any{
					"blob": "data:image/png;base64," + blob, "x": 0, "y": 0, "width": 3, "height": 4,
				})
			},
			want: []call{{method: "canvas", blob: []byte("fragment-bytes"), w: 3, h: 4}},
		},
		{
			name: "resize",
			frame: func(t *testing.T) []byte {
				return encode(t, TypeResize, map[string]any{"width": 800, "height": 600})
			},
			want: []call{{method: "resize", w: 800, h: 600}},
		},
		{
			name: "invalid json dropped",
			frame: func(t *testing.T) []byte {
				return []byte("not json")
			},
		},
		{
			name: "unknown type dropped",
			frame: func(t *testing.T) []byte {
				return []byte(`{"type":"teleport","data":{}}`)
			},
		},
		{
			name: "canvas with negative offset dropped",
			frame: func(t *testing.T) []byte {
				return encode(t, TypeCanvas, map[string]any{
					"blob": blob, "x": -1, "y": 0, "width": 3, "height": 4,
				})
			},
		},
		{
			name: "canvas without blob dropped",
			frame: func(t *testing.T) []byte {
				return encode(t, TypeCanvas, map[string]any{
					"x": 0, "y": 0, "width": 3, "height": 4,
				})
			},
		},
		{
			name: "canvas with missing coordinate dropped",
			frame: func(t *testing.T) []byte {
				return encode(t, TypeCanvas, map[string]any{
					"blob": blob, "x": 0, "width": 3, "height": 4,
				})
			},
		},
		{
			name: "canvas with oversized rectangle dropped",
			frame: func(t *testing.T) []byte {
				return encode(t, TypeCanvas, map[string]any{
					"blob": blob, "x": 0, "y": 0, "width": 2000000000, "height": 2000000000,
				})
			},
		},
		{
			name: "canvas with undecodable blob dropped",
			frame: func(t *testing.T) []byte {
				return encode(t, TypeCanvas, map[string]any{
					"blob": "%%%", "x": 0, "y": 0, "width": 3, "height": 4,
				})
			},
		},
		{
			name: "resize beyond bound dropped",
			frame: func(t *testing.T) []byte {
				return encode(t, TypeResize, map[string]any{"width": 2001, "height": 600})
			},
		},
		{
			name: "resize with negative dimension dropped",
			frame: func(t *testing.T) []byte {
				return encode(t, TypeResize, map[string]any{"width": -5, "height": 600})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room := &recordingRoom{}
			handler := NewHandler(func(id string) (Room, bool) {
				if id != "r1" {
					return nil, false
				}
				return room, true
			})
			conn := &mockConn{id: "c1", roomID: "r1"}

			handler.Handle(conn, tt.frame(t))

			assert.Equal(t, tt.want, room.getCalls())
		})
	}
}

func TestHandler_UnknownRoomDropped(t *testing.T) {
	room := &recordingRoom{}
	handler := NewHandler(func(id string) (Room, bool) { return nil, false })
	conn := &mockConn{id: "c1", roomID: "ghost"}

	handler.Handle(conn, encode(t, TypeAuth, AuthRequest{Token: "tok"}))

	assert.Empty(t, room.getCalls())
}
