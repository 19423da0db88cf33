package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/DragonWolfLeo/paint-and-chat-server/protocol"
	"github.com/DragonWolfLeo/paint-and-chat-server/room"
	ws "github.com/DragonWolfLeo/paint-and-chat-server/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.LogLevel)

	manager := room.NewManager(room.Config{
		AuthGrace: cfg.AuthGrace,
		IdleGrace: cfg.RoomIdle,
	})
	handler := protocol.NewHandler(func(id string) (protocol.Room, bool) {
		r, ok := manager.Get(id)
		if !ok {
			return nil, false
		}
		return r, true
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: newMux(manager, handler),
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogger(logLevel string) {
	level := slog.LevelInfo
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func newMux(manager *room.Manager, handler *protocol.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /create", createHandler(manager))
	mux.HandleFunc("POST /join/{room}", joinHandler(manager))
	mux.HandleFunc("GET /check/{room}", checkHandler(manager))
	mux.HandleFunc("GET /check/{room}/{token...}", checkHandler(manager))
	mux.HandleFunc("GET /ws/{room}", wsHandler(manager, handler))
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /stats", statsHandler(manager))
	return mux
}

type joinBody struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func createHandler(manager *room.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body joinBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		rm := manager.Create()
		token, err := rm.IssueToken(body.Name, body.Color)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"room": rm.ID(), "token": token})
	}
}

func joinHandler(manager *room.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm, ok := manager.Get(r.PathValue("room"))
		if !ok {
			writeError(w, http.StatusNotFound, "room does not exist")
			return
		}

		var body joinBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		token, err := rm.IssueToken(body.Name, body.Color)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"room": rm.ID(), "token": token})
	}
}

func checkHandler(manager *room.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm, ok := manager.Get(r.PathValue("room"))
		if !ok {
			writeError(w, http.StatusNotFound, "room does not exist")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"authorized": rm.HasToken(r.PathValue("token"))})
	}
}

func wsHandler(manager *room.Manager, handler *protocol.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.PathValue("room")
		if _, ok := manager.Get(roomID); !ok {
			writeError(w, http.StatusNotFound, "room does not exist")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("upgrade error", "error", err)
			return
		}

		wsConn := ws.NewConn(uuid.New().String(), roomID, conn, manager, handler)
		wsConn.Start()
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statsHandler(manager *room.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, clients := manager.Stats()
		writeJSON(w, http.StatusOK, map[string]int{"rooms": rooms, "clients": clients})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
