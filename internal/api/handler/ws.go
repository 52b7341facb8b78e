// internal/api/handler/ws.go
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
)

// SocketServer upgrades a request into an in-app notification session.
type SocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID string)
}

// NotificationHandler serves the in-app websocket.
type NotificationHandler struct {
	hub    SocketServer
	logger *slog.Logger
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(hub SocketServer, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{hub: hub, logger: logger}
}

// Connect upgrades to a websocket for the acting user. Browsers cannot set
// headers on the upgrade request, so user_id is also accepted as a query value.
// GET /ws
func (h *NotificationHandler) Connect(w http.ResponseWriter, r *http.Request) {
	raw := r.Header.Get(HeaderActorID)
	if raw == "" {
		raw = r.URL.Query().Get("user_id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "missing actor id", http.StatusUnauthorized)
		return
	}
	h.hub.ServeWS(w, r, strconv.FormatInt(id, 10))
}
