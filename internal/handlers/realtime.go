package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/team-task-api/internal/realtime"
)

// RealtimeHandler upgrades authenticated requests to WebSocket connections.
type RealtimeHandler struct {
	hub *realtime.Hub
}

func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// Connect serves GET /ws. The upgrader answers failed handshakes itself.
func (h *RealtimeHandler) Connect(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	if err := h.hub.Serve(c.Writer, c.Request, realtime.Identity{UserID: who.ID, Role: who.Role}); err != nil {
		slog.Debug("websocket upgrade failed", "user_id", who.ID, "error", err)
	}
}
