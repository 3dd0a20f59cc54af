// Package realtime pushes task events to WebSocket clients grouped in
// per-user rooms.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/yukikurage/team-task-api/internal/events"
	"github.com/yukikurage/team-task-api/internal/logger"
	"github.com/yukikurage/team-task-api/internal/models"
)

// Frame is the wire format of server-to-client messages
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Identity is the authenticated user behind a connection
type Identity struct {
	UserID uint64
	Role   models.Role
}

// Hub tracks connected clients and the rooms they joined
type Hub struct {
	clients  map[string]*Client
	rooms    map[string]map[string]*Client
	mu       sync.RWMutex
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewHub(checkOrigin func(r *http.Request) bool, l *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger.OrDefault(l).With("component", "realtime"),
	}
}

// Serve upgrades the request and runs the connection until it closes
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, id Identity) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := newClient(h, conn, id)
	h.register(client)

	go client.writePump()
	client.readPump()
	return nil
}

// Publish implements events.Publisher. Slow clients whose buffer is full miss
// the event rather than stall the publisher.
func (h *Hub) Publish(_ context.Context, e events.Event) {
	data, err := json.Marshal(Frame{Event: e.Name, Data: e.Payload})
	if err != nil {
		h.logger.Warn("failed to marshal event", "event", e.Name, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := h.clients
	if e.Room != "" {
		targets = h.rooms[e.Room]
	}
	for _, c := range targets {
		c.enqueue(data)
	}
}

// Run closes every connection once ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.clients {
		_ = c.conn.Close()
	}
	h.logger.Info("realtime hub stopped", "clients", len(h.clients))
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of clients in a room
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c.id] = c
	h.logger.Debug("client connected", "client", c.id, "user", c.identity.UserID)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	for room := range c.rooms {
		delete(h.rooms[room], c.id)
		if len(h.rooms[room]) == 0 {
			delete(h.rooms, room)
		}
	}
	close(c.send)
	h.logger.Debug("client disconnected", "client", c.id)
}

func (h *Hub) join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*Client)
	}
	h.rooms[room][c.id] = c
	c.rooms[room] = struct{}{}
}

func newClientID() string {
	return uuid.NewString()
}
