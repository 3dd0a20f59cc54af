package realtime

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yukikurage/team-task-api/internal/events"
	"github.com/yukikurage/team-task-api/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client is one WebSocket connection. rooms is guarded by the hub's lock.
type Client struct {
	id       string
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	identity Identity
	rooms    map[string]struct{}
}

type inbound struct {
	Type   string          `json:"type"`
	UserID json.RawMessage `json:"userId"`
}

func newClient(h *Hub, conn *websocket.Conn, id Identity) *Client {
	return &Client{
		id:       newClientID(),
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		identity: id,
		rooms:    make(map[string]struct{}),
	}
}

// enqueue must be called with the hub's read lock held
func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		c.hub.logger.Warn("client send buffer full, dropping event", "client", c.id)
	}
}

func (c *Client) reply(event string, data any) {
	payload, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c.id]; ok {
		c.enqueue(payload)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply("error", map[string]string{"message": "Malformed message"})
			continue
		}

		switch msg.Type {
		case "join-room":
			c.handleJoin(msg.UserID)
		default:
			c.reply("error", map[string]string{"message": "Unknown message type"})
		}
	}
}

// handleJoin admits a client to its own room. Admins may join any user's room.
func (c *Client) handleJoin(raw json.RawMessage) {
	target, ok := parseUserID(raw)
	if !ok {
		target = c.identity.UserID
	}

	if target != c.identity.UserID && c.identity.Role != models.RoleAdmin {
		c.reply("error", map[string]string{"message": "You can only join your own room"})
		return
	}

	room := events.UserRoom(target)
	c.hub.join(c, room)
	c.reply("room-joined", map[string]string{"room": room})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// parseUserID accepts the id as a JSON number or string
func parseUserID(raw json.RawMessage) (uint64, bool) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, false
	}
	id, err := strconv.ParseUint(s, 10, 64)
	return id, err == nil
}
