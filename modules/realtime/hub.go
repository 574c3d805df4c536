package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Conn is the write side of a websocket connection. *websocket.Conn
// satisfies it.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one registered websocket connection. A user with several
// devices has several clients.
type Client struct {
	ID       string
	UserID   string
	Username string

	conn Conn
	// writeMu serializes frames: the read loop acks and the event
	// consumers broadcast on different goroutines.
	writeMu sync.Mutex
}

// NewClient wraps a connection for registration with the hub.
func NewClient(id, userID, username string, conn Conn) *Client {
	return &Client{ID: id, UserID: userID, Username: username, conn: conn}
}

// Send writes one envelope to the connection.
func (c *Client) Send(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub tracks connections and their room memberships and fans frames out
// to rooms. All maps are guarded by mu; writes to individual connections
// are serialized per client so broadcasts can run under the read lock.
type Hub struct {
	mu          sync.RWMutex
	clients     map[string]*Client         // connID -> client
	rooms       map[string]map[string]bool // roomID -> connID set
	clientRooms map[string]map[string]bool // connID -> roomID set
	logger      *slog.Logger
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:     make(map[string]*Client),
		rooms:       make(map[string]map[string]bool),
		clientRooms: make(map[string]map[string]bool),
		logger:      slog.Default(),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
	h.logger.Debug("client registered", "connID", c.ID, "userID", c.UserID)
}

// Unregister removes a client and clears its room memberships. Safe to
// call for an unknown connID.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomID := range h.clientRooms[connID] {
		delete(h.rooms[roomID], connID)
		if len(h.rooms[roomID]) == 0 {
			delete(h.rooms, roomID)
		}
	}
	delete(h.clientRooms, connID)
	delete(h.clients, connID)
}

// JoinRoom adds the connection to a room. Joining twice is a no-op.
func (h *Hub) JoinRoom(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; !ok {
		return
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]bool)
	}
	h.rooms[roomID][connID] = true
	if h.clientRooms[connID] == nil {
		h.clientRooms[connID] = make(map[string]bool)
	}
	h.clientRooms[connID][roomID] = true
}

// LeaveRoom removes the connection from a room.
func (h *Hub) LeaveRoom(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms[roomID], connID)
	if len(h.rooms[roomID]) == 0 {
		delete(h.rooms, roomID)
	}
	delete(h.clientRooms[connID], roomID)
}

// InRoom reports whether the connection is a member of the room.
func (h *Hub) InRoom(connID, roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[roomID][connID]
}

// Client returns the client for a connID, or nil.
func (h *Hub) Client(connID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[connID]
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize returns the number of connections in a room.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// BroadcastToRoom sends an event to every connection in the room except
// exceptConnID. A failed write is logged and does not stop the fan-out.
func (h *Hub) BroadcastToRoom(roomID, event string, payload any, exceptConnID string) {
	env, err := marshalEnvelope(event, payload)
	if err != nil {
		h.logger.Error("failed to marshal broadcast payload", "event", event, "error", err)
		return
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[roomID]))
	for connID := range h.rooms[roomID] {
		if connID == exceptConnID {
			continue
		}
		if c, ok := h.clients[connID]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.Send(env); err != nil {
			h.logger.Warn("failed to send to client", "connID", c.ID, "event", event, "error", err)
		}
	}
}

// BroadcastAll sends an event to every registered connection except
// exceptConnID.
func (h *Hub) BroadcastAll(event string, payload any, exceptConnID string) {
	env, err := marshalEnvelope(event, payload)
	if err != nil {
		h.logger.Error("failed to marshal broadcast payload", "event", event, "error", err)
		return
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for connID, c := range h.clients {
		if connID == exceptConnID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.Send(env); err != nil {
			h.logger.Warn("failed to send to client", "connID", c.ID, "event", event, "error", err)
		}
	}
}

// SendTo sends an event to a single connection.
func (h *Hub) SendTo(connID, event string, payload any) error {
	env, err := marshalEnvelope(event, payload)
	if err != nil {
		return err
	}
	h.mu.RLock()
	c := h.clients[connID]
	h.mu.RUnlock()
	if c == nil {
		return nil
	}
	return c.Send(env)
}

// CloseAll closes every connection and clears the hub.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for connID, c := range h.clients {
		if err := c.conn.Close(); err != nil {
			h.logger.Debug("error closing client connection", "connID", connID, "error", err)
		}
	}
	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]bool)
	h.clientRooms = make(map[string]map[string]bool)
}

func marshalEnvelope(event string, payload any) (Envelope, error) {
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, err
		}
		env.Data = data
	}
	return env, nil
}
