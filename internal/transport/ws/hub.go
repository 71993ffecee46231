package ws

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrBufferFull is returned when a connection cannot keep up.
var ErrBufferFull = errors.New("send buffer full")

const sendBuffer = 64

// Connection represents a single WebSocket connection.
type Connection struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	mu        sync.Mutex
	sessionID string
	closed    bool
}

// SessionID returns the chat session the connection is bound to, if any.
func (c *Connection) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Hub tracks live connections and the chat sessions they follow.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	// session_id -> connection IDs
	sessions map[string]map[string]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		sessions:    make(map[string]map[string]bool),
	}
}

// NewConnection wraps ws and registers it.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	conn := &Connection{
		ID:   uuid.NewString(),
		Conn: ws,
		Send: make(chan []byte, sendBuffer),
	}
	h.mu.Lock()
	h.connections[conn.ID] = conn
	h.mu.Unlock()
	return conn
}

// Unregister removes conn and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.connections[conn.ID]; !ok {
		return
	}
	delete(h.connections, conn.ID)
	h.unbindLocked(conn)

	conn.mu.Lock()
	conn.closed = true
	close(conn.Send)
	conn.mu.Unlock()
}

// BindSession makes conn follow sessionID, leaving any previous session.
func (h *Hub) BindSession(conn *Connection, sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.connections[conn.ID]; !ok {
		return
	}
	h.unbindLocked(conn)

	conn.mu.Lock()
	conn.sessionID = sessionID
	conn.mu.Unlock()
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[string]bool)
	}
	h.sessions[sessionID][conn.ID] = true
}

func (h *Hub) unbindLocked(conn *Connection) {
	conn.mu.Lock()
	old := conn.sessionID
	conn.mu.Unlock()
	if old == "" || h.sessions[old] == nil {
		return
	}
	delete(h.sessions[old], conn.ID)
	if len(h.sessions[old]) == 0 {
		delete(h.sessions, old)
	}
}

// SendJSON queues v for one connection.
func (h *Hub) SendJSON(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.enqueue(data)
}

// BroadcastJSON queues v for every connection following sessionID and
// returns how many connections accepted it.
func (h *Hub) BroadcastJSON(sessionID string, v interface{}) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}

	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.sessions[sessionID]))
	for id := range h.sessions[sessionID] {
		if conn, ok := h.connections[id]; ok {
			targets = append(targets, conn)
		}
	}
	h.mu.RUnlock()

	sent := 0
	for _, conn := range targets {
		if conn.enqueue(data) == nil {
			sent++
		}
	}
	return sent, nil
}

func (c *Connection) enqueue(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// SessionCount returns the number of sessions followed by at least one connection.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
