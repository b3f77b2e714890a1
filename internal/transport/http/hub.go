package http

import (
	"fmt"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type client struct {
	id        string
	room      string
	conn      *websocket.Conn
	send      chan outboundMessage
	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// Hub is the connection registry. It mints connection ids, tracks which room
// each connection belongs to, and implements game.Notifier. Delivery is
// fire-and-forget: a client whose send buffer is full loses the message
// rather than blocking a state transition.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	conns  map[string]*client
	rooms  map[string]map[string]*client
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]*client),
		rooms: make(map[string]map[string]*client),
	}
}

func (h *Hub) register(room string, conn *websocket.Conn) *client {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	c := &client{
		id:   fmt.Sprintf("conn-%d", h.nextID),
		room: room,
		conn: conn,
		send: make(chan outboundMessage, 32),
	}
	h.conns[c.id] = c
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*client)
	}
	h.rooms[room][c.id] = c
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.conns[c.id]; ok {
		delete(h.conns, c.id)
		delete(h.rooms[c.room], c.id)
		if len(h.rooms[c.room]) == 0 {
			delete(h.rooms, c.room)
		}
	}
	h.mu.Unlock()
	c.close()
}

// Broadcast sends an event to every connection in a room.
func (h *Hub) Broadcast(room, event string, payload any) {
	msg := outboundMessage{Type: event, Payload: payload}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[room] {
		select {
		case c.send <- msg:
		default:
			log.Printf("hub: dropping %s for %s, send buffer full", event, c.id)
		}
	}
}

// Unicast sends an event to a single connection, if it is still registered.
func (h *Hub) Unicast(connID, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[connID]
	if !ok {
		return
	}
	select {
	case c.send <- outboundMessage{Type: event, Payload: payload}:
	default:
		log.Printf("hub: dropping %s for %s, send buffer full", event, connID)
	}
}

// IsLive reports whether a connection is still registered.
func (h *Hub) IsLive(connID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[connID]
	return ok
}
