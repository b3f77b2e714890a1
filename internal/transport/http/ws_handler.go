package http

import (
	"encoding/json"
	"log"
	"net/http"

	"trivia-service/internal/game"
	"github.com/gorilla/websocket"
)

// DefaultRoom hosts clients that do not name a room.
const DefaultRoom = "lobby"

type WSHandler struct {
	service  *game.Service
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(service *game.Service, hub *Hub) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	Name string `json:"name"`
}

type answerPayload struct {
	Answer   string  `json:"answer"`
	TimeLeft float64 `json:"timeLeft"`
}

type chatPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and feeds inbound intents into
// the game service. Malformed or out-of-precondition intents are dropped
// silently, matching the game's ignore-don't-reject policy.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		room = DefaultRoom
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := h.hub.register(room, conn)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "join":
			var payload joinPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Name == "" {
				continue
			}
			h.service.Join(r.Context(), room, c.id, payload.Name)
		case "start":
			h.service.Start(r.Context(), room, c.id)
		case "submit-answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				continue
			}
			h.service.Submit(r.Context(), room, c.id, payload.Answer, payload.TimeLeft)
		case "chat":
			var payload chatPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				continue
			}
			h.service.Chat(room, c.id, payload.Message)
		}
	}

	// Remove the connection before running the disconnect intent so the
	// departing client never sees its own player-left broadcast.
	h.hub.unregister(c)
	h.service.Disconnect(room, c.id)
	<-writerDone
}
