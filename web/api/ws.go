package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/hochfrequenz/review-coordinator/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024 * 16,
	CheckOrigin: func(r *http.Request) bool {
		return true // local dashboard only; restrict before exposing beyond loopback
	},
}

// WebSocket message types to client.
const (
	wsMsgRunUpdate = "run_update"
	wsMsgRunClear  = "run_clear"
)

// wsMessage is the envelope for every message sent to clients.
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// wsHub fans run updates out to all connected clients
type wsHub struct {
	clients    map[chan wsMessage]bool
	broadcast  chan wsMessage
	register   chan chan wsMessage
	unregister chan chan wsMessage
	mu         sync.RWMutex
}

func newWSHub() *wsHub {
	return &wsHub{
		clients:    make(map[chan wsMessage]bool),
		broadcast:  make(chan wsMessage, 16),
		register:   make(chan chan wsMessage),
		unregister: make(chan chan wsMessage),
	}
}

func (h *wsHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client <- msg:
				default:
					// Slow client; drop it rather than stall the hub.
					close(client)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// PublishRun pushes a run snapshot to every connected client. Wired as the
// engine's change hook; a nil state signals a reset.
func (s *Server) PublishRun(state *domain.CoordinationState) {
	if state == nil {
		s.hub.broadcast <- wsMessage{Type: wsMsgRunClear}
		return
	}
	data, err := json.Marshal(statusFromState(state))
	if err != nil {
		log.Printf("ws marshal: %v", err)
		return
	}
	s.hub.broadcast <- wsMessage{Type: wsMsgRunUpdate, Data: data}
}

func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	client := make(chan wsMessage, 8)
	s.hub.register <- client
	defer func() { s.hub.unregister <- client }()

	// Send the current snapshot immediately so a fresh client never waits
	// for the next mutation.
	if state, err := s.engine.Status(); err == nil {
		if data, err := json.Marshal(statusFromState(state)); err == nil {
			conn.WriteJSON(wsMessage{Type: wsMsgRunUpdate, Data: data})
		}
	}

	// Drain client reads so close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-client:
			if !ok {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("ws write: %v", err)
				}
				return
			}
		case <-done:
			return
		}
	}
}
