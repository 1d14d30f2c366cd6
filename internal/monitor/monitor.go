// Package monitor pushes coroutine lifecycle events (spawned, terminated)
// to connected websocket clients: a server registry broadcasting to
// every accepted client by id, narrowed to this module's one job: an
// optional read-only live view of one running Instance, off by default.
package monitor

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is one pushed notification, serialized as JSON to every connected
// client.
type Event struct {
	Kind        string    `json:"kind"` // "spawned" | "terminated"
	CoroutineID int       `json:"coroutine_id"`
	Detail      string    `json:"detail,omitempty"`
	At          time.Time `json:"at"`
}

// Hub holds every currently-connected monitor client and broadcasts Events
// to all of them.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub creates an empty Hub. CheckOrigin is left permissive (this module
// narrows CORS/auth to the caller's own http.Handler wrapping, not Hub's
// concern).
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:  make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request to a websocket and registers the
// connection as a broadcast target until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	// Monitor clients are receive-only; drain and discard anything a client
	// sends so a dead connection is detected promptly.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast pushes ev to every currently-connected client, dropping any
// connection that fails to accept the write.
func (h *Hub) Broadcast(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	h.mu.Lock()
	dead := make([]*websocket.Conn, 0)
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			dead = append(dead, conn)
		}
	}
	for _, conn := range dead {
		delete(h.clients, conn)
	}
	h.mu.Unlock()

	for _, conn := range dead {
		conn.Close()
	}
}

// ClientCount reports how many monitor clients are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
