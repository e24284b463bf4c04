package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"handteleop/internal/pipeline"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// OverlayHandler broadcasts per-frame overlay payloads (landmarks, status,
// pose) to WebSocket clients. The pipeline pushes into Publish; delivery is
// best effort and never reports back.
type OverlayHandler struct {
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewOverlayHandler creates an OverlayHandler with no clients.
func NewOverlayHandler() *OverlayHandler {
	return &OverlayHandler{
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *OverlayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Publish fans an overlay payload out to every connected client.
// Implements pipeline.OverlayFunc.
func (h *OverlayHandler) Publish(o pipeline.Overlay) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return
	}

	msg, err := json.Marshal(o)
	if err != nil {
		return
	}

	for conn := range h.clients {
		conn.WriteMessage(websocket.TextMessage, msg)
	}
}

// ClientCount returns the number of connected overlay consumers.
func (h *OverlayHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
