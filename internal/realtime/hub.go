// Package realtime pushes recording status changes to the UI shell over a
// WebSocket, so it does not have to poll the history while visible. The
// polling read path stays authoritative.
package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/screenloom/backend/internal/models"
)

// EventRecordingStatus names the event sent when a recording row changes.
const EventRecordingStatus = "recording.status"

// WSMessage is the wire envelope for hub events.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Hub tracks connected shell clients and broadcasts recording events.
// Single room: the desktop shell is the only audience.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	logger  *zap.Logger
}

// NewHub creates a hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{clients: make(map[*Client]bool), logger: logger}
}

// Register adds a client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("shell client connected", zap.Int("clients", n))
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("shell client disconnected", zap.Int("clients", n))
}

// NotifyRecording broadcasts a recording row to all connected clients.
// Slow clients are skipped rather than blocking the correlator or pipeline.
func (h *Hub) NotifyRecording(rec *models.Recording) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	raw, err := json.Marshal(WSMessage{Event: EventRecordingStatus, Data: data})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- raw:
		default:
			h.logger.Warn("dropping event for slow shell client")
		}
	}
}
