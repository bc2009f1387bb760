// Package notifier pushes aggregate statistics to websocket subscribers
// whenever the catalog changes.
package notifier

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Event names exchanged with clients.
const (
	EventRequestStats = "request_stats"
	EventRefreshStats = "refresh_stats"
	EventStatsUpdate  = "stats_update"
	EventStatsError   = "stats_error"
)

// Frame is the wire envelope for every websocket message.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// statsMetrics is the subset of MetricsService the hub reports into.
type statsMetrics interface {
	ClientConnected()
	ClientDisconnected()
	RecordBroadcast()
	RecordDroppedFrame()
}

// Hub tracks connected clients and fans broadcast frames out to them.
// Delivery is best effort: a client whose send buffer is full loses the
// frame, and repeated losses evict the client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	metrics statsMetrics
	logger  *zap.Logger
}

// NewHub constructs an empty hub.
func NewHub(metrics statsMetrics, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		metrics: metrics,
		logger:  logger,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ClientConnected()
	}
	h.logger.Debug("stats client connected", zap.String("user_id", c.userID), zap.Int("clients", count))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.closeSend()
	if h.metrics != nil {
		h.metrics.ClientDisconnected()
	}
	h.logger.Debug("stats client disconnected", zap.String("user_id", c.userID), zap.Int("clients", count))
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends one frame to every connected client. Clients that cannot
// keep up are evicted rather than allowed to block the fan-out.
func (h *Hub) Broadcast(event string, payload interface{}) {
	frame, err := marshalFrame(event, payload)
	if err != nil {
		h.logger.Error("failed to marshal broadcast frame", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	var evicted []*Client
	for _, c := range targets {
		if !c.trySend(frame) {
			if h.metrics != nil {
				h.metrics.RecordDroppedFrame()
			}
			evicted = append(evicted, c)
		}
	}
	for _, c := range evicted {
		h.logger.Warn("evicting slow stats client", zap.String("user_id", c.userID))
		h.unregister(c)
	}

	if h.metrics != nil {
		h.metrics.RecordBroadcast()
	}
}

// Shutdown disconnects every client.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.closeSend()
		if h.metrics != nil {
			h.metrics.ClientDisconnected()
		}
	}
}

func marshalFrame(event string, payload interface{}) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = encoded
	}
	return json.Marshal(Frame{Event: event, Payload: raw})
}
