package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/asock/catio-cam/internal/logging"
	"github.com/asock/catio-cam/internal/metrics"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = 30 * time.Second

	maxMessageSize = 4 * 1024

	sendBuffer = 32
)

// Event types pushed to connected viewers.
const (
	EventNewAsset        = "new_asset"
	EventPublished       = "published"
	EventRejected        = "rejected"
	EventFeaturedChanged = "featured_changed"
	EventAssetDeleted    = "asset_deleted"
	EventPong            = "pong"
)

// Event is the envelope broadcast to every connected client.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
	Ts   int64  `json:"ts"`
}

// conn is one connected viewer. Writes are serialized through the send
// channel; the reader goroutine only consumes pings.
type conn struct {
	ws   *websocket.Conn
	send chan []byte

	// mu guards closed and the send channel so a broadcast can never
	// race a close into a send on a closed channel.
	mu     sync.Mutex
	closed bool
}

func (c *conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// trySend queues a payload without blocking. Returns false when the
// client's buffer is full or the connection is closed, marking it for
// pruning.
func (c *conn) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Hub fans broadcast events out to every connected WebSocket client.
type Hub struct {
	mu    sync.RWMutex
	conns map[*conn]struct{}
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{conns: make(map[*conn]struct{})}
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast sends an event to every connected client. Clients that
// cannot keep up are pruned rather than blocking the broadcaster.
func (h *Hub) Broadcast(eventType string, data any) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data, Ts: time.Now().Unix()})
	if err != nil {
		logging.Error("Failed to marshal %s event: %v", eventType, err)
		return
	}

	metrics.BroadcastsTotal.WithLabelValues(eventType).Inc()

	var stale []*conn

	h.mu.RLock()
	for c := range h.conns {
		if !c.trySend(payload) {
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.remove(c)
		metrics.BroadcastPrunesTotal.Inc()
		logging.Debug("Pruned slow client during %s broadcast", eventType)
	}
}

func (h *Hub) add(c *conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()

	metrics.LiveConnections.Set(float64(n))
	logging.Debug("Client connected, %d live", n)
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	_, present := h.conns[c]
	delete(h.conns, c)
	n := len(h.conns)
	h.mu.Unlock()

	if present {
		c.close()
		metrics.LiveConnections.Set(float64(n))
		logging.Debug("Client disconnected, %d live", n)
	}
}

// CloseAll tears down every connection, used during shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[*conn]struct{})
	h.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
	metrics.LiveConnections.Set(0)
}
