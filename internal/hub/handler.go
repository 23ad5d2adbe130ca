package hub

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/asock/catio-cam/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from the same origin; the site itself is
	// the only intended consumer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientMessage is the only inbound payload clients may send.
type clientMessage struct {
	Type string `json:"type"`
}

// pongData answers a client ping with the live connection count.
type pongData struct {
	Connections int `json:"connections"`
}

// ServeWS upgrades the request and keeps the connection in the hub until
// the client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed: %v", err)
		return
	}

	c := &conn{
		ws:   ws,
		send: make(chan []byte, sendBuffer),
	}
	h.add(c)

	go h.writePump(c)
	h.readPump(c)
}

// readPump consumes client messages. Only "ping" is recognized; anything
// else is ignored. Exits on read error, which removes the connection.
func (h *Hub) readPump(c *conn) {
	defer func() {
		h.remove(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug("WebSocket read error: %v", err)
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(pongWait))

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			payload, err := json.Marshal(Event{
				Type: EventPong,
				Data: pongData{Connections: h.Count()},
				Ts:   time.Now().Unix(),
			})
			if err == nil {
				c.trySend(payload)
			}
		}
	}
}

// writePump drains the send channel onto the wire, interleaving protocol
// pings so dead clients are detected.
func (h *Hub) writePump(c *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.remove(c)
		c.ws.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
