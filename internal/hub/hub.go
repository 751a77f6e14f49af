// Package hub pushes round, guess, prize and chat updates to every connected
// websocket viewer. Delivery is at-least-once per connection: a slow or broken
// client is dropped and re-fetches the full snapshot on reconnect, so all
// observers converge on the authoritative store state.
package hub

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	sendBuffer   = 32
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Event is the wire format for live sync pushes.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan Event
}

type Hub struct {
	mu       sync.Mutex
	clients  map[string]*client
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func New(log *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		log:     log,
		upgrader: websocket.Upgrader{
			// The HTTP layer owns origin policy (CORS); the upgrade
			// accepts any origin the webapp is served from.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Broadcast queues the event on every connected client. Events for the same
// entity are queued in write order because callers broadcast from within the
// mutating operation. Clients that cannot keep up are disconnected.
func (h *Hub) Broadcast(eventType string, payload interface{}) {
	ev := Event{Type: eventType, Payload: payload}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- ev:
		default:
			h.log.WithField("client", id).Warn("hub: client too slow, dropping")
			h.dropLocked(c)
		}
	}
}

// ServeHTTP upgrades the connection and registers the viewer.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("hub: upgrade failed")
		return
	}

	c := &client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan Event, sendBuffer),
	}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.log.WithField("client", c.id).Debug("hub: client connected")

	go h.writePump(c)
	go h.readPump(c)
}

// ClientCount reports the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all viewers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		h.dropLocked(c)
	}
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	_ = c.conn.Close()
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

func (h *Hub) writePump(c *client) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(ev); err != nil {
				h.drop(c)
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.drop(c)
				return
			}
		}
	}
}

// readPump discards inbound frames; the websocket is push-only. Reading is
// still required to process control frames and detect disconnects.
func (h *Hub) readPump(c *client) {
	defer h.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
