package api

import (
	"context"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"match-sync/internal/collector"
	"match-sync/internal/logging"
	"match-sync/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

// Hub fans sync events out to websocket subscribers of the event's group.
// It is the Syncer's Observer and a suture service; stopping it closes
// every subscriber.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// OnSyncEvent never blocks: a subscriber whose buffer is full is dropped.
func (h *Hub) OnSyncEvent(e collector.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if c.groupID != e.GroupID {
			continue
		}
		select {
		case c.send <- e:
		default:
			logging.Warn().Str("group", c.groupID).Msg("Dropping slow websocket subscriber")
			h.removeLocked(c)
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Serve(ctx context.Context) error {
	<-ctx.Done()

	h.mu.Lock()
	h.closed = true
	n := len(h.clients)
	for c := range h.clients {
		h.removeLocked(c)
	}
	h.mu.Unlock()

	logging.Info().Int("clients_closed", n).Msg("Websocket hub stopped")
	return ctx.Err()
}

func (h *Hub) String() string {
	return "websocket-hub"
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	metrics.WebSocketClients.Inc()
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	metrics.WebSocketClients.Dec()
}

type client struct {
	hub     *Hub
	conn    *websocket.Conn
	groupID string
	send    chan collector.Event
}

func newClient(hub *Hub, conn *websocket.Conn, groupID string) *client {
	return &client{
		hub:     hub,
		conn:    conn,
		groupID: groupID,
		send:    make(chan collector.Event, sendBuffer),
	}
}

// readPump only exists to notice the peer going away; subscribers have
// nothing to say.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug().Err(err).Msg("Websocket subscriber closed unexpectedly")
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case e, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				logging.Error().Err(err).Msg("Failed to encode sync event")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
