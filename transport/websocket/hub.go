package websocket

import (
	"log/slog"
	"sync"
)

// Hub tracks live connections by id and delivers encoded frames to them.
// Sends never block: a full buffer drops the frame for that connection.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger.With("component", "ws_hub"),
		clients: make(map[string]*client),
	}
}

// register adds c. A closed hub refuses it and closes its connection.
func (that *Hub) register(c *client) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		c.closeSend()
		_ = c.conn.Close()
		return false
	}

	that.clients[c.id] = c

	return true
}

// unregister removes c and closes its send queue. It reports whether c was
// still registered.
func (that *Hub) unregister(c *client) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	current, ok := that.clients[c.id]
	if !ok || current != c {
		return false
	}

	delete(that.clients, c.id)
	c.closeSend()

	return true
}

// deliver must be called with the read lock held.
func (that *Hub) deliver(c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		that.logger.Warn("send buffer full, frame dropped", "connection", c.id)
	}
}

func (that *Hub) Send(connID string, data []byte) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	if c, ok := that.clients[connID]; ok {
		that.deliver(c, data)
	}
}

func (that *Hub) SendAll(data []byte) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	for _, c := range that.clients {
		that.deliver(c, data)
	}
}

func (that *Hub) SendAllExcept(connID string, data []byte) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	for id, c := range that.clients {
		if id != connID {
			that.deliver(c, data)
		}
	}
}

func (that *Hub) Len() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.clients)
}

// Close drops every connection. Their read loops end and run the usual
// disconnect path.
func (that *Hub) Close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.closed = true

	for id, c := range that.clients {
		c.closeSend()
		_ = c.conn.Close()
		delete(that.clients, id)
	}

	that.logger.Info("hub closed")
}
