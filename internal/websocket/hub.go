package websocket

import (
	"log/slog"
	"sync"

	"github.com/mwilkes/basket/internal/feed"
)

// Hub maintains the set of active WebSocket clients and pushes change-feed
// events to them. Delivery is scoped: an event goes only to the sessions of
// the users named in the recipient set, so non-collaborators never observe a
// list's traffic.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Publish encodes the event and delivers it to every connection belonging to
// a user in recipients. Per-connection delivery order matches publish order;
// no ordering holds across different rows.
func (h *Hub) Publish(recipients []int64, ev feed.Event) {
	data, err := feed.Encode(ev)
	if err != nil {
		h.logger.Error("encode event", "error", err)
		return
	}

	allow := make(map[int64]struct{}, len(recipients))
	for _, id := range recipients {
		allow[id] = struct{}{}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if _, ok := allow[c.userID]; !ok {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client buffer full — drop rather than block the publisher.
			// The client recovers via an explicit refresh.
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
