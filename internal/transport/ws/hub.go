package ws

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// Hub tracks live WebSocket clients and closes them on shutdown. Clients
// stream from their own watches, so the hub does no routing.
type Hub struct {
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	count      atomic.Int64

	log *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run is the hub's main loop. It returns after ctx ends and every client has
// been told to close.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.count.Store(int64(len(h.clients)))
			h.log.Debug("ws client connected", zap.String("user_id", client.userID), zap.Int("total", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				h.count.Store(int64(len(h.clients)))
				h.log.Debug("ws client disconnected", zap.String("user_id", client.userID), zap.Int("total", len(h.clients)))
			}

		case <-ctx.Done():
			for client := range h.clients {
				client.Close()
			}
			h.log.Info("ws hub stopped", zap.Int("closed", len(h.clients)))
			clear(h.clients)
			h.count.Store(0)
			return
		}
	}
}

// Register adds c; after shutdown c is closed instead.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Count reports the number of registered clients.
func (h *Hub) Count() int {
	return int(h.count.Load())
}
