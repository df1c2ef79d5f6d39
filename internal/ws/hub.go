// Package ws is the subscribe side of the real-time bridge: one
// websocket per signed-in client, fed by that user's Redis pub/sub
// channel. Delivery is at-most-once; a client offline at publish time
// catches up from the database on reconnect.
package ws

import (
	"log/slog"
	"sync"
)

// Hub tracks resident websocket clients per profile. A profile may hold
// several connections (multiple devices); each carries its own Redis
// subscription, so the hub only needs registry bookkeeping.
type Hub struct {
	clients    map[uint64]map[string]*Client // profileID -> clientID -> client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	log        *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uint64]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// Run owns the registry. Start once from the composition root.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[client.ProfileID]; !ok {
				h.clients[client.ProfileID] = make(map[string]*Client)
			}
			h.clients[client.ProfileID][client.ID] = client
			h.mu.Unlock()
			h.log.Debug("ws client registered", "client_id", client.ID, "profile", client.ProfileID)

		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clients[client.ProfileID]; ok {
				if _, ok := conns[client.ID]; ok {
					delete(conns, client.ID)
					if len(conns) == 0 {
						delete(h.clients, client.ProfileID)
					}
					close(client.Send)
				}
			}
			h.mu.Unlock()
			h.log.Debug("ws client unregistered", "client_id", client.ID, "profile", client.ProfileID)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// CountForProfile reports how many connections a profile currently holds.
func (h *Hub) CountForProfile(profileID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[profileID])
}
