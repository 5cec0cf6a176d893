package websocket

import (
	"sync"

	"github.com/prappser/gallery_server/internal/asset"
	"github.com/rs/zerolog/log"
)

// Hub fans lifecycle events out to subscribed clients. It implements
// asset.EventPublisher.
type Hub struct {
	clients    map[*Client]bool
	byOwner    map[string][]*Client // owner (or "all") -> subscribers
	register   chan *Client
	unregister chan *Client
	broadcast  chan *asset.Event
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		byOwner:    make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *asset.Event, 256),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case ev := <-h.broadcast:
			h.broadcastEvent(ev)

		case <-h.done:
			return
		}
	}
}

func (h *Hub) Stop() {
	close(h.done)
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = true

	log.Info().
		Str("clientId", client.id).
		Int("totalClients", len(h.clients)).
		Msg("[WS] Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	close(client.send)

	for _, owner := range client.Subscriptions() {
		h.removeFromOwnerSubscribers(client, owner)
	}

	log.Info().
		Str("clientId", client.id).
		Int("totalClients", len(h.clients)).
		Msg("[WS] Client unregistered")
}

func (h *Hub) removeFromOwnerSubscribers(client *Client, owner string) {
	ownerClients := h.byOwner[owner]
	for i, c := range ownerClients {
		if c == client {
			h.byOwner[owner] = append(ownerClients[:i], ownerClients[i+1:]...)
			break
		}
	}
	if len(h.byOwner[owner]) == 0 {
		delete(h.byOwner, owner)
	}
}

func (h *Hub) Subscribe(client *Client, owner string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.byOwner[owner] {
		if c == client {
			return
		}
	}

	h.byOwner[owner] = append(h.byOwner[owner], client)

	log.Debug().
		Str("owner", owner).
		Int("subscribers", len(h.byOwner[owner])).
		Msg("[WS] Owner subscription added")
}

func (h *Hub) Unsubscribe(client *Client, owner string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromOwnerSubscribers(client, owner)

	log.Debug().
		Str("owner", owner).
		Int("subscribers", len(h.byOwner[owner])).
		Msg("[WS] Owner subscription removed")
}

// recipients returns the subscribers of the event's owner plus the "all"
// subscribers, each once. Events without an owner go to "all" only.
func (h *Hub) recipients(ev *asset.Event) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[*Client]bool)
	var clients []*Client
	for _, owner := range []string{ev.Owner, asset.AllOwners} {
		if owner == "" {
			continue
		}
		for _, c := range h.byOwner[owner] {
			if !seen[c] {
				seen[c] = true
				clients = append(clients, c)
			}
		}
	}
	return clients
}

func (h *Hub) broadcastEvent(ev *asset.Event) {
	clients := h.recipients(ev)
	if len(clients) == 0 {
		return
	}

	msg := &EventsMessage{
		Type:   MessageTypeEvents,
		Events: []*asset.Event{ev},
	}

	for _, client := range clients {
		select {
		case client.send <- msg:
		default:
			log.Warn().
				Str("clientId", client.id).
				Str("owner", ev.Owner).
				Msg("[WS] Client send buffer full, dropping message")
		}
	}

	log.Debug().
		Str("type", string(ev.Type)).
		Str("owner", ev.Owner).
		Int("recipients", len(clients)).
		Msg("[WS] Event broadcast complete")
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues ev for delivery. When the queue is full the event is dropped
// rather than stalling the operation that produced it.
func (h *Hub) Publish(ev *asset.Event) {
	select {
	case h.broadcast <- ev:
	default:
		log.Warn().
			Str("type", string(ev.Type)).
			Msg("[WS] Broadcast queue full, dropping event")
	}
}

func (h *Hub) GetStats() (totalClients, totalSubscriptions int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	totalClients = len(h.clients)
	for _, clients := range h.byOwner {
		totalSubscriptions += len(clients)
	}
	return
}
