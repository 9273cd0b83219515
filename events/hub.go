package events

import (
	"sync"

	"go.uber.org/zap"

	"netwarden/logger"
)

// Hub fans out events to in-process subscribers. Delivery is best-effort:
// each subscriber owns a buffered channel and a subscriber that cannot
// keep up simply misses events; there is no queueing, replay or
// backpressure. Reconnecting subscribers are expected to re-fetch current
// state as a fresh snapshot.
type Hub struct {
	mu         sync.RWMutex
	clients    map[string]chan Message
	register   chan registration
	unregister chan string
	broadcast  chan Message
	shutdown   chan struct{}
}

type registration struct {
	id string
	ch chan Message
}

// NewHub creates and starts a Hub.
func NewHub() *Hub {
	h := &Hub{
		clients:    make(map[string]chan Message),
		register:   make(chan registration),
		unregister: make(chan string),
		broadcast:  make(chan Message, 100),
		shutdown:   make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case reg := <-h.register:
			h.mu.Lock()
			h.clients[reg.id] = reg.ch
			h.mu.Unlock()
		case id := <-h.unregister:
			h.mu.Lock()
			if ch, ok := h.clients[id]; ok {
				close(ch)
				delete(h.clients, id)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for id, ch := range h.clients {
				select {
				case ch <- msg:
				default:
					// Slow subscriber: drop rather than block the hub.
					logger.Get().Debug("events: subscriber buffer full, dropping",
						zap.String("subscriber", id), zap.String("type", msg.Type))
				}
			}
			h.mu.RUnlock()
		case <-h.shutdown:
			h.mu.Lock()
			for id, ch := range h.clients {
				close(ch)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Register adds a subscriber channel under id. The channel should be
// buffered (size 10 or so).
func (h *Hub) Register(id string, ch chan Message) {
	select {
	case h.register <- registration{id: id, ch: ch}:
	case <-h.shutdown:
	}
}

// Unregister removes the subscriber and closes its channel. Safe to
// call after Stop.
func (h *Hub) Unregister(id string) {
	select {
	case h.unregister <- id:
	case <-h.shutdown:
	}
}

// Broadcast sends a message to all subscribers, non-blocking per client.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		// Hub queue full; drop.
	}
}

// SubscriberCount returns the number of registered subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop shuts down the hub and closes all subscriber channels.
func (h *Hub) Stop() {
	close(h.shutdown)
}
