// Package live delivers tip events to stream overlays over websockets.
//
// Every creator has one topic named by its slug. Publishing is fire and
// forget: events are not stored, subscribers that join later never see earlier
// events, and a subscriber whose buffer is full is dropped instead of blocking
// the publisher.
package live

import (
	"sort"
	"sync"

	"github.com/core-coin/obolus/internal/metrics"
	"github.com/core-coin/obolus/pkg/logger"
)

// Message types
const (
	MessageTypeTip  = "tip"
	MessageTypePing = "ping"
	MessageTypePong = "pong"
)

// Message is the envelope written to overlay connections.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub keeps the subscribers of every topic.
type Hub struct {
	logger *logger.Logger

	mu     sync.RWMutex
	topics map[string]map[*Client]struct{}
	closed bool
}

func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		logger: logger,
		topics: make(map[string]map[*Client]struct{}),
	}
}

// Subscribe adds c to its topic. It returns false once the hub is closed.
func (h *Hub) Subscribe(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	clients, ok := h.topics[c.topic]
	if !ok {
		clients = make(map[*Client]struct{})
		h.topics[c.topic] = clients
	}
	clients[c] = struct{}{}
	metrics.LiveSubscribers.Inc()
	h.logger.Debugw("Overlay subscribed", "topic", c.topic, "subscribers", len(clients))
	return true
}

// Unsubscribe removes c and closes its send buffer. Safe to call more than once.
func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	clients, ok := h.topics[c.topic]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.send)
	metrics.LiveSubscribers.Dec()
	if len(clients) == 0 {
		delete(h.topics, c.topic)
	}
}

// Publish delivers msg to the current subscribers of topic and returns how
// many received it. It never blocks and succeeds with zero subscribers.
func (h *Hub) Publish(topic string, msg Message) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.topics[topic]))
	for c := range h.topics[topic] {
		clients = append(clients, c)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	delivered := 0
	for _, c := range clients {
		select {
		case c.send <- msg:
			delivered++
		default:
			h.logger.Warnw("Dropping slow overlay subscriber", "topic", topic, "client", c.id)
			h.removeLocked(c)
		}
	}
	return delivered
}

// reply sends msg to c alone if it is still subscribed.
func (h *Hub) reply(c *Client, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.topics[c.topic][c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// SubscriberCount returns the number of subscribers of topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	count := 0
	for _, clients := range h.topics {
		for c := range clients {
			h.removeLocked(c)
			count++
		}
	}
	h.logger.Infow("Live hub closed", "clients_closed", count)
}
