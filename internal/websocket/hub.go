// Package websocket pushes live board events (new replies) to browsers
// watching a topic.
package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client wraps a WebSocket connection subscribed to one topic. The write
// mutex serializes writers: gorilla connections support only one concurrent
// writer.
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

func (c *Client) write(messageType int, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(messageType, payload)
}

// Event is one board event pushed to subscribers.
type Event struct {
	Type      string `json:"type"`
	TopicID   string `json:"topic_id"`
	MessageID string `json:"message_id,omitempty"`
	Depth     int    `json:"depth,omitempty"`
}

// Hub manages active WebSocket connections per topic.
// A browser opens one connection per topic it is watching.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Client]struct{} // topicID -> set of clients
	maxPerTopic int
}

// NewHub creates a new Hub with a per-topic connection limit.
func NewHub(maxPerTopic int) *Hub {
	if maxPerTopic <= 0 {
		maxPerTopic = 100
	}
	return &Hub{
		subscribers: make(map[string]map[*Client]struct{}),
		maxPerTopic: maxPerTopic,
	}
}

// Subscribe adds a WebSocket connection watching the given topic.
// If the per-topic limit is exceeded, the new connection is closed and nil is returned.
func (h *Hub) Subscribe(topicID string, conn *websocket.Conn) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	topicClients, ok := h.subscribers[topicID]
	if !ok {
		topicClients = make(map[*Client]struct{})
		h.subscribers[topicID] = topicClients
	}

	if len(topicClients) >= h.maxPerTopic {
		log.Printf("websocket: topic %s exceeded max connections (%d), closing new connection", topicID, h.maxPerTopic)
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many watchers for this topic"),
			time.Time{},
		)
		_ = conn.Close()
		return nil
	}

	client := &Client{conn: conn}
	topicClients[client] = struct{}{}
	return client
}

// Unsubscribe removes a client from the topic and closes the connection.
func (h *Hub) Unsubscribe(topicID string, client *Client) {
	if client == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	topicClients, ok := h.subscribers[topicID]
	if !ok {
		_ = client.conn.Close()
		return
	}

	delete(topicClients, client)

	if len(topicClients) == 0 {
		delete(h.subscribers, topicID)
	}

	_ = client.conn.Close()
}

// Broadcast sends the event to every client watching the topic.
func (h *Hub) Broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("websocket: failed to encode event: %v", err)
		return
	}

	// Snapshot the client set under the lock; the inner map must never be
	// iterated while Subscribe or Unsubscribe mutates it. Writes happen
	// outside the lock so a slow connection cannot stall the hub.
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.subscribers[event.TopicID]))
	for client := range h.subscribers[event.TopicID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if err := client.write(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket: failed to write event for topic %s: %v", event.TopicID, err)
			// Best-effort cleanup: unsubscribe this client.
			go h.Unsubscribe(event.TopicID, client)
		}
	}
}

// Watchers returns the number of active connections for a topic.
func (h *Hub) Watchers(topicID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers[topicID])
}
