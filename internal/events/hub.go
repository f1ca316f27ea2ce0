package events

import (
	"log/slog"
	"sync"
	"time"
)

// hubQueueSize bounds frames waiting for the fan-out loop
const hubQueueSize = 256

// Hub fans frames for one topic out to its subscribers. A single goroutine
// (Run) owns membership changes and delivery; other methods only send it
// requests.
type Hub struct {
	topic  Topic
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}

	joins     chan *Client
	leaves    chan *Client
	frames    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewHub creates a hub for topic. Run must be started before clients join.
func NewHub(topic Topic, logger *slog.Logger) *Hub {
	return &Hub{
		topic:   topic,
		logger:  logger.With(slog.String("topic", string(topic))),
		clients: make(map[*Client]struct{}),
		joins:   make(chan *Client),
		leaves:  make(chan *Client),
		frames:  make(chan []byte, hubQueueSize),
		done:    make(chan struct{}),
	}
}

// Topic returns the topic this hub serves
func (h *Hub) Topic() Topic {
	return h.topic
}

// Run serves membership changes and deliveries until Close
func (h *Hub) Run() {
	h.logger.Debug("sse hub running")
	for {
		select {
		case c := <-h.joins:
			h.add(c)
		case c := <-h.leaves:
			h.remove(c, "left")
		case frame := <-h.frames:
			h.deliver(frame)
		case <-h.done:
			h.shutdown()
			return
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("sse client joined",
		slog.String("client_id", c.id),
		slog.Int("clients", n))
}

// remove drops c and closes its send channel, which ends its stream
func (h *Hub) remove(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.logger.Info("sse client removed",
			slog.String("client_id", c.id),
			slog.String("reason", reason),
			slog.Duration("connected_for", time.Since(c.connectedAt)),
			slog.Int("clients", n))
	}
}

// deliver queues frame on every client. A client whose buffer is full is
// disconnected rather than silently skipped; it can reconnect with
// Last-Event-ID and replay what it missed.
func (h *Hub) deliver(frame []byte) {
	var lagging []*Client

	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			lagging = append(lagging, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range lagging {
		h.remove(c, "lagging")
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	n := len(h.clients)
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()

	h.logger.Info("sse hub stopped", slog.Int("disconnected_clients", n))
}

// Register adds a client. It reports false once the hub is closed. When it
// returns true the client receives every frame broadcast afterwards.
func (h *Hub) Register(c *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.joins <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client; it is a no-op for clients already removed
func (h *Hub) Unregister(c *Client) {
	select {
	case h.leaves <- c:
	case <-h.done:
	}
}

// Broadcast queues frame for every client. It never blocks; when the queue
// is full the frame is dropped and logged.
func (h *Hub) Broadcast(frame []byte) {
	select {
	case h.frames <- frame:
	default:
		h.logger.Warn("sse hub queue full, frame dropped")
	}
}

// Close stops the hub and disconnects its clients. It is safe to call more
// than once.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
