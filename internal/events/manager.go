package events

import (
	"log/slog"
	"sync"
)

// HubManager owns one hub per topic. Hubs are created on first use and
// player hubs are reclaimed once idle.
type HubManager struct {
	logger *slog.Logger

	mu     sync.RWMutex
	hubs   map[Topic]*Hub
	closed bool
}

func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		logger: logger.With(slog.String("component", "sse")),
		hubs:   make(map[Topic]*Hub),
	}
}

// GetOrCreateHub returns the running hub for topic. It returns nil once the
// manager is closed.
func (m *HubManager) GetOrCreateHub(topic Topic) *Hub {
	if hub := m.GetHub(topic); hub != nil {
		return hub
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	if hub, ok := m.hubs[topic]; ok {
		return hub
	}
	hub := NewHub(topic, m.logger)
	m.hubs[topic] = hub
	go hub.Run()
	return hub
}

// subscribeAttempts bounds how often Subscribe replaces a hub that closed
// under it
const subscribeAttempts = 3

// Subscribe registers a new client on the hub for topic. A hub that cleanup
// closes between lookup and registration is replaced, so callers are only
// refused once the manager itself is closed.
func (m *HubManager) Subscribe(topic Topic) (*Client, bool) {
	for range subscribeAttempts {
		hub := m.GetOrCreateHub(topic)
		if hub == nil {
			return nil, false
		}
		client := NewClient(hub)
		if hub.Register(client) {
			return client, true
		}
		m.forget(topic, hub)
	}
	return nil, false
}

// forget drops hub from the map if it is still the hub for topic
func (m *HubManager) forget(topic Topic, hub *Hub) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hubs[topic] == hub {
		delete(m.hubs, topic)
	}
}

// GetHub returns the hub for topic, or nil when nobody has subscribed.
// Publishers use it so events for unwatched players create nothing.
func (m *HubManager) GetHub(topic Topic) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[topic]
}

// CleanupEmptyHubs closes player hubs without clients and returns how many
// were removed. The city hub lives as long as the manager.
func (m *HubManager) CleanupEmptyHubs() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for topic, hub := range m.hubs {
		if topic == CityTopic || hub.ClientCount() > 0 {
			continue
		}
		hub.Close()
		delete(m.hubs, topic)
		removed++
	}
	if removed > 0 {
		m.logger.Info("idle sse hubs removed", slog.Int("removed", removed))
	}
	return removed
}

// Close stops every hub, ending all open streams. Later subscriptions are
// refused.
func (m *HubManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for topic, hub := range m.hubs {
		hub.Close()
		delete(m.hubs, topic)
	}
}
