package events

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	// keepaliveInterval spaces comment frames that hold idle proxies open
	keepaliveInterval = 30 * time.Second

	// clientBufferSize is how many frames a client may fall behind before
	// the hub disconnects it
	clientBufferSize = 256
)

var keepaliveFrame = []byte(": keepalive\n\n")

// BacklogFunc loads frames a newly connected client has missed
type BacklogFunc func(ctx context.Context) ([][]byte, error)

// Client is one open event stream
type Client struct {
	id          string
	hub         *Hub
	send        chan []byte
	connectedAt time.Time
}

// NewClient creates a client for hub. It receives nothing until registered.
func NewClient(hub *Hub) *Client {
	return &Client{
		id:          uuid.NewString(),
		hub:         hub,
		send:        make(chan []byte, clientBufferSize),
		connectedAt: time.Now(),
	}
}

// ServeSSE subscribes to topic and streams its frames to w until the request
// ends or the hub drops the client. If backlog is non-nil it is called after the client registers
// and its frames are written ahead of live traffic, so a resuming client may
// see an event twice but never misses one.
func ServeSSE(w http.ResponseWriter, r *http.Request, hubs *HubManager, topic Topic, backlog BacklogFunc) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	client, ok := hubs.Subscribe(topic)
	if !ok {
		http.Error(w, "event stream closed", http.StatusServiceUnavailable)
		return
	}
	hub := client.hub
	defer hub.Unregister(client)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	hello := formatSSEMessage("connected", "", `{"status":"connected","topic":"`+string(hub.Topic())+`"}`)
	if _, err := w.Write(hello); err != nil {
		return
	}
	if backlog != nil {
		frames, err := backlog(r.Context())
		if err != nil {
			hub.logger.Warn("sse backlog unavailable",
				slog.String("client_id", client.id),
				slog.Any("error", err))
		}
		for _, frame := range frames {
			if _, err := w.Write(frame); err != nil {
				return
			}
		}
	}
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		var frame []byte
		select {
		case f, open := <-client.send:
			if !open {
				return
			}
			frame = f
		case <-keepalive.C:
			frame = keepaliveFrame
		case <-r.Context().Done():
			return
		}

		if _, err := w.Write(frame); err != nil {
			return
		}
		flusher.Flush()
	}
}
