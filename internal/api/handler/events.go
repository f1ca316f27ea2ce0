package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/mcoot/fhecity/internal/api/apierr"
	"github.com/mcoot/fhecity/internal/api/response"
	"github.com/mcoot/fhecity/internal/events"
	"github.com/mcoot/fhecity/internal/model"
	"github.com/mcoot/fhecity/internal/storage"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// EventsHandler serves the public city event log and live stream
type EventsHandler struct {
	storage    storage.Storage
	hubManager *events.HubManager
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(store storage.Storage, hubManager *events.HubManager) *EventsHandler {
	return &EventsHandler{
		storage:    store,
		hubManager: hubManager,
	}
}

// List handles GET /api/v1/city/events?limit=N
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxEventLimit {
			apierr.WriteError(w, apierr.NewInvalidRequestError("limit must be between 1 and 500"))
			return
		}
		limit = n
	}

	list, err := h.storage.ListEvents(r.Context(), limit)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	if list == nil {
		list = []*model.Event{}
	}

	response.JSON(w, http.StatusOK, response.Events{Events: list})
}

// Stream handles GET /api/v1/city/events/stream[?player=ID]. A client that
// reconnects with Last-Event-ID first receives the retained events it missed.
// Player streams are only opened for players that exist.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	topic := events.CityTopic
	if playerID := r.URL.Query().Get("player"); playerID != "" {
		if !model.IsPlayerIdentity(playerID) {
			apierr.WriteError(w, apierr.NewInvalidRequestError("player must be a player ID"))
			return
		}
		if _, err := h.storage.GetPlayer(r.Context(), model.PlayerID(playerID)); err != nil {
			apierr.WriteError(w, err)
			return
		}
		topic = events.PlayerTopic(playerID)
	}

	var backlog events.BacklogFunc
	if lastID := r.Header.Get("Last-Event-ID"); lastID != "" {
		backlog = func(ctx context.Context) ([][]byte, error) {
			log, err := h.storage.ListEvents(ctx, maxEventLimit)
			if err != nil {
				return nil, err
			}
			return events.Backlog(log, lastID, topic)
		}
	}

	events.ServeSSE(w, r, h.hubManager, topic, backlog)
}
