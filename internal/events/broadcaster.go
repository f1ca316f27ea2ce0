package events

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mcoot/fhecity/internal/dependencies/clock"
	"github.com/mcoot/fhecity/internal/model"
	"github.com/mcoot/fhecity/internal/services/city"
	"github.com/mcoot/fhecity/internal/storage"
)

// Broadcaster records account events in the event log and pushes them to
// SSE subscribers
type Broadcaster struct {
	hubManager *HubManager
	storage    storage.Storage
	clock      clock.Clock
	logger     *slog.Logger
}

// Ensure Broadcaster can receive controller events
var _ city.EventSink = (*Broadcaster)(nil)

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubManager *HubManager, storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hubManager: hubManager,
		storage:    storage,
		clock:      clock,
		logger:     logger.With(slog.String("component", "sse-broadcaster")),
	}
}

// PlayerJoined publishes a player_joined event
func (b *Broadcaster) PlayerJoined(ctx context.Context, playerID model.PlayerID) {
	b.publish(ctx, &model.Event{
		Type:     model.EventPlayerJoined,
		PlayerID: playerID,
	})
}

// BuildingPlaced publishes a building_placed event. The outcome is secret,
// so only the position is announced.
func (b *Broadcaster) BuildingPlaced(ctx context.Context, playerID model.PlayerID, pos model.Position) {
	b.publish(ctx, &model.Event{
		Type:     model.EventBuildingPlaced,
		PlayerID: playerID,
		Position: &pos,
	})
}

func (b *Broadcaster) publish(ctx context.Context, event *model.Event) {
	event.ID = uuid.NewString()
	event.Timestamp = b.clock.Now()

	// Notifications are observational; a failed log write must not fail
	// the operation that produced it
	if err := b.storage.AppendEvent(ctx, event); err != nil {
		b.logger.Error("failed to append event",
			slog.String("event_type", string(event.Type)),
			slog.String("player_id", string(event.PlayerID)),
			slog.Any("error", err))
	}

	frame, err := EncodeEvent(event)
	if err != nil {
		b.logger.Error("failed to encode event", slog.Any("error", err))
		return
	}

	for _, topic := range []Topic{CityTopic, PlayerTopic(string(event.PlayerID))} {
		if hub := b.hubManager.GetHub(topic); hub != nil {
			hub.Broadcast(frame)
		}
	}
}
