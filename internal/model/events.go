package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	EventPlayerJoined   EventType = "player_joined"
	EventBuildingPlaced EventType = "building_placed"
)

// Event is a public notification about an account.
// Events never carry ciphertexts or plaintext secrets.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	PlayerID  PlayerID  `json:"player_id"`
	Position  *Position `json:"position,omitempty"` // Set for building_placed
}
