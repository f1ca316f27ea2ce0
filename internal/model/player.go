package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PlayerIDPrefix marks player identities, keeping them disjoint from
// service identities such as the store's
const PlayerIDPrefix = "p_"

// PlayerID uniquely identifies a player across the system.
// It is also the identity recorded in ciphertext reader sets.
type PlayerID string

// NewPlayerID mints a fresh player identity
func NewPlayerID() PlayerID {
	return PlayerID(PlayerIDPrefix + uuid.NewString())
}

// Identity returns the reader-set identity for the player
func (id PlayerID) Identity() string {
	return string(id)
}

// IsPlayerIdentity reports whether identity is in the player namespace
func IsPlayerIdentity(identity string) bool {
	return strings.HasPrefix(identity, PlayerIDPrefix)
}

// Player is an authenticated participant. Guests exist only for the
// lifetime of their session; registered players also have credentials.
type Player struct {
	ID          PlayerID
	DisplayName string
	IsGuest     bool
	CreatedAt   time.Time
}

// RegisteredPlayer holds login credentials for a non-guest player.
// It is stored apart from Player so sessions never carry the hash.
type RegisteredPlayer struct {
	PlayerID     PlayerID
	Username     string // immutable
	PasswordHash string // bcrypt
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
