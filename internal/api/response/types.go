package response

import (
	"time"

	"github.com/mcoot/fhecity/internal/fhe"
	"github.com/mcoot/fhecity/internal/model"
	"github.com/mcoot/fhecity/internal/services/auth"
)

// Player represents a player in API responses
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:          string(p.ID),
		DisplayName: p.DisplayName,
		IsGuest:     p.IsGuest,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Player       Player    `json:"player"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Player:       PlayerFromModel(&s.Player),
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// Building is a catalog entry
type Building struct {
	Type uint8  `json:"type"`
	Name string `json:"name"`
	Cost uint64 `json:"cost"`
}

// BuildingsResponse lists the building catalog
type BuildingsResponse struct {
	Buildings []Building `json:"buildings"`
	GridSize  int        `json:"grid_size"`
}

// Catalog converts the model catalog
func Catalog() BuildingsResponse {
	buildings := make([]Building, len(model.Catalog))
	for i, b := range model.Catalog {
		buildings[i] = Building{Type: uint8(b.Type), Name: b.Name, Cost: b.Cost}
	}
	return BuildingsResponse{Buildings: buildings, GridSize: model.GridSize}
}

// Account is the encrypted view of a player's city
type Account struct {
	PlayerID   string           `json:"player_id"`
	Balance    fhe.Ciphertext   `json:"balance"`
	Board      []fhe.Ciphertext `json:"board"`
	LastStatus fhe.Ciphertext   `json:"last_status"`
	JoinedAt   time.Time        `json:"joined_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// AccountFromModel converts model.Account
func AccountFromModel(a *model.Account) Account {
	return Account{
		PlayerID:   string(a.PlayerID),
		Balance:    a.Balance.Ciphertext,
		Board:      BoardFromModel(a.Grid),
		LastStatus: a.LastStatus.Ciphertext,
		JoinedAt:   a.JoinedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// BoardFromModel flattens a grid into row-major ciphertexts
func BoardFromModel(grid [model.GridSize]fhe.EncryptedU8) []fhe.Ciphertext {
	board := make([]fhe.Ciphertext, len(grid))
	for i, tile := range grid {
		board[i] = tile.Ciphertext
	}
	return board
}

// Membership reports whether a player has joined
type Membership struct {
	PlayerID string `json:"player_id"`
	Joined   bool   `json:"joined"`
}

// Encrypted wraps a single ciphertext read
type Encrypted struct {
	PlayerID   string         `json:"player_id"`
	Position   *int           `json:"position,omitempty"`
	Ciphertext fhe.Ciphertext `json:"ciphertext"`
}

// Board wraps a full grid read
type Board struct {
	PlayerID string           `json:"player_id"`
	Tiles    []fhe.Ciphertext `json:"tiles"`
}

// Decrypted is a gateway decryption result
type Decrypted struct {
	Kind  string `json:"kind"`
	Value uint64 `json:"value"`
}

// Events lists recent city events, oldest first
type Events struct {
	Events []*model.Event `json:"events"`
}

// Health values
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// Health is the liveness report. Storage holds the backend error when the
// store is unreachable.
type Health struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}
