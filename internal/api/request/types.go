package request

import (
	"errors"

	"github.com/mcoot/fhecity/internal/fhe"
)

// CreateGuestRequest is the request body for creating a guest player
type CreateGuestRequest struct {
	DisplayName string `json:"display_name"`
}

func (r *CreateGuestRequest) Validate() error {
	if r.DisplayName == "" {
		return errors.New("display_name is required")
	}
	return nil
}

// RegisterRequest is the request body for registering a player.
// Username rules are enforced by the auth service.
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

func (r *RegisterRequest) Validate() error {
	return requireCredentials(r.Username, r.Password)
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	return requireCredentials(r.Username, r.Password)
}

func requireCredentials(username, password string) error {
	if username == "" {
		return errors.New("username is required")
	}
	if password == "" {
		return errors.New("password is required")
	}
	return nil
}

// PlaceBuildingRequest is the request body for placing a building.
// Building must be an encrypted u8 the caller is allowed to use; that is
// checked by the controller, not here.
type PlaceBuildingRequest struct {
	Position *int           `json:"position"`
	Building fhe.Ciphertext `json:"building"`
}

func (r *PlaceBuildingRequest) Validate() error {
	if r.Position == nil {
		return errors.New("position is required")
	}
	return nil
}

// EncryptRequest asks the gateway to encrypt a plaintext for the caller
type EncryptRequest struct {
	Kind  string `json:"kind"`
	Value uint64 `json:"value"`
}

func (r *EncryptRequest) Validate() error {
	if _, ok := fhe.ParseKind(r.Kind); !ok {
		return errors.New("kind must be one of bool, u8, u64")
	}
	return nil
}

// ParsedKind returns the kind of a validated request
func (r *EncryptRequest) ParsedKind() fhe.Kind {
	kind, _ := fhe.ParseKind(r.Kind)
	return kind
}

// DecryptRequest asks the gateway to decrypt a ciphertext for the caller.
// Authenticity and reader checks happen in the gateway.
type DecryptRequest struct {
	Ciphertext fhe.Ciphertext `json:"ciphertext"`
}

func (r *DecryptRequest) Validate() error {
	return nil
}
