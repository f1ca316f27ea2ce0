// Package gateway is the only place plaintexts enter or leave the system.
// Inputs are encrypted for the caller; outputs are decrypted only for an
// identity named in the ciphertext's authenticated reader set.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/fhecity/internal/fhe"
	"github.com/mcoot/fhecity/internal/model"
)

// Errors
var (
	ErrNotAuthorized = errors.New("not authorized to decrypt")
	ErrInvalidInput  = errors.New("invalid plaintext input")
)

// Cipher is the key-holding half of the engine
type Cipher interface {
	fhe.Encryptor
	fhe.Decryptor
	Verify(ct fhe.Ciphertext, kind fhe.Kind) error
}

// Service encrypts inputs and decrypts outputs on behalf of players
type Service struct {
	cipher Cipher
	logger *slog.Logger
}

// New creates a new gateway Service
func New(cipher Cipher, logger *slog.Logger) *Service {
	return &Service{
		cipher: cipher,
		logger: logger.With(slog.String("component", "gateway")),
	}
}

// EncryptInput encrypts value for use by playerID only
func (s *Service) EncryptInput(ctx context.Context, playerID model.PlayerID, kind fhe.Kind, value uint64) (fhe.Ciphertext, error) {
	ct, err := s.cipher.Encrypt(kind, value, playerID.Identity())
	if err != nil {
		if errors.Is(err, fhe.ErrKindMismatch) || errors.Is(err, fhe.ErrValueOutOfRange) {
			return fhe.Ciphertext{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return fhe.Ciphertext{}, err
	}
	return ct, nil
}

// Decrypt returns the plaintext of ct if playerID may read it
func (s *Service) Decrypt(ctx context.Context, playerID model.PlayerID, ct fhe.Ciphertext) (uint64, error) {
	if err := s.cipher.Verify(ct, ct.Kind); err != nil {
		if errors.Is(err, fhe.ErrMalformed) || errors.Is(err, fhe.ErrKindMismatch) {
			return 0, model.ErrMalformedCiphertext
		}
		return 0, err
	}
	if !ct.CanRead(playerID.Identity()) {
		s.logger.Warn("decryption refused",
			slog.String("player_id", string(playerID)),
			slog.String("kind", ct.Kind.String()))
		return 0, ErrNotAuthorized
	}
	return s.cipher.Decrypt(ct)
}
