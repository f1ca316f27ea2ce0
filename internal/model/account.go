package model

import (
	"time"

	"github.com/mcoot/fhecity/internal/fhe"
)

const (
	// GridSize is the number of tiles on every player's 3x3 grid
	GridSize = 9
	// StartingGold is the balance granted on join
	StartingGold uint64 = 10_000
	// EmptyTile is the tile encoding for "no building"
	EmptyTile uint8 = 0
)

// Position indexes a tile on the grid, row-major from the top left
type Position int

// Valid returns true if the position is within the grid
func (p Position) Valid() bool {
	return p >= 0 && p < GridSize
}

// Row returns the 0-indexed row of the position
func (p Position) Row() int {
	return int(p) / 3
}

// Col returns the 0-indexed column of the position
func (p Position) Col() int {
	return int(p) % 3
}

// Account is a player's confidential city state.
// Balance, Grid and LastStatus are only ever ciphertexts; Joined is public.
type Account struct {
	PlayerID   PlayerID
	Joined     bool
	Balance    fhe.EncryptedU64
	Grid       [GridSize]fhe.EncryptedU8
	LastStatus fhe.EncryptedU8

	// Version increments on every committed write
	Version   uint64
	JoinedAt  time.Time
	UpdatedAt time.Time
}

// Tile returns the ciphertext stored at pos
func (a *Account) Tile(pos Position) (fhe.EncryptedU8, error) {
	if !pos.Valid() {
		return fhe.EncryptedU8{}, ErrInvalidPosition
	}
	return a.Grid[pos], nil
}

// Clone returns a copy of the account. Ciphertexts are never mutated in
// place, so sharing their payloads is safe.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
