package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")
	ErrUsernameTaken  = errors.New("username is held by another player")

	// Account errors (structural: detected before any encrypted computation)
	ErrAccountNotFound      = errors.New("account not found")
	ErrAlreadyJoined        = errors.New("player has already joined")
	ErrNotJoined            = errors.New("player has not joined")
	ErrInvalidPosition      = errors.New("invalid grid position")
	ErrMalformedCiphertext  = errors.New("malformed ciphertext")
	ErrCiphertextNotAllowed = errors.New("caller may not use this ciphertext")

	// Storage errors
	ErrConcurrentUpdate = errors.New("account was modified concurrently")
)
