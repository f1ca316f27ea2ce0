package random

import (
	"crypto/rand"
	"io"
)

// Random provides randomness that can be mocked for testing
type Random interface {
	// Read fills p with random bytes; used for nonces, keys and tokens
	io.Reader
}

// CryptoRandom implements Random using crypto/rand
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Read fills p from crypto/rand
func (r *CryptoRandom) Read(p []byte) (int, error) {
	return rand.Read(p)
}
