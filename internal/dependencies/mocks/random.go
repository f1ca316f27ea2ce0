package mocks

import (
	"encoding/binary"
	"sync"

	"github.com/mcoot/fhecity/internal/dependencies/random"
)

// MockRandom is a deterministic Random for testing.
// Read produces a counter stream so nonces never repeat within a test.
type MockRandom struct {
	mu      sync.Mutex
	counter uint64
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Read fills p with the next bytes of the counter stream
func (r *MockRandom) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var block [8]byte
	for i := 0; i < len(p); i += len(block) {
		r.counter++
		binary.BigEndian.PutUint64(block[:], r.counter)
		copy(p[i:], block[:])
	}
	return len(p), nil
}
