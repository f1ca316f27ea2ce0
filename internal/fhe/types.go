package fhe

import (
	"slices"
)

// Kind identifies the plaintext domain a ciphertext encrypts
type Kind uint8

const (
	KindBool Kind = iota + 1
	KindU8
	KindU64
)

// String returns the wire name of the kind
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindU8:
		return "u8"
	case KindU64:
		return "u64"
	default:
		return "unknown"
	}
}

// Valid reports whether k names a known kind
func (k Kind) Valid() bool {
	return k >= KindBool && k <= KindU64
}

// ParseKind converts a wire name back into a Kind
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "bool":
		return KindBool, true
	case "u8":
		return KindU8, true
	case "u64":
		return KindU64, true
	default:
		return 0, false
	}
}

// Ciphertext is an opaque encrypted scalar together with the set of
// identities allowed to request its decryption.
// Payload is only meaningful to the Engine that produced it.
type Ciphertext struct {
	Kind    Kind     `json:"kind"`
	Payload []byte   `json:"payload"`
	Readers []string `json:"readers,omitempty"`
}

// IsZero reports whether the ciphertext carries no payload
func (c Ciphertext) IsZero() bool {
	return len(c.Payload) == 0
}

// CanRead reports whether identity is in the reader set.
// The set is only trustworthy once the Engine has verified the ciphertext.
func (c Ciphertext) CanRead(identity string) bool {
	return slices.Contains(c.Readers, identity)
}

// EncryptedBool is an encrypted boolean produced by comparisons
type EncryptedBool struct{ Ciphertext }

// EncryptedU8 is an encrypted 8-bit unsigned integer
type EncryptedU8 struct{ Ciphertext }

// EncryptedU64 is an encrypted 64-bit unsigned integer
type EncryptedU64 struct{ Ciphertext }

// NormalizeReaders returns a sorted, de-duplicated copy of the reader set
func NormalizeReaders(readers []string) []string {
	out := make([]string, 0, len(readers))
	for _, r := range readers {
		if r != "" {
			out = append(out, r)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
