// Package fhe defines the oblivious predicate library the city rules are
// written against. Every operation takes and returns ciphertexts; none of
// them reveal which value an encrypted boolean holds.
package fhe

import "errors"

var (
	// ErrMalformed is returned when a ciphertext fails authentication or
	// decodes to a value outside its kind's domain
	ErrMalformed = errors.New("malformed ciphertext")
	// ErrKindMismatch is returned when an operand has the wrong kind
	ErrKindMismatch = errors.New("ciphertext kind mismatch")
	// ErrValueOutOfRange is returned when encrypting a value that does not
	// fit its kind
	ErrValueOutOfRange = errors.New("value out of range for kind")
)

// Engine evaluates operations over encrypted scalars.
// Implementations must execute the same work for every operand value.
type Engine interface {
	// Constants
	TrivialEncryptBool(v bool) (EncryptedBool, error)
	TrivialEncryptU8(v uint8) (EncryptedU8, error)
	TrivialEncryptU64(v uint64) (EncryptedU64, error)

	// Comparisons
	EqU8(a, b EncryptedU8) (EncryptedBool, error)
	GeU64(a, b EncryptedU64) (EncryptedBool, error)

	// Boolean combinators
	And(a, b EncryptedBool) (EncryptedBool, error)
	Or(a, b EncryptedBool) (EncryptedBool, error)
	Not(a EncryptedBool) (EncryptedBool, error)

	// Selection: returns a if cond holds, else b
	SelectU8(cond EncryptedBool, a, b EncryptedU8) (EncryptedU8, error)
	SelectU64(cond EncryptedBool, a, b EncryptedU64) (EncryptedU64, error)

	// Arithmetic (wrapping)
	SubU64(a, b EncryptedU64) (EncryptedU64, error)

	// Verify authenticates a ciphertext and checks its kind
	Verify(ct Ciphertext, kind Kind) error

	// Allow rebinds the reader set of a ciphertext, replacing any previous one
	Allow(ct Ciphertext, readers ...string) (Ciphertext, error)
}

// Encryptor produces fresh ciphertexts for user-supplied inputs
type Encryptor interface {
	Encrypt(kind Kind, value uint64, readers ...string) (Ciphertext, error)
}

// Decryptor recovers plaintexts. Only the gateway holds one.
type Decryptor interface {
	Decrypt(ct Ciphertext) (uint64, error)
}

// AllowU8 rebinds the reader set of an encrypted u8
func AllowU8(e Engine, v EncryptedU8, readers ...string) (EncryptedU8, error) {
	ct, err := e.Allow(v.Ciphertext, readers...)
	if err != nil {
		return EncryptedU8{}, err
	}
	return EncryptedU8{ct}, nil
}

// AllowU64 rebinds the reader set of an encrypted u64
func AllowU64(e Engine, v EncryptedU64, readers ...string) (EncryptedU64, error) {
	ct, err := e.Allow(v.Ciphertext, readers...)
	if err != nil {
		return EncryptedU64{}, err
	}
	return EncryptedU64{ct}, nil
}
