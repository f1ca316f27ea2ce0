// Package sealed implements fhe.Engine with authenticated symmetric
// encryption. The engine holds the key and evaluates every operation
// in constant time over the opened values, so callers still only ever see
// ciphertexts. It stands in for a threshold FHE coprocessor.
package sealed

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
	"sync/atomic"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/mcoot/fhecity/internal/fhe"
)

// KeySize is the required key length in bytes
const KeySize = chacha20poly1305.KeySize

// kind byte + big-endian uint64
const plaintextSize = 9

// Stats counts evaluated operations by class
type Stats struct {
	Encrypt uint64
	Compare uint64
	Logic   uint64
	Select  uint64
	Arith   uint64
	Allow   uint64
	Verify  uint64
}

// Total returns the number of operations excluding verification
func (s Stats) Total() uint64 {
	return s.Encrypt + s.Compare + s.Logic + s.Select + s.Arith + s.Allow
}

// Engine is a sealed-box implementation of fhe.Engine
type Engine struct {
	aead cipher.AEAD
	rand io.Reader

	encrypts atomic.Uint64
	compares atomic.Uint64
	logic    atomic.Uint64
	selects  atomic.Uint64
	arith    atomic.Uint64
	allows   atomic.Uint64
	verifies atomic.Uint64
}

var (
	_ fhe.Engine    = (*Engine)(nil)
	_ fhe.Encryptor = (*Engine)(nil)
	_ fhe.Decryptor = (*Engine)(nil)
)

// New creates an engine from a 32-byte key. rand supplies nonces.
func New(key []byte, rand io.Reader) (*Engine, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("sealed: create cipher: %w", err)
	}
	return &Engine{aead: aead, rand: rand}, nil
}

// GenerateKey reads a fresh key from r
func GenerateKey(r io.Reader) ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("sealed: generate key: %w", err)
	}
	return key, nil
}

// Stats returns a snapshot of the operation counters
func (e *Engine) Stats() Stats {
	return Stats{
		Encrypt: e.encrypts.Load(),
		Compare: e.compares.Load(),
		Logic:   e.logic.Load(),
		Select:  e.selects.Load(),
		Arith:   e.arith.Load(),
		Allow:   e.allows.Load(),
		Verify:  e.verifies.Load(),
	}
}

// ResetStats zeroes the operation counters
func (e *Engine) ResetStats() {
	e.encrypts.Store(0)
	e.compares.Store(0)
	e.logic.Store(0)
	e.selects.Store(0)
	e.arith.Store(0)
	e.allows.Store(0)
	e.verifies.Store(0)
}

// Constants

func (e *Engine) TrivialEncryptBool(v bool) (fhe.EncryptedBool, error) {
	var x uint64
	if v {
		x = 1
	}
	e.encrypts.Add(1)
	ct, err := e.seal(fhe.KindBool, x, nil)
	return fhe.EncryptedBool{Ciphertext: ct}, err
}

func (e *Engine) TrivialEncryptU8(v uint8) (fhe.EncryptedU8, error) {
	e.encrypts.Add(1)
	ct, err := e.seal(fhe.KindU8, uint64(v), nil)
	return fhe.EncryptedU8{Ciphertext: ct}, err
}

func (e *Engine) TrivialEncryptU64(v uint64) (fhe.EncryptedU64, error) {
	e.encrypts.Add(1)
	ct, err := e.seal(fhe.KindU64, v, nil)
	return fhe.EncryptedU64{Ciphertext: ct}, err
}

// Encrypt implements fhe.Encryptor for gateway inputs
func (e *Engine) Encrypt(kind fhe.Kind, value uint64, readers ...string) (fhe.Ciphertext, error) {
	if !kind.Valid() {
		return fhe.Ciphertext{}, fhe.ErrKindMismatch
	}
	if value > maxValue(kind) {
		return fhe.Ciphertext{}, fhe.ErrValueOutOfRange
	}
	e.encrypts.Add(1)
	return e.seal(kind, value, readers)
}

// Decrypt implements fhe.Decryptor
func (e *Engine) Decrypt(ct fhe.Ciphertext) (uint64, error) {
	return e.open(ct, ct.Kind)
}

// Comparisons

func (e *Engine) EqU8(a, b fhe.EncryptedU8) (fhe.EncryptedBool, error) {
	x, y, err := e.open2(a.Ciphertext, b.Ciphertext, fhe.KindU8)
	if err != nil {
		return fhe.EncryptedBool{}, err
	}
	e.compares.Add(1)
	ct, err := e.seal(fhe.KindBool, eq(x, y), nil)
	return fhe.EncryptedBool{Ciphertext: ct}, err
}

func (e *Engine) GeU64(a, b fhe.EncryptedU64) (fhe.EncryptedBool, error) {
	x, y, err := e.open2(a.Ciphertext, b.Ciphertext, fhe.KindU64)
	if err != nil {
		return fhe.EncryptedBool{}, err
	}
	e.compares.Add(1)
	ct, err := e.seal(fhe.KindBool, ge(x, y), nil)
	return fhe.EncryptedBool{Ciphertext: ct}, err
}

// Boolean combinators

func (e *Engine) And(a, b fhe.EncryptedBool) (fhe.EncryptedBool, error) {
	x, y, err := e.open2(a.Ciphertext, b.Ciphertext, fhe.KindBool)
	if err != nil {
		return fhe.EncryptedBool{}, err
	}
	e.logic.Add(1)
	ct, err := e.seal(fhe.KindBool, x&y, nil)
	return fhe.EncryptedBool{Ciphertext: ct}, err
}

func (e *Engine) Or(a, b fhe.EncryptedBool) (fhe.EncryptedBool, error) {
	x, y, err := e.open2(a.Ciphertext, b.Ciphertext, fhe.KindBool)
	if err != nil {
		return fhe.EncryptedBool{}, err
	}
	e.logic.Add(1)
	ct, err := e.seal(fhe.KindBool, x|y, nil)
	return fhe.EncryptedBool{Ciphertext: ct}, err
}

func (e *Engine) Not(a fhe.EncryptedBool) (fhe.EncryptedBool, error) {
	x, err := e.open(a.Ciphertext, fhe.KindBool)
	if err != nil {
		return fhe.EncryptedBool{}, err
	}
	e.logic.Add(1)
	ct, err := e.seal(fhe.KindBool, x^1, nil)
	return fhe.EncryptedBool{Ciphertext: ct}, err
}

// Selection

func (e *Engine) SelectU8(cond fhe.EncryptedBool, a, b fhe.EncryptedU8) (fhe.EncryptedU8, error) {
	c, err := e.open(cond.Ciphertext, fhe.KindBool)
	if err != nil {
		return fhe.EncryptedU8{}, err
	}
	x, y, err := e.open2(a.Ciphertext, b.Ciphertext, fhe.KindU8)
	if err != nil {
		return fhe.EncryptedU8{}, err
	}
	e.selects.Add(1)
	ct, err := e.seal(fhe.KindU8, sel(c, x, y), nil)
	return fhe.EncryptedU8{Ciphertext: ct}, err
}

func (e *Engine) SelectU64(cond fhe.EncryptedBool, a, b fhe.EncryptedU64) (fhe.EncryptedU64, error) {
	c, err := e.open(cond.Ciphertext, fhe.KindBool)
	if err != nil {
		return fhe.EncryptedU64{}, err
	}
	x, y, err := e.open2(a.Ciphertext, b.Ciphertext, fhe.KindU64)
	if err != nil {
		return fhe.EncryptedU64{}, err
	}
	e.selects.Add(1)
	ct, err := e.seal(fhe.KindU64, sel(c, x, y), nil)
	return fhe.EncryptedU64{Ciphertext: ct}, err
}

// Arithmetic

func (e *Engine) SubU64(a, b fhe.EncryptedU64) (fhe.EncryptedU64, error) {
	x, y, err := e.open2(a.Ciphertext, b.Ciphertext, fhe.KindU64)
	if err != nil {
		return fhe.EncryptedU64{}, err
	}
	e.arith.Add(1)
	diff, _ := bits.Sub64(x, y, 0)
	ct, err := e.seal(fhe.KindU64, diff, nil)
	return fhe.EncryptedU64{Ciphertext: ct}, err
}

// Access control

func (e *Engine) Verify(ct fhe.Ciphertext, kind fhe.Kind) error {
	e.verifies.Add(1)
	_, err := e.open(ct, kind)
	return err
}

func (e *Engine) Allow(ct fhe.Ciphertext, readers ...string) (fhe.Ciphertext, error) {
	v, err := e.open(ct, ct.Kind)
	if err != nil {
		return fhe.Ciphertext{}, err
	}
	e.allows.Add(1)
	return e.seal(ct.Kind, v, readers)
}

// Sealing

func (e *Engine) seal(kind fhe.Kind, v uint64, readers []string) (fhe.Ciphertext, error) {
	readers = fhe.NormalizeReaders(readers)

	ns := e.aead.NonceSize()
	buf := make([]byte, ns, ns+plaintextSize+e.aead.Overhead())
	if _, err := io.ReadFull(e.rand, buf); err != nil {
		return fhe.Ciphertext{}, fmt.Errorf("sealed: read nonce: %w", err)
	}

	var pt [plaintextSize]byte
	pt[0] = byte(kind)
	binary.BigEndian.PutUint64(pt[1:], v)

	payload := e.aead.Seal(buf, buf[:ns], pt[:], additionalData(kind, readers))
	return fhe.Ciphertext{Kind: kind, Payload: payload, Readers: readers}, nil
}

func (e *Engine) open(ct fhe.Ciphertext, kind fhe.Kind) (uint64, error) {
	if ct.Kind != kind {
		return 0, fhe.ErrKindMismatch
	}
	ns := e.aead.NonceSize()
	if len(ct.Payload) < ns+e.aead.Overhead() {
		return 0, fhe.ErrMalformed
	}
	readers := fhe.NormalizeReaders(ct.Readers)
	pt, err := e.aead.Open(nil, ct.Payload[:ns], ct.Payload[ns:], additionalData(kind, readers))
	if err != nil || len(pt) != plaintextSize || fhe.Kind(pt[0]) != kind {
		return 0, fhe.ErrMalformed
	}
	v := binary.BigEndian.Uint64(pt[1:])
	if v > maxValue(kind) {
		return 0, fhe.ErrMalformed
	}
	return v, nil
}

func (e *Engine) open2(a, b fhe.Ciphertext, kind fhe.Kind) (uint64, uint64, error) {
	x, err := e.open(a, kind)
	if err != nil {
		return 0, 0, err
	}
	y, err := e.open(b, kind)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// additionalData binds the kind and reader set to the payload
func additionalData(kind fhe.Kind, readers []string) []byte {
	ad := []byte{byte(kind)}
	for _, r := range readers {
		ad = binary.BigEndian.AppendUint32(ad, uint32(len(r)))
		ad = append(ad, r...)
	}
	return ad
}

func maxValue(kind fhe.Kind) uint64 {
	switch kind {
	case fhe.KindBool:
		return 1
	case fhe.KindU8:
		return 0xff
	case fhe.KindU64:
		return ^uint64(0)
	default:
		return 0
	}
}

// Branch-free primitives over opened values

func eq(x, y uint64) uint64 {
	d := x ^ y
	return 1 ^ ((d | -d) >> 63)
}

func ge(x, y uint64) uint64 {
	_, borrow := bits.Sub64(x, y, 0)
	return borrow ^ 1
}

func sel(c, x, y uint64) uint64 {
	mask := -c
	return (x & mask) | (y &^ mask)
}
