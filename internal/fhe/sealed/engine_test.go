package sealed

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/fhecity/internal/dependencies/mocks"
	"github.com/mcoot/fhecity/internal/fhe"
)

type EngineSuite struct {
	suite.Suite
	engine *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	rnd := mocks.NewMockRandom()
	key, err := GenerateKey(rnd)
	s.Require().NoError(err)
	s.engine, err = New(key, rnd)
	s.Require().NoError(err)
}

func (s *EngineSuite) u8(v uint8) fhe.EncryptedU8 {
	ct, err := s.engine.TrivialEncryptU8(v)
	s.Require().NoError(err)
	return ct
}

func (s *EngineSuite) u64(v uint64) fhe.EncryptedU64 {
	ct, err := s.engine.TrivialEncryptU64(v)
	s.Require().NoError(err)
	return ct
}

func (s *EngineSuite) boolean(v bool) fhe.EncryptedBool {
	ct, err := s.engine.TrivialEncryptBool(v)
	s.Require().NoError(err)
	return ct
}

func (s *EngineSuite) decrypt(ct fhe.Ciphertext) uint64 {
	v, err := s.engine.Decrypt(ct)
	s.Require().NoError(err)
	return v
}

func (s *EngineSuite) TestNewRejectsShortKey() {
	_, err := New([]byte("short"), mocks.NewMockRandom())
	s.Error(err)
}

func (s *EngineSuite) TestTrivialEncryptRoundTrip() {
	s.Equal(uint64(7), s.decrypt(s.u8(7).Ciphertext))
	s.Equal(uint64(10_000), s.decrypt(s.u64(10_000).Ciphertext))
	s.Equal(uint64(1), s.decrypt(s.boolean(true).Ciphertext))
	s.Equal(uint64(0), s.decrypt(s.boolean(false).Ciphertext))
}

func (s *EngineSuite) TestEncryptionIsRandomized() {
	a := s.u8(3)
	b := s.u8(3)
	s.NotEqual(a.Payload, b.Payload)
}

func (s *EngineSuite) TestEncryptRejectsOutOfRange() {
	_, err := s.engine.Encrypt(fhe.KindU8, 256)
	s.ErrorIs(err, fhe.ErrValueOutOfRange)

	_, err = s.engine.Encrypt(fhe.KindBool, 2)
	s.ErrorIs(err, fhe.ErrValueOutOfRange)

	_, err = s.engine.Encrypt(fhe.Kind(42), 1)
	s.ErrorIs(err, fhe.ErrKindMismatch)
}

func (s *EngineSuite) TestEqU8() {
	eq, err := s.engine.EqU8(s.u8(4), s.u8(4))
	s.Require().NoError(err)
	s.Equal(uint64(1), s.decrypt(eq.Ciphertext))

	ne, err := s.engine.EqU8(s.u8(4), s.u8(5))
	s.Require().NoError(err)
	s.Equal(uint64(0), s.decrypt(ne.Ciphertext))
}

func (s *EngineSuite) TestGeU64() {
	cases := []struct {
		a, b uint64
		want uint64
	}{
		{10_000, 1000, 1},
		{1000, 1000, 1},
		{999, 1000, 0},
		{0, 0, 1},
		{0, 1, 0},
		{^uint64(0), 0, 1},
	}
	for _, tc := range cases {
		ge, err := s.engine.GeU64(s.u64(tc.a), s.u64(tc.b))
		s.Require().NoError(err)
		s.Equal(tc.want, s.decrypt(ge.Ciphertext), "%d >= %d", tc.a, tc.b)
	}
}

func (s *EngineSuite) TestBooleanCombinators() {
	for _, a := range []bool{false, true} {
		for _, b := range []bool{false, true} {
			and, err := s.engine.And(s.boolean(a), s.boolean(b))
			s.Require().NoError(err)
			or, err := s.engine.Or(s.boolean(a), s.boolean(b))
			s.Require().NoError(err)

			s.Equal(a && b, s.decrypt(and.Ciphertext) == 1)
			s.Equal(a || b, s.decrypt(or.Ciphertext) == 1)
		}
		not, err := s.engine.Not(s.boolean(a))
		s.Require().NoError(err)
		s.Equal(!a, s.decrypt(not.Ciphertext) == 1)
	}
}

func (s *EngineSuite) TestSelect() {
	picked, err := s.engine.SelectU8(s.boolean(true), s.u8(2), s.u8(9))
	s.Require().NoError(err)
	s.Equal(uint64(2), s.decrypt(picked.Ciphertext))

	picked, err = s.engine.SelectU8(s.boolean(false), s.u8(2), s.u8(9))
	s.Require().NoError(err)
	s.Equal(uint64(9), s.decrypt(picked.Ciphertext))

	wide, err := s.engine.SelectU64(s.boolean(true), s.u64(1000), s.u64(0))
	s.Require().NoError(err)
	s.Equal(uint64(1000), s.decrypt(wide.Ciphertext))

	wide, err = s.engine.SelectU64(s.boolean(false), s.u64(1000), s.u64(0))
	s.Require().NoError(err)
	s.Equal(uint64(0), s.decrypt(wide.Ciphertext))
}

func (s *EngineSuite) TestSubU64() {
	diff, err := s.engine.SubU64(s.u64(10_000), s.u64(200))
	s.Require().NoError(err)
	s.Equal(uint64(9800), s.decrypt(diff.Ciphertext))
}

func (s *EngineSuite) TestKindMismatch() {
	_, err := s.engine.EqU8(s.u8(1), fhe.EncryptedU8{Ciphertext: s.u64(1).Ciphertext})
	s.ErrorIs(err, fhe.ErrKindMismatch)

	s.ErrorIs(s.engine.Verify(s.u64(1).Ciphertext, fhe.KindU8), fhe.ErrKindMismatch)
}

func (s *EngineSuite) TestTamperedPayloadIsMalformed() {
	ct := s.u8(1).Ciphertext
	tampered := append([]byte(nil), ct.Payload...)
	tampered[len(tampered)-1] ^= 0x01
	ct.Payload = tampered

	s.ErrorIs(s.engine.Verify(ct, fhe.KindU8), fhe.ErrMalformed)
}

func (s *EngineSuite) TestTruncatedPayloadIsMalformed() {
	ct := fhe.Ciphertext{Kind: fhe.KindU8, Payload: []byte{1, 2, 3}}
	s.ErrorIs(s.engine.Verify(ct, fhe.KindU8), fhe.ErrMalformed)
}

func (s *EngineSuite) TestAllowRebindsReaders() {
	ct, err := s.engine.Encrypt(fhe.KindU8, 3, "alice")
	s.Require().NoError(err)
	s.True(ct.CanRead("alice"))
	s.False(ct.CanRead("bob"))

	rebound, err := s.engine.Allow(ct, "bob", "store", "bob")
	s.Require().NoError(err)
	s.Equal([]string{"bob", "store"}, rebound.Readers)
	s.False(rebound.CanRead("alice"))
	s.Equal(uint64(3), s.decrypt(rebound))
}

func (s *EngineSuite) TestForgedReadersAreMalformed() {
	ct, err := s.engine.Encrypt(fhe.KindU64, 10_000, "alice")
	s.Require().NoError(err)

	ct.Readers = append(ct.Readers, "mallory")
	s.ErrorIs(s.engine.Verify(ct, fhe.KindU64), fhe.ErrMalformed)
}

func (s *EngineSuite) TestReaderOrderDoesNotMatter() {
	ct, err := s.engine.Encrypt(fhe.KindU8, 1, "alice", "store")
	s.Require().NoError(err)

	ct.Readers = []string{"store", "alice"}
	s.NoError(s.engine.Verify(ct, fhe.KindU8))
}

func (s *EngineSuite) TestStatsCountOperations() {
	a := s.u8(1)
	b := s.u8(2)
	_, err := s.engine.EqU8(a, b)
	s.Require().NoError(err)

	stats := s.engine.Stats()
	s.Equal(uint64(2), stats.Encrypt)
	s.Equal(uint64(1), stats.Compare)
	s.Equal(uint64(3), stats.Total())

	s.engine.ResetStats()
	s.Equal(uint64(0), s.engine.Stats().Total())
}

func (s *EngineSuite) TestPrimitivesAreExact() {
	values := []uint64{0, 1, 2, 255, 256, 1 << 63, ^uint64(0)}
	for _, x := range values {
		for _, y := range values {
			var wantEq, wantGe uint64
			if x == y {
				wantEq = 1
			}
			if x >= y {
				wantGe = 1
			}
			s.Equal(wantEq, eq(x, y), "eq(%d,%d)", x, y)
			s.Equal(wantGe, ge(x, y), "ge(%d,%d)", x, y)
			s.Equal(x, sel(1, x, y))
			s.Equal(y, sel(0, x, y))
		}
	}
}
