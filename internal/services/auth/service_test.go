package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/fhecity/internal/dependencies/mocks"
	"github.com/mcoot/fhecity/internal/model"
	"github.com/mcoot/fhecity/internal/storage/memory"
	"github.com/mcoot/fhecity/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	cfg := DefaultConfig()
	cfg.BcryptCost = bcrypt.MinCost
	s.service = New(s.storage, s.clock, mocks.NewMockRandom(), testutil.NopLogger(), cfg)
	s.ctx = context.Background()
}

// CreateGuestPlayer tests

func (s *ServiceSuite) TestCreateGuestPlayer() {
	session, err := s.service.CreateGuestPlayer(s.ctx, "Alice")
	s.Require().NoError(err)

	s.True(strings.HasPrefix(session.Token, "sess_"))
	s.True(model.IsPlayerIdentity(session.PlayerID.Identity()))
	s.Equal("Alice", session.Player.DisplayName)
	s.True(session.Player.IsGuest)
	s.Equal(s.clock.Now().Add(24*time.Hour), session.ExpiresAt)

	player, err := s.storage.GetPlayer(s.ctx, session.PlayerID)
	s.Require().NoError(err)
	s.Equal("Alice", player.DisplayName)
}

func (s *ServiceSuite) TestPlayerIDsAndTokensAreUnique() {
	a, err := s.service.CreateGuestPlayer(s.ctx, "Alice")
	s.Require().NoError(err)
	b, err := s.service.CreateGuestPlayer(s.ctx, "Alice")
	s.Require().NoError(err)

	s.NotEqual(a.PlayerID, b.PlayerID)
	s.NotEqual(a.Token, b.Token)
}

// RegisterPlayer tests

func (s *ServiceSuite) TestRegisterPlayer() {
	session, err := s.service.RegisterPlayer(s.ctx, "alice", "password123", "Alice")
	s.Require().NoError(err)
	s.Equal("Alice", session.Player.DisplayName)
	s.False(session.Player.IsGuest)

	rp, err := s.storage.GetRegisteredPlayerByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(session.PlayerID, rp.PlayerID)
	s.NotEqual("password123", rp.PasswordHash)
}

func (s *ServiceSuite) TestRegisterPlayerDefaultsDisplayName() {
	session, err := s.service.RegisterPlayer(s.ctx, "alice", "password123", "")
	s.Require().NoError(err)
	s.Equal("alice", session.Player.DisplayName)
}

func (s *ServiceSuite) TestRegisterPlayerFailsIfUsernameExists() {
	_, err := s.service.RegisterPlayer(s.ctx, "alice", "password123", "Alice")
	s.Require().NoError(err)

	_, err = s.service.RegisterPlayer(s.ctx, "alice", "different", "Alice2")
	s.ErrorIs(err, ErrUsernameExists)
}

func (s *ServiceSuite) TestRegisterPlayerValidatesCredentials() {
	_, err := s.service.RegisterPlayer(s.ctx, "al", "password123", "")
	s.ErrorIs(err, ErrInvalidUsername)

	_, err = s.service.RegisterPlayer(s.ctx, "al ice", "password123", "")
	s.ErrorIs(err, ErrInvalidUsername)

	_, err = s.service.RegisterPlayer(s.ctx, strings.Repeat("a", 33), "password123", "")
	s.ErrorIs(err, ErrInvalidUsername)

	_, err = s.service.RegisterPlayer(s.ctx, "alice", "short", "")
	s.ErrorIs(err, ErrPasswordTooShort)
}

// Login tests

func (s *ServiceSuite) TestLogin() {
	registered, err := s.service.RegisterPlayer(s.ctx, "alice", "password123", "Alice")
	s.Require().NoError(err)

	session, err := s.service.Login(s.ctx, "alice", "password123")
	s.Require().NoError(err)

	s.Equal(registered.PlayerID, session.PlayerID)
	s.NotEqual(registered.Token, session.Token)
}

func (s *ServiceSuite) TestLoginFailures() {
	_, err := s.service.RegisterPlayer(s.ctx, "alice", "password123", "Alice")
	s.Require().NoError(err)

	_, err = s.service.Login(s.ctx, "alice", "wrongpassword")
	s.ErrorIs(err, ErrInvalidCredentials)

	_, err = s.service.Login(s.ctx, "nobody", "password123")
	s.ErrorIs(err, ErrInvalidCredentials)
}

// Session tests

func (s *ServiceSuite) TestValidateSession() {
	session, err := s.service.CreateGuestPlayer(s.ctx, "Alice")
	s.Require().NoError(err)

	validated, err := s.service.ValidateSession(session.Token)
	s.Require().NoError(err)
	s.Equal(session.PlayerID, validated.PlayerID)

	_, err = s.service.ValidateSession("invalid_token")
	s.ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestValidateSessionFailsWhenExpired() {
	session, err := s.service.CreateGuestPlayer(s.ctx, "Alice")
	s.Require().NoError(err)

	s.clock.Advance(24 * time.Hour)
	_, err = s.service.ValidateSession(session.Token)
	s.Require().NoError(err, "valid up to and including the deadline")

	s.clock.AdvancePast(session.ExpiresAt)
	_, err = s.service.ValidateSession(session.Token)
	s.ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestInvalidateSession() {
	session, err := s.service.CreateGuestPlayer(s.ctx, "Alice")
	s.Require().NoError(err)

	s.service.InvalidateSession(session.Token)
	s.service.InvalidateSession("unknown_token")

	_, err = s.service.ValidateSession(session.Token)
	s.ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestInvalidatePlayerSessions() {
	_, err := s.service.RegisterPlayer(s.ctx, "alice", "password123", "")
	s.Require().NoError(err)
	second, err := s.service.Login(s.ctx, "alice", "password123")
	s.Require().NoError(err)
	bob, err := s.service.CreateGuestPlayer(s.ctx, "Bob")
	s.Require().NoError(err)

	s.Equal(2, s.service.InvalidatePlayerSessions(second.PlayerID))
	s.Equal(0, s.service.InvalidatePlayerSessions(second.PlayerID))

	_, err = s.service.ValidateSession(second.Token)
	s.ErrorIs(err, ErrInvalidSession)
	_, err = s.service.ValidateSession(bob.Token)
	s.NoError(err, "other players keep their sessions")
}

func (s *ServiceSuite) TestDisplayNameValidation() {
	session, err := s.service.CreateGuestPlayer(s.ctx, "  Alice  ")
	s.Require().NoError(err)
	s.Equal("Alice", session.Player.DisplayName)

	for _, name := range []string{"", "   ", strings.Repeat("x", 65), "bad\x00name"} {
		_, err := s.service.CreateGuestPlayer(s.ctx, name)
		s.ErrorIs(err, ErrInvalidDisplayName, "%q", name)
	}

	_, err = s.service.RegisterPlayer(s.ctx, "alice", "password123", "tab\tname")
	s.ErrorIs(err, ErrInvalidDisplayName)
}

func (s *ServiceSuite) TestCleanExpiredSessions() {
	expired, err := s.service.CreateGuestPlayer(s.ctx, "Alice")
	s.Require().NoError(err)
	s.clock.Advance(25 * time.Hour)
	live, err := s.service.CreateGuestPlayer(s.ctx, "Bob")
	s.Require().NoError(err)

	s.Equal(1, s.service.CleanExpiredSessions())

	_, err = s.service.ValidateSession(expired.Token)
	s.ErrorIs(err, ErrInvalidSession)
	_, err = s.service.ValidateSession(live.Token)
	s.NoError(err)
}
