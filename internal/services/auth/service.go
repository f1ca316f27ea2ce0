// Package auth issues the identities that own city accounts: guest players,
// registered players with bcrypt passwords, and the in-memory sessions that
// bind bearer tokens to them.
package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/fhecity/internal/dependencies/clock"
	"github.com/mcoot/fhecity/internal/dependencies/random"
	"github.com/mcoot/fhecity/internal/model"
	"github.com/mcoot/fhecity/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidUsername    = errors.New("username must be 3-32 characters without spaces")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrInvalidDisplayName = errors.New("display name must be 1-64 printable characters")
)

const (
	minUsernameLength    = 3
	maxUsernameLength    = 32
	minPasswordLength    = 8
	maxDisplayNameLength = 64

	sessionTokenPrefix = "sess_"
	sessionTokenBytes  = 24
)

// Session binds a bearer token to a player until ExpiresAt
type Session struct {
	Token     string
	PlayerID  model.PlayerID
	Player    model.Player
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Config holds configuration for the auth service
type Config struct {
	SessionDuration time.Duration
	BcryptCost      int
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 24 * time.Hour,
		BcryptCost:      bcrypt.DefaultCost,
	}
}

// Service handles identities and sessions
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
	cfg     Config

	// Compared against when a username is unknown, so a failed login costs
	// the same whether or not the account exists
	dummyHash []byte

	mu       sync.RWMutex
	sessions map[string]*Session
}

// New creates an auth service. Zero config fields take their defaults.
func New(store storage.Storage, clk clock.Clock, rnd random.Random, logger *slog.Logger, cfg Config) *Service {
	defaults := DefaultConfig()
	if cfg.SessionDuration <= 0 {
		cfg.SessionDuration = defaults.SessionDuration
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = defaults.BcryptCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("fhecity-dummy-password"), cfg.BcryptCost)

	return &Service{
		storage:   store,
		clock:     clk,
		random:    rnd,
		logger:    logger.With(slog.String("component", "auth")),
		cfg:       cfg,
		dummyHash: dummy,
		sessions:  make(map[string]*Session),
	}
}

// CreateGuestPlayer creates an unregistered player and a session for it
func (s *Service) CreateGuestPlayer(ctx context.Context, displayName string) (*Session, error) {
	displayName, err := normalizeDisplayName(displayName)
	if err != nil {
		return nil, err
	}

	player := &model.Player{
		ID:          model.NewPlayerID(),
		DisplayName: displayName,
		IsGuest:     true,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("auth: save guest: %w", err)
	}

	s.logger.Info("guest player created", slog.String("player_id", player.ID.Identity()))
	return s.createSession(player)
}

// RegisterPlayer creates a player with login credentials and a session for
// it. An empty display name defaults to the username.
func (s *Service) RegisterPlayer(ctx context.Context, username, password, displayName string) (*Session, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}
	if displayName == "" {
		displayName = username
	}
	displayName, err := normalizeDisplayName(displayName)
	if err != nil {
		return nil, err
	}

	switch _, err := s.storage.GetRegisteredPlayerByUsername(ctx, username); {
	case err == nil:
		return nil, ErrUsernameExists
	case !errors.Is(err, model.ErrPlayerNotFound):
		return nil, fmt.Errorf("auth: look up username: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	now := s.clock.Now()
	player := &model.Player{
		ID:          model.NewPlayerID(),
		DisplayName: displayName,
		CreatedAt:   now,
	}
	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("auth: save player: %w", err)
	}
	err = s.storage.SaveRegisteredPlayer(ctx, &model.RegisteredPlayer{
		PlayerID:     player.ID,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, model.ErrUsernameTaken) {
		// Lost a race with a concurrent registration of the same name
		_ = s.storage.DeletePlayer(ctx, player.ID)
		return nil, ErrUsernameExists
	}
	if err != nil {
		return nil, fmt.Errorf("auth: save credentials: %w", err)
	}

	s.logger.Info("player registered",
		slog.String("player_id", player.ID.Identity()),
		slog.String("username", username))
	return s.createSession(player)
}

// Login checks a username and password and opens a new session
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	rp, err := s.storage.GetRegisteredPlayerByUsername(ctx, username)
	if errors.Is(err, model.ErrPlayerNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("auth: look up username: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rp.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("login failed", slog.String("username", username))
		return nil, ErrInvalidCredentials
	}

	player, err := s.storage.GetPlayer(ctx, rp.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("auth: load player: %w", err)
	}
	return s.createSession(player)
}

// ValidateSession returns the live session for token. Expired sessions are
// dropped on sight.
func (s *Service) ValidateSession(token string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidSession
	}
	if clock.Expired(s.clock, session.ExpiresAt) {
		s.InvalidateSession(token)
		return nil, ErrInvalidSession
	}
	return session, nil
}

// InvalidateSession removes a session. Unknown tokens are ignored.
func (s *Service) InvalidateSession(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// InvalidatePlayerSessions ends every session of a player and returns how
// many there were
func (s *Service) InvalidatePlayerSessions(playerID model.PlayerID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, session := range s.sessions {
		if session.PlayerID == playerID {
			delete(s.sessions, token)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("player sessions ended",
			slog.String("player_id", playerID.Identity()),
			slog.Int("count", removed))
	}
	return removed
}

// CleanExpiredSessions drops expired sessions and returns how many went
func (s *Service) CleanExpiredSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, session := range s.sessions {
		if clock.Expired(s.clock, session.ExpiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

func (s *Service) createSession(player *model.Player) (*Session, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := s.random.Read(b); err != nil {
		return nil, fmt.Errorf("auth: generate token: %w", err)
	}
	now := s.clock.Now()

	session := &Session{
		Token:     sessionTokenPrefix + base64.RawURLEncoding.EncodeToString(b),
		PlayerID:  player.ID,
		Player:    *player,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionDuration),
	}

	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()

	return session, nil
}

func validateCredentials(username, password string) error {
	if len(username) < minUsernameLength || len(username) > maxUsernameLength ||
		strings.ContainsFunc(username, unicode.IsSpace) {
		return ErrInvalidUsername
	}
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// normalizeDisplayName trims surrounding space and rejects names that are
// empty, too long or contain control characters
func normalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n == 0 || n > maxDisplayNameLength || !utf8.ValidString(name) || strings.ContainsFunc(name, unicode.IsControl) {
		return "", ErrInvalidDisplayName
	}
	return name, nil
}
