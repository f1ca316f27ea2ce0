// Package city owns player accounts: joining, placing buildings and the
// read accessors over the stored ciphertexts.
package city

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mcoot/fhecity/internal/dependencies/clock"
	"github.com/mcoot/fhecity/internal/fhe"
	"github.com/mcoot/fhecity/internal/model"
	"github.com/mcoot/fhecity/internal/services/rules"
	"github.com/mcoot/fhecity/internal/storage"
)

// EventSink receives public notifications about accounts
type EventSink interface {
	PlayerJoined(ctx context.Context, playerID model.PlayerID)
	BuildingPlaced(ctx context.Context, playerID model.PlayerID, pos model.Position)
}

// NopEventSink discards all events
type NopEventSink struct{}

func (NopEventSink) PlayerJoined(context.Context, model.PlayerID)                   {}
func (NopEventSink) BuildingPlaced(context.Context, model.PlayerID, model.Position) {}

// Config holds configuration for the city controller
type Config struct {
	// StoreID is the identity the controller holds decryption rights under
	StoreID string
}

// DefaultConfig returns default city configuration
func DefaultConfig() Config {
	return Config{
		StoreID: "fhecity-store",
	}
}

// Controller applies joins and placements to player accounts
type Controller struct {
	storage   storage.Storage
	engine    fhe.Engine
	evaluator *rules.Evaluator
	clock     clock.Clock
	events    EventSink
	logger    *slog.Logger
	storeID   string

	locks *keyedMutex
}

// NewController creates a new city Controller
func NewController(
	storage storage.Storage,
	engine fhe.Engine,
	clock clock.Clock,
	events EventSink,
	logger *slog.Logger,
	cfg Config,
) *Controller {
	if cfg.StoreID == "" {
		cfg.StoreID = DefaultConfig().StoreID
	}
	if events == nil {
		events = NopEventSink{}
	}
	return &Controller{
		storage:   storage,
		engine:    engine,
		evaluator: rules.New(engine),
		clock:     clock,
		events:    events,
		logger:    logger,
		storeID:   cfg.StoreID,
		locks:     newKeyedMutex(),
	}
}

// StoreID returns the identity stored values are shared with
func (c *Controller) StoreID() string {
	return c.storeID
}

// Join creates the account for a player with the starting balance and an
// empty grid
func (c *Controller) Join(ctx context.Context, playerID model.PlayerID) (*model.Account, error) {
	unlock := c.locks.Lock(playerID)
	defer unlock()

	joined, err := c.HasJoined(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if joined {
		return nil, model.ErrAlreadyJoined
	}

	account, err := c.newAccount(playerID)
	if err != nil {
		c.logger.Error("failed to initialise account",
			slog.String("player_id", string(playerID)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if err := c.storage.CreateAccount(ctx, account); err != nil {
		if !errors.Is(err, model.ErrAlreadyJoined) {
			c.logger.Error("failed to save account",
				slog.String("player_id", string(playerID)),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}

	c.logger.Info("player joined", slog.String("player_id", string(playerID)))
	c.events.PlayerJoined(ctx, playerID)

	return account, nil
}

// PlaceBuilding evaluates a proposed building at pos against the player's
// current tile and balance, and commits the resulting tile, balance and
// status together. Rejections by the rules are not errors; they show up
// only in the encrypted status.
func (c *Controller) PlaceBuilding(ctx context.Context, playerID model.PlayerID, pos model.Position, proposed fhe.EncryptedU8) (*model.Account, error) {
	unlock := c.locks.Lock(playerID)
	defer unlock()

	if _, err := c.getAccount(ctx, playerID); err != nil {
		return nil, err
	}
	if !pos.Valid() {
		return nil, model.ErrInvalidPosition
	}
	if err := c.checkProposal(playerID, proposed); err != nil {
		return nil, err
	}

	account, err := c.storage.UpdateAccount(ctx, playerID, func(a *model.Account) error {
		out, err := c.evaluator.Evaluate(proposed, a.Grid[pos], a.Balance)
		if err != nil {
			return err
		}

		readers := c.readers(playerID)
		if a.Grid[pos], err = fhe.AllowU8(c.engine, out.NewTile, readers...); err != nil {
			return err
		}
		if a.Balance, err = fhe.AllowU64(c.engine, out.NewBalance, readers...); err != nil {
			return err
		}
		if a.LastStatus, err = fhe.AllowU8(c.engine, out.Status, readers...); err != nil {
			return err
		}
		a.UpdatedAt = c.clock.Now()
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return nil, model.ErrNotJoined
		}
		c.logger.Error("failed to place building",
			slog.String("player_id", string(playerID)),
			slog.Int("position", int(pos)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	c.logger.Info("building placement evaluated",
		slog.String("player_id", string(playerID)),
		slog.Int("position", int(pos)),
	)
	c.events.BuildingPlaced(ctx, playerID, pos)

	return account, nil
}

// GetBalance returns the encrypted balance of a player
func (c *Controller) GetBalance(ctx context.Context, playerID model.PlayerID) (fhe.EncryptedU64, error) {
	account, err := c.getAccount(ctx, playerID)
	if err != nil {
		return fhe.EncryptedU64{}, err
	}
	return account.Balance, nil
}

// GetTile returns the encrypted tile at pos
func (c *Controller) GetTile(ctx context.Context, playerID model.PlayerID, pos model.Position) (fhe.EncryptedU8, error) {
	if !pos.Valid() {
		return fhe.EncryptedU8{}, model.ErrInvalidPosition
	}
	account, err := c.getAccount(ctx, playerID)
	if err != nil {
		return fhe.EncryptedU8{}, err
	}
	return account.Tile(pos)
}

// GetBoard returns all encrypted tiles, row-major
func (c *Controller) GetBoard(ctx context.Context, playerID model.PlayerID) ([model.GridSize]fhe.EncryptedU8, error) {
	account, err := c.getAccount(ctx, playerID)
	if err != nil {
		return [model.GridSize]fhe.EncryptedU8{}, err
	}
	return account.Grid, nil
}

// GetLastStatus returns the encrypted status of the latest placement
func (c *Controller) GetLastStatus(ctx context.Context, playerID model.PlayerID) (fhe.EncryptedU8, error) {
	account, err := c.getAccount(ctx, playerID)
	if err != nil {
		return fhe.EncryptedU8{}, err
	}
	return account.LastStatus, nil
}

// HasJoined reports whether a player has joined
func (c *Controller) HasJoined(ctx context.Context, playerID model.PlayerID) (bool, error) {
	account, err := c.storage.GetAccount(ctx, playerID)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return false, nil
		}
		return false, err
	}
	return account.Joined, nil
}

// getAccount loads a joined account, mapping absence to ErrNotJoined
func (c *Controller) getAccount(ctx context.Context, playerID model.PlayerID) (*model.Account, error) {
	account, err := c.storage.GetAccount(ctx, playerID)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return nil, model.ErrNotJoined
		}
		return nil, err
	}
	if !account.Joined {
		return nil, model.ErrNotJoined
	}
	return account, nil
}

// checkProposal screens the submitted ciphertext before any evaluation, so
// that the rules only ever see authenticated operands
func (c *Controller) checkProposal(playerID model.PlayerID, proposed fhe.EncryptedU8) error {
	if err := c.engine.Verify(proposed.Ciphertext, fhe.KindU8); err != nil {
		if errors.Is(err, fhe.ErrMalformed) || errors.Is(err, fhe.ErrKindMismatch) {
			return model.ErrMalformedCiphertext
		}
		return err
	}
	if !proposed.CanRead(playerID.Identity()) {
		return model.ErrCiphertextNotAllowed
	}
	return nil
}

func (c *Controller) newAccount(playerID model.PlayerID) (*model.Account, error) {
	readers := c.readers(playerID)
	now := c.clock.Now()

	account := &model.Account{
		PlayerID:  playerID,
		Joined:    true,
		JoinedAt:  now,
		UpdatedAt: now,
	}

	balance, err := c.engine.TrivialEncryptU64(model.StartingGold)
	if err != nil {
		return nil, fmt.Errorf("encrypt starting balance: %w", err)
	}
	if account.Balance, err = fhe.AllowU64(c.engine, balance, readers...); err != nil {
		return nil, err
	}

	for i := range account.Grid {
		tile, err := c.engine.TrivialEncryptU8(model.EmptyTile)
		if err != nil {
			return nil, fmt.Errorf("encrypt empty tile: %w", err)
		}
		if account.Grid[i], err = fhe.AllowU8(c.engine, tile, readers...); err != nil {
			return nil, err
		}
	}

	status, err := c.engine.TrivialEncryptU8(uint8(model.StatusSuccess))
	if err != nil {
		return nil, fmt.Errorf("encrypt initial status: %w", err)
	}
	if account.LastStatus, err = fhe.AllowU8(c.engine, status, readers...); err != nil {
		return nil, err
	}

	return account, nil
}

func (c *Controller) readers(playerID model.PlayerID) []string {
	return []string{playerID.Identity(), c.storeID}
}
