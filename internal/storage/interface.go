package storage

import (
	"context"

	"github.com/mcoot/fhecity/internal/model"
)

// DefaultEventLogSize is the number of events kept in the event log
const DefaultEventLogSize = 1000

// UpdateFunc mutates an account in place. Returning an error aborts the
// update and leaves the stored account untouched.
type UpdateFunc func(account *model.Account) error

// Storage defines the interface for data persistence
type Storage interface {
	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error

	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	DeletePlayer(ctx context.Context, id model.PlayerID) error

	// Registered player operations
	SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error
	GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error)
	GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error)

	// Account operations
	//
	// CreateAccount stores a new account, failing with model.ErrAlreadyJoined
	// if one already exists for the player.
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id model.PlayerID) (*model.Account, error)
	// UpdateAccount applies fn to the latest version of the account and
	// commits the result only if nobody else committed in between, retrying
	// otherwise. Returns the committed account.
	UpdateAccount(ctx context.Context, id model.PlayerID, fn UpdateFunc) (*model.Account, error)

	// Event log operations
	AppendEvent(ctx context.Context, event *model.Event) error
	// ListEvents returns up to limit of the most recent events, oldest first
	ListEvents(ctx context.Context, limit int) ([]*model.Event, error)
}
