package memory

import (
	"context"
	"sync"

	"github.com/mcoot/fhecity/internal/model"
	"github.com/mcoot/fhecity/internal/storage"
)

const maxUpdateRetries = 16

// Storage keeps everything in maps guarded by one lock. Values are copied
// on the way in and out so callers never share state with the store.
type Storage struct {
	mu sync.RWMutex

	players      map[model.PlayerID]model.Player
	credentials  map[model.PlayerID]model.RegisteredPlayer
	usernames    map[string]model.PlayerID
	accounts     map[model.PlayerID]*model.Account
	events       []*model.Event
	eventLogSize int
}

func New() *Storage {
	return &Storage{
		players:      make(map[model.PlayerID]model.Player),
		credentials:  make(map[model.PlayerID]model.RegisteredPlayer),
		usernames:    make(map[string]model.PlayerID),
		accounts:     make(map[model.PlayerID]*model.Account),
		eventLogSize: storage.DefaultEventLogSize,
	}
}

var _ storage.Storage = (*Storage)(nil)

// Ping only reports a cancelled context; there is nothing to reach
func (s *Storage) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Players

func (s *Storage) SavePlayer(_ context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[player.ID] = *player
	return nil
}

func (s *Storage) GetPlayer(_ context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.players[id]; ok {
		return &p, nil
	}
	return nil, model.ErrPlayerNotFound
}

func (s *Storage) DeletePlayer(_ context.Context, id model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, id)
	return nil
}

// Credentials

func (s *Storage) SaveRegisteredPlayer(_ context.Context, rp *model.RegisteredPlayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.usernames[rp.Username]; ok && owner != rp.PlayerID {
		return model.ErrUsernameTaken
	}
	s.credentials[rp.PlayerID] = *rp
	s.usernames[rp.Username] = rp.PlayerID
	return nil
}

func (s *Storage) GetRegisteredPlayer(_ context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rp, ok := s.credentials[playerID]; ok {
		return &rp, nil
	}
	return nil, model.ErrPlayerNotFound
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	s.mu.RLock()
	playerID, ok := s.usernames[username]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return s.GetRegisteredPlayer(ctx, playerID)
}

// Account operations
// Accounts are cloned on the way in and out so callers never share state
// with the store.

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.PlayerID]; ok {
		return model.ErrAlreadyJoined
	}
	s.accounts[account.PlayerID] = account.Clone()
	return nil
}

func (s *Storage) GetAccount(ctx context.Context, id model.PlayerID) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return account.Clone(), nil
}

func (s *Storage) UpdateAccount(ctx context.Context, id model.PlayerID, fn storage.UpdateFunc) (*model.Account, error) {
	for range maxUpdateRetries {
		current, err := s.GetAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		version := current.Version

		// fn runs without the lock held
		if err := fn(current); err != nil {
			return nil, err
		}
		current.Version = version + 1

		s.mu.Lock()
		stored := s.accounts[id]
		if stored.Version != version {
			s.mu.Unlock()
			continue
		}
		s.accounts[id] = current.Clone()
		s.mu.Unlock()
		return current, nil
	}
	return nil, model.ErrConcurrentUpdate
}

// Event log operations

func (s *Storage) AppendEvent(ctx context.Context, event *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := *event
	s.events = append(s.events, &e)
	if over := len(s.events) - s.eventLogSize; over > 0 {
		s.events = append([]*model.Event(nil), s.events[over:]...)
	}
	return nil
}

func (s *Storage) ListEvents(ctx context.Context, limit int) ([]*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if limit > 0 && limit < len(s.events) {
		start = len(s.events) - limit
	}
	result := make([]*model.Event, 0, len(s.events)-start)
	for _, e := range s.events[start:] {
		c := *e
		result = append(result, &c)
	}
	return result, nil
}
