package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/fhecity/internal/model"
	"github.com/mcoot/fhecity/internal/storage"
)

// Storage keeps players, credentials and accounts as JSON strings and the
// event log as a capped list
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New connects to cfg.URL and fails fast if the server does not answer
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	s := NewWithClient(redis.NewClient(opts), cfg)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DialTimeout)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		_ = s.client.Close()
		return nil, err
	}
	return s, nil
}

// NewWithClient wraps an existing client, filling unset limits from
// DefaultConfig. Tests use it with miniredis.
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	defaults := DefaultConfig()
	if cfg.EventLogSize <= 0 {
		cfg.EventLogSize = defaults.EventLogSize
	}
	if cfg.MaxUpdateRetries <= 0 {
		cfg.MaxUpdateRetries = defaults.MaxUpdateRetries
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.Logger = cfg.Logger.With(slog.String("component", "redis-storage"))
	return &Storage{client: client, cfg: cfg}
}

func (s *Storage) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}

var _ storage.Storage = (*Storage)(nil)

// Players

// SavePlayer stores a player. Guests expire after GuestPlayerTTL; registered
// players are kept.
func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	var ttl time.Duration
	if player.IsGuest {
		ttl = s.cfg.GuestPlayerTTL
	}
	return s.setJSON(ctx, playerKey(player.ID), player, ttl)
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	player := new(model.Player)
	if err := s.getJSON(ctx, playerKey(id), player, model.ErrPlayerNotFound); err != nil {
		return nil, err
	}
	return player, nil
}

func (s *Storage) DeletePlayer(ctx context.Context, id model.PlayerID) error {
	return s.client.Del(ctx, playerKey(id)).Err()
}

// Credentials

// SaveRegisteredPlayer claims the username with SETNX before writing the
// credentials, so two concurrent registrations cannot share a name
func (s *Storage) SaveRegisteredPlayer(ctx context.Context, rp *model.RegisteredPlayer) error {
	idx := usernameIndexKey(rp.Username)
	claimed, err := s.client.SetNX(ctx, idx, string(rp.PlayerID), 0).Result()
	if err != nil {
		return fmt.Errorf("claim username: %w", err)
	}
	if !claimed {
		owner, err := s.client.Get(ctx, idx).Result()
		if err != nil {
			return fmt.Errorf("read username owner: %w", err)
		}
		if model.PlayerID(owner) != rp.PlayerID {
			return model.ErrUsernameTaken
		}
	}
	return s.setJSON(ctx, registeredPlayerKey(rp.PlayerID), rp, 0)
}

func (s *Storage) GetRegisteredPlayer(ctx context.Context, playerID model.PlayerID) (*model.RegisteredPlayer, error) {
	var rp model.RegisteredPlayer
	if err := s.getJSON(ctx, registeredPlayerKey(playerID), &rp, model.ErrPlayerNotFound); err != nil {
		return nil, err
	}
	return &rp, nil
}

func (s *Storage) GetRegisteredPlayerByUsername(ctx context.Context, username string) (*model.RegisteredPlayer, error) {
	owner, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, model.ErrPlayerNotFound
	case err != nil:
		return nil, fmt.Errorf("read username index: %w", err)
	}
	return s.GetRegisteredPlayer(ctx, model.PlayerID(owner))
}

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return err
	}

	created, err := s.client.SetNX(ctx, accountKey(account.PlayerID), data, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return model.ErrAlreadyJoined
	}
	return nil
}

func (s *Storage) GetAccount(ctx context.Context, id model.PlayerID) (*model.Account, error) {
	var account model.Account
	if err := s.getJSON(ctx, accountKey(id), &account, model.ErrAccountNotFound); err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateAccount uses WATCH/MULTI so that writers in other processes sharing
// the same Redis cannot interleave with a read-modify-write
func (s *Storage) UpdateAccount(ctx context.Context, id model.PlayerID, fn storage.UpdateFunc) (*model.Account, error) {
	key := accountKey(id)

	for range s.cfg.MaxUpdateRetries {
		var updated *model.Account
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return model.ErrAccountNotFound
				}
				return err
			}

			var account model.Account
			if err := json.Unmarshal(data, &account); err != nil {
				return fmt.Errorf("decode account %s: %w", id, err)
			}
			if err := fn(&account); err != nil {
				return err
			}
			account.Version++

			data, err = json.Marshal(&account)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				return nil
			})
			if err != nil {
				return err
			}
			updated = &account
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, model.ErrConcurrentUpdate
}

// Event log operations

func (s *Storage) AppendEvent(ctx context.Context, event *model.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	key := eventLogKey()
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-s.cfg.EventLogSize), -1)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) ListEvents(ctx context.Context, limit int) ([]*model.Event, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	values, err := s.client.LRange(ctx, eventLogKey(), start, -1).Result()
	if err != nil {
		return nil, err
	}

	events := make([]*model.Event, 0, len(values))
	for i, val := range values {
		var event model.Event
		if err := json.Unmarshal([]byte(val), &event); err != nil {
			s.cfg.Logger.Warn("skipping undecodable event log entry",
				slog.Int("index", i),
				slog.Any("error", err))
			continue
		}
		events = append(events, &event)
	}
	return events, nil
}

// setJSON encodes v and stores it under key, expiring after ttl when non-zero
func (s *Storage) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

// getJSON loads and decodes a JSON value, mapping a missing key to notFound
func (s *Storage) getJSON(ctx context.Context, key string, v any, notFound error) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return notFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}
