// Package storagetest holds behaviour tests shared by every storage backend
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/fhecity/internal/fhe"
	"github.com/mcoot/fhecity/internal/model"
	"github.com/mcoot/fhecity/internal/storage"
)

// Suite runs the storage contract against the backend returned by NewStorage.
// Backends embed it in their own suite and set NewStorage in SetupTest.
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

// NewAccount builds an account with recognisable placeholder ciphertexts.
// Storage never interprets payloads, so they need not be real.
func NewAccount(id model.PlayerID) *model.Account {
	account := &model.Account{
		PlayerID:   id,
		Joined:     true,
		Balance:    fhe.EncryptedU64{Ciphertext: placeholder(fhe.KindU64, "balance", id)},
		LastStatus: fhe.EncryptedU8{Ciphertext: placeholder(fhe.KindU8, "status", id)},
		JoinedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	for i := range account.Grid {
		account.Grid[i] = fhe.EncryptedU8{Ciphertext: placeholder(fhe.KindU8, fmt.Sprintf("tile-%d", i), id)}
	}
	account.UpdatedAt = account.JoinedAt
	return account
}

func placeholder(kind fhe.Kind, label string, id model.PlayerID) fhe.Ciphertext {
	return fhe.Ciphertext{
		Kind:    kind,
		Payload: []byte(label),
		Readers: []string{string(id), "store"},
	}
}

func (s *Suite) TestPing() {
	s.NoError(s.Storage.Ping(s.Ctx))
}

// Player tests

func (s *Suite) TestSaveAndGetPlayer() {
	player := &model.Player{ID: "player-1", DisplayName: "Alice", CreatedAt: time.Now().UTC()}

	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, player))

	retrieved, err := s.Storage.GetPlayer(s.Ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(player.ID, retrieved.ID)
	s.Equal("Alice", retrieved.DisplayName)
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.Storage.GetPlayer(s.Ctx, "nonexistent")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestDeletePlayer() {
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, &model.Player{ID: "player-1"}))

	s.Require().NoError(s.Storage.DeletePlayer(s.Ctx, "player-1"))

	_, err := s.Storage.GetPlayer(s.Ctx, "player-1")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestRegisteredPlayerByUsername() {
	rp := &model.RegisteredPlayer{PlayerID: "player-1", Username: "alice", PasswordHash: "hash"}
	s.Require().NoError(s.Storage.SaveRegisteredPlayer(s.Ctx, rp))

	byID, err := s.Storage.GetRegisteredPlayer(s.Ctx, "player-1")
	s.Require().NoError(err)
	s.Equal("alice", byID.Username)

	byName, err := s.Storage.GetRegisteredPlayerByUsername(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-1"), byName.PlayerID)

	_, err = s.Storage.GetRegisteredPlayerByUsername(s.Ctx, "bob")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestUsernameBelongsToOnePlayer() {
	s.Require().NoError(s.Storage.SaveRegisteredPlayer(s.Ctx,
		&model.RegisteredPlayer{PlayerID: "player-1", Username: "alice", PasswordHash: "hash"}))

	err := s.Storage.SaveRegisteredPlayer(s.Ctx,
		&model.RegisteredPlayer{PlayerID: "player-2", Username: "alice", PasswordHash: "other"})
	s.ErrorIs(err, model.ErrUsernameTaken)

	// The owner may rewrite its own credentials
	s.NoError(s.Storage.SaveRegisteredPlayer(s.Ctx,
		&model.RegisteredPlayer{PlayerID: "player-1", Username: "alice", PasswordHash: "rotated"}))

	rp, err := s.Storage.GetRegisteredPlayerByUsername(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("player-1"), rp.PlayerID)
	s.Equal("rotated", rp.PasswordHash)
}

func (s *Suite) TestReturnedPlayerIsACopy() {
	s.Require().NoError(s.Storage.SavePlayer(s.Ctx, &model.Player{ID: "player-1", DisplayName: "Alice"}))

	first, err := s.Storage.GetPlayer(s.Ctx, "player-1")
	s.Require().NoError(err)
	first.DisplayName = "Mallory"

	second, err := s.Storage.GetPlayer(s.Ctx, "player-1")
	s.Require().NoError(err)
	s.Equal("Alice", second.DisplayName)
}

// Account tests

func (s *Suite) TestCreateAndGetAccount() {
	account := NewAccount("alice")

	s.Require().NoError(s.Storage.CreateAccount(s.Ctx, account))

	retrieved, err := s.Storage.GetAccount(s.Ctx, "alice")
	s.Require().NoError(err)
	s.True(retrieved.Joined)
	s.Equal(account.Balance, retrieved.Balance)
	s.Equal(account.Grid, retrieved.Grid)
	s.Equal(account.LastStatus, retrieved.LastStatus)
	s.True(account.JoinedAt.Equal(retrieved.JoinedAt))
}

func (s *Suite) TestCreateAccountTwiceFails() {
	s.Require().NoError(s.Storage.CreateAccount(s.Ctx, NewAccount("alice")))

	replacement := NewAccount("alice")
	replacement.Balance.Payload = []byte("other")
	err := s.Storage.CreateAccount(s.Ctx, replacement)
	s.ErrorIs(err, model.ErrAlreadyJoined)

	retrieved, err := s.Storage.GetAccount(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal([]byte("balance"), retrieved.Balance.Payload)
}

func (s *Suite) TestGetAccountNotFound() {
	_, err := s.Storage.GetAccount(s.Ctx, "nobody")
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *Suite) TestUpdateAccount() {
	s.Require().NoError(s.Storage.CreateAccount(s.Ctx, NewAccount("alice")))

	updated, err := s.Storage.UpdateAccount(s.Ctx, "alice", func(a *model.Account) error {
		a.Grid[4].Payload = []byte("farm")
		return nil
	})
	s.Require().NoError(err)
	s.Equal(uint64(1), updated.Version)

	retrieved, err := s.Storage.GetAccount(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal([]byte("farm"), retrieved.Grid[4].Payload)
	s.Equal([]byte("tile-3"), retrieved.Grid[3].Payload)
	s.Equal(uint64(1), retrieved.Version)
}

func (s *Suite) TestUpdateAccountAbortedByError() {
	s.Require().NoError(s.Storage.CreateAccount(s.Ctx, NewAccount("alice")))
	boom := fmt.Errorf("boom")

	_, err := s.Storage.UpdateAccount(s.Ctx, "alice", func(a *model.Account) error {
		a.Balance.Payload = []byte("changed")
		return boom
	})
	s.ErrorIs(err, boom)

	retrieved, err := s.Storage.GetAccount(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal([]byte("balance"), retrieved.Balance.Payload)
	s.Equal(uint64(0), retrieved.Version)
}

func (s *Suite) TestUpdateAccountNotFound() {
	_, err := s.Storage.UpdateAccount(s.Ctx, "nobody", func(a *model.Account) error { return nil })
	s.ErrorIs(err, model.ErrAccountNotFound)
}

func (s *Suite) TestReturnedAccountIsACopy() {
	s.Require().NoError(s.Storage.CreateAccount(s.Ctx, NewAccount("alice")))

	retrieved, err := s.Storage.GetAccount(s.Ctx, "alice")
	s.Require().NoError(err)
	retrieved.Grid[0] = fhe.EncryptedU8{}
	retrieved.Joined = false

	again, err := s.Storage.GetAccount(s.Ctx, "alice")
	s.Require().NoError(err)
	s.True(again.Joined)
	s.Equal([]byte("tile-0"), again.Grid[0].Payload)
}

func (s *Suite) TestConcurrentUpdatesAreNotLost() {
	s.Require().NoError(s.Storage.CreateAccount(s.Ctx, NewAccount("alice")))

	const writers = 8
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Storage.UpdateAccount(s.Ctx, "alice", func(a *model.Account) error {
				a.UpdatedAt = a.UpdatedAt.Add(time.Second)
				return nil
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	retrieved, err := s.Storage.GetAccount(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(uint64(writers), retrieved.Version)
	s.True(retrieved.JoinedAt.Add(writers * time.Second).Equal(retrieved.UpdatedAt))
}

// Event log tests

func (s *Suite) TestEventLog() {
	events, err := s.Storage.ListEvents(s.Ctx, 10)
	s.Require().NoError(err)
	s.Empty(events)

	pos := model.Position(4)
	s.Require().NoError(s.Storage.AppendEvent(s.Ctx, &model.Event{ID: "e1", Type: model.EventPlayerJoined, PlayerID: "alice"}))
	s.Require().NoError(s.Storage.AppendEvent(s.Ctx, &model.Event{ID: "e2", Type: model.EventBuildingPlaced, PlayerID: "alice", Position: &pos}))
	s.Require().NoError(s.Storage.AppendEvent(s.Ctx, &model.Event{ID: "e3", Type: model.EventPlayerJoined, PlayerID: "bob"}))

	all, err := s.Storage.ListEvents(s.Ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal("e1", all[0].ID)
	s.Equal("e3", all[2].ID)
	s.Require().NotNil(all[1].Position)
	s.Equal(model.Position(4), *all[1].Position)

	recent, err := s.Storage.ListEvents(s.Ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal("e2", recent[0].ID)
	s.Equal("e3", recent[1].ID)
}
