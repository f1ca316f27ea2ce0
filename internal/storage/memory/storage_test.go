package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/fhecity/internal/model"
	"github.com/mcoot/fhecity/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	memory *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.memory = New()
	s.Storage = s.memory
	s.Ctx = context.Background()
}

func (s *StorageSuite) TestEventLogIsBounded() {
	s.memory.eventLogSize = 3
	for _, id := range []string{"e1", "e2", "e3", "e4", "e5"} {
		s.Require().NoError(s.memory.AppendEvent(s.Ctx, &model.Event{ID: id, Type: model.EventPlayerJoined}))
	}

	events, err := s.memory.ListEvents(s.Ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	s.Equal("e3", events[0].ID)
	s.Equal("e5", events[2].ID)
}

func (s *StorageSuite) TestUpdateDetectsInterleavedWrite() {
	s.Require().NoError(s.memory.CreateAccount(s.Ctx, storagetest.NewAccount("alice")))

	attempts := 0
	updated, err := s.memory.UpdateAccount(s.Ctx, "alice", func(a *model.Account) error {
		attempts++
		if attempts == 1 {
			// Another writer commits while this one is computing
			_, err := s.memory.UpdateAccount(s.Ctx, "alice", func(inner *model.Account) error {
				inner.Balance.Payload = []byte("inner")
				return nil
			})
			s.Require().NoError(err)
		}
		a.Grid[0].Payload = []byte("outer")
		return nil
	})
	s.Require().NoError(err)

	s.Equal(2, attempts)
	s.Equal(uint64(2), updated.Version)
	s.Equal([]byte("inner"), updated.Balance.Payload)
	s.Equal([]byte("outer"), updated.Grid[0].Payload)
}
