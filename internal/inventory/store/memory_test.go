package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/sou1357/bloodbankapp/internal/inventory/models"
	"github.com/sou1357/bloodbankapp/pkg/domain"
	"github.com/sou1357/bloodbankapp/pkg/platform/sentinel"
)

type InventoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *InventoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestInventoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InventoryStoreSuite))
}

func (s *InventoryStoreSuite) newRecord(group domain.BloodGroup, quantity int) *models.Record {
	record, err := models.NewRecord(uuid.NewString(), group, quantity, nil, models.StatusAvailable, time.Now())
	s.Require().NoError(err)
	return record
}

func (s *InventoryStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds by group and id", func() {
		record := s.newRecord(domain.BloodGroupAPositive, 5)
		s.Require().NoError(s.store.Create(s.ctx, record))

		byGroup, err := s.store.FindByGroup(s.ctx, domain.BloodGroupAPositive)
		s.Require().NoError(err)
		s.Equal(5, byGroup.Quantity)

		byID, err := s.store.FindByID(s.ctx, record.ID)
		s.Require().NoError(err)
		s.Equal(record.BloodGroup, byID.BloodGroup)
	})

	s.Run("rejects second record for the same group", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newRecord(domain.BloodGroupBPositive, 5)))
		err := s.store.Create(s.ctx, s.newRecord(domain.BloodGroupBPositive, 3))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("lists ordered by blood group", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newRecord(domain.BloodGroupOPositive, 1)))
		s.Require().NoError(s.store.Create(s.ctx, s.newRecord(domain.BloodGroupABNegative, 2)))

		records, err := s.store.List(s.ctx)
		s.Require().NoError(err)
		s.Require().NotEmpty(records)
		for i := 1; i < len(records); i++ {
			s.Less(records[i-1].BloodGroup, records[i].BloodGroup)
		}
	})
}

func (s *InventoryStoreSuite) TestUpdateAndDelete() {
	s.Run("persists quantity changes", func() {
		record := s.newRecord(domain.BloodGroupANegative, 5)
		s.Require().NoError(s.store.Create(s.ctx, record))

		record.Quantity = 12
		s.Require().NoError(s.store.Update(s.ctx, record))

		found, err := s.store.FindByGroup(s.ctx, domain.BloodGroupANegative)
		s.Require().NoError(err)
		s.Equal(12, found.Quantity)
	})

	s.Run("deletes by id", func() {
		record := s.newRecord(domain.BloodGroupBNegative, 5)
		s.Require().NoError(s.store.Create(s.ctx, record))
		s.Require().NoError(s.store.Delete(s.ctx, record.ID))

		_, err := s.store.FindByGroup(s.ctx, domain.BloodGroupBNegative)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("delete of unknown id fails", func() {
		s.ErrorIs(s.store.Delete(s.ctx, uuid.NewString()), sentinel.ErrNotFound)
	})
}

func (s *InventoryStoreSuite) TestDecrement() {
	s.Run("subtracts units", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newRecord(domain.BloodGroupONegative, 10)))

		record, err := s.store.Decrement(s.ctx, domain.BloodGroupONegative, 4)
		s.Require().NoError(err)
		s.Equal(6, record.Quantity)
	})

	s.Run("fails with available count when stock is short", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newRecord(domain.BloodGroupBNegative, 2)))

		_, err := s.store.Decrement(s.ctx, domain.BloodGroupBNegative, 5)
		s.Require().Error(err)
		s.ErrorIs(err, sentinel.ErrInsufficientStock)

		var insufficient *InsufficientError
		s.Require().True(errors.As(err, &insufficient))
		s.Equal(2, insufficient.Available)

		found, err := s.store.FindByGroup(s.ctx, domain.BloodGroupBNegative)
		s.Require().NoError(err)
		s.Equal(2, found.Quantity)
	})

	s.Run("fails for a group never stocked", func() {
		_, err := s.store.Decrement(s.ctx, domain.BloodGroupABPositive, 1)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("exact drain leaves zero, further decrements fail", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newRecord(domain.BloodGroupAPositive, 3)))

		record, err := s.store.Decrement(s.ctx, domain.BloodGroupAPositive, 3)
		s.Require().NoError(err)
		s.Equal(0, record.Quantity)

		_, err = s.store.Decrement(s.ctx, domain.BloodGroupAPositive, 1)
		s.ErrorIs(err, sentinel.ErrInsufficientStock)
	})

	s.Run("concurrent decrements never oversell", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newRecord(domain.BloodGroupABNegative, 10)))

		const workers = 20
		var wg sync.WaitGroup
		results := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.store.Decrement(s.ctx, domain.BloodGroupABNegative, 1)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var succeeded int
		for err := range results {
			if err == nil {
				succeeded++
			} else {
				s.ErrorIs(err, sentinel.ErrInsufficientStock)
			}
		}
		s.Equal(10, succeeded)

		found, err := s.store.FindByGroup(s.ctx, domain.BloodGroupABNegative)
		s.Require().NoError(err)
		s.Equal(0, found.Quantity)
	})
}
