package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/sou1357/bloodbankapp/internal/inventory/models"
	"github.com/sou1357/bloodbankapp/internal/inventory/store"
	dErrors "github.com/sou1357/bloodbankapp/pkg/domain-errors"
	"github.com/sou1357/bloodbankapp/pkg/domain"
)

// fakeCache records interactions so tests can assert invalidation behavior.
type fakeCache struct {
	records     []*models.Record
	hit         bool
	sets        int
	invalidated int
}

func (c *fakeCache) Get(context.Context) ([]*models.Record, bool) {
	return c.records, c.hit
}

func (c *fakeCache) Set(_ context.Context, records []*models.Record) {
	c.records = records
	c.sets++
}

func (c *fakeCache) Invalidate(context.Context) {
	c.hit = false
	c.records = nil
	c.invalidated++
}

type InventoryServiceSuite struct {
	suite.Suite
	service   *Service
	cache     *fakeCache
	ctx       context.Context
	bloodBank domain.Identity
	hospital  domain.Identity
}

func (s *InventoryServiceSuite) SetupTest() {
	s.cache = &fakeCache{}
	s.service = New(store.NewInMemory(), WithSnapshotCache(s.cache))
	s.ctx = context.Background()
	s.bloodBank = domain.Identity{ID: "bank-1", Role: domain.RoleBloodService, OrganizationKind: domain.OrganizationBloodBank}
	s.hospital = domain.Identity{ID: "hosp-1", Role: domain.RoleBloodService, OrganizationKind: domain.OrganizationHospital}
}

func TestInventoryServiceSuite(t *testing.T) {
	suite.Run(t, new(InventoryServiceSuite))
}

func (s *InventoryServiceSuite) create(group domain.BloodGroup, quantity int) *models.Record {
	record, err := s.service.Create(s.ctx, s.bloodBank, group, quantity, nil, "")
	s.Require().NoError(err)
	return record
}

func (s *InventoryServiceSuite) TestCreate() {
	s.Run("creates a record and invalidates the snapshot", func() {
		before := s.cache.invalidated
		record := s.create(domain.BloodGroupAPositive, 5)
		s.Equal(models.StatusAvailable, record.Status)
		s.Greater(s.cache.invalidated, before)
	})

	s.Run("one record per blood group", func() {
		s.create(domain.BloodGroupBPositive, 5)
		_, err := s.service.Create(s.ctx, s.bloodBank, domain.BloodGroupBPositive, 3, nil, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("hospitals cannot create inventory", func() {
		_, err := s.service.Create(s.ctx, s.hospital, domain.BloodGroupOPositive, 5, nil, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("negative quantity is rejected", func() {
		_, err := s.service.Create(s.ctx, s.bloodBank, domain.BloodGroupONegative, -1, nil, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *InventoryServiceSuite) TestList() {
	s.create(domain.BloodGroupAPositive, 5)

	s.Run("misses populate the snapshot", func() {
		records, err := s.service.List(s.ctx)
		s.Require().NoError(err)
		s.Len(records, 1)
		s.Equal(1, s.cache.sets)
	})

	s.Run("hits bypass the store", func() {
		s.cache.hit = true
		s.cache.records = []*models.Record{}

		records, err := s.service.List(s.ctx)
		s.Require().NoError(err)
		s.Empty(records)
	})
}

func (s *InventoryServiceSuite) TestAdjust() {
	record := s.create(domain.BloodGroupONegative, 5)

	s.Run("partial update keeps unset fields", func() {
		quantity := 20
		updated, err := s.service.Adjust(s.ctx, s.bloodBank, record.ID, AdjustInput{Quantity: &quantity})
		s.Require().NoError(err)
		s.Equal(20, updated.Quantity)
		s.Equal(models.StatusAvailable, updated.Status)
	})

	s.Run("status update", func() {
		status := models.StatusReserved
		updated, err := s.service.Adjust(s.ctx, s.bloodBank, record.ID, AdjustInput{Status: &status})
		s.Require().NoError(err)
		s.Equal(models.StatusReserved, updated.Status)
	})

	s.Run("negative quantity is rejected", func() {
		quantity := -4
		_, err := s.service.Adjust(s.ctx, s.bloodBank, record.ID, AdjustInput{Quantity: &quantity})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("expiry date update", func() {
		expiry := time.Now().Add(30 * 24 * time.Hour)
		updated, err := s.service.Adjust(s.ctx, s.bloodBank, record.ID, AdjustInput{ExpiryDate: &expiry})
		s.Require().NoError(err)
		s.Require().NotNil(updated.ExpiryDate)
		s.WithinDuration(expiry, *updated.ExpiryDate, time.Second)
	})

	s.Run("hospitals cannot adjust", func() {
		quantity := 1
		_, err := s.service.Adjust(s.ctx, s.hospital, record.ID, AdjustInput{Quantity: &quantity})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *InventoryServiceSuite) TestDelete() {
	record := s.create(domain.BloodGroupABNegative, 5)

	s.Run("hospitals cannot delete", func() {
		err := s.service.Delete(s.ctx, s.hospital, record.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("deletes and invalidates", func() {
		before := s.cache.invalidated
		s.Require().NoError(s.service.Delete(s.ctx, s.bloodBank, record.ID))
		s.Greater(s.cache.invalidated, before)

		_, err := s.service.Get(s.ctx, record.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
