package store

import (
	"context"
	"sort"
	"sync"

	"github.com/sou1357/bloodbankapp/internal/inventory/models"
	"github.com/sou1357/bloodbankapp/pkg/domain"
	"github.com/sou1357/bloodbankapp/pkg/platform/sentinel"
)

// InMemory keeps the ledger in process memory, one record per blood group.
// A single mutex guards every mutation, so the read-check-write inside
// Decrement is atomic with respect to concurrent callers.
type InMemory struct {
	mu      sync.RWMutex
	byGroup map[domain.BloodGroup]*models.Record
}

func NewInMemory() *InMemory {
	return &InMemory{byGroup: make(map[domain.BloodGroup]*models.Record)}
}

func (s *InMemory) Create(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byGroup[record.BloodGroup]; exists {
		return sentinel.ErrConflict
	}
	clone := *record
	s.byGroup[record.BloodGroup] = &clone
	return nil
}

func (s *InMemory) FindByGroup(_ context.Context, group domain.BloodGroup) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.byGroup[group]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, record := range s.byGroup {
		if record.ID == id {
			clone := *record
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// List returns all records ordered by blood group.
func (s *InMemory) List(_ context.Context) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*models.Record, 0, len(s.byGroup))
	for _, record := range s.byGroup {
		clone := *record
		records = append(records, &clone)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].BloodGroup < records[j].BloodGroup
	})
	return records, nil
}

// Update overwrites the stored record. The blood group key is immutable.
func (s *InMemory) Update(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byGroup[record.BloodGroup]; !exists {
		return sentinel.ErrNotFound
	}
	clone := *record
	s.byGroup[record.BloodGroup] = &clone
	return nil
}

// Delete removes a record by id.
func (s *InMemory) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for group, record := range s.byGroup {
		if record.ID == id {
			delete(s.byGroup, group)
			return nil
		}
	}
	return sentinel.ErrNotFound
}

// Decrement subtracts amount from the group's quantity, failing with an
// InsufficientError when the stored quantity cannot cover it. The stored
// quantity is never observed below zero.
func (s *InMemory) Decrement(_ context.Context, group domain.BloodGroup, amount int) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byGroup[group]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if record.Quantity < amount {
		return nil, &InsufficientError{Available: record.Quantity}
	}
	record.Quantity -= amount
	clone := *record
	return &clone, nil
}
