// Package store persists blood requests. The Execute method is the atomic
// check-then-set primitive: the memory store holds its mutex, the postgres
// store a row lock, across both the validation and the mutation.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/sou1357/bloodbankapp/internal/request/models"
	"github.com/sou1357/bloodbankapp/pkg/platform/sentinel"
)

// InMemory keeps requests in process memory. Safe for concurrent use.
type InMemory struct {
	mu   sync.RWMutex
	byID map[string]*models.BloodRequest
}

func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[string]*models.BloodRequest)}
}

func (s *InMemory) Create(_ context.Context, request *models.BloodRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[request.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *request
	s.byID[request.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.BloodRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	request, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *request
	return &clone, nil
}

// ListByHospital returns a hospital's requests, newest first.
func (s *InMemory) ListByHospital(_ context.Context, hospitalID string) ([]*models.BloodRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var requests []*models.BloodRequest
	for _, request := range s.byID {
		if request.HospitalID == hospitalID {
			clone := *request
			requests = append(requests, &clone)
		}
	}
	sortNewestFirst(requests)
	return requests, nil
}

// ListAll returns every request, newest first.
func (s *InMemory) ListAll(_ context.Context) ([]*models.BloodRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	requests := make([]*models.BloodRequest, 0, len(s.byID))
	for _, request := range s.byID {
		clone := *request
		requests = append(requests, &clone)
	}
	sortNewestFirst(requests)
	return requests, nil
}

// Execute atomically validates and mutates one request. The lock is held for
// the whole callback pair, so no concurrent writer can slip between the
// check and the write.
func (s *InMemory) Execute(_ context.Context, id string, validate func(*models.BloodRequest) error, mutate func(*models.BloodRequest)) (*models.BloodRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(request); err != nil {
		return nil, err
	}
	mutate(request)
	clone := *request
	return &clone, nil
}

func sortNewestFirst(requests []*models.BloodRequest) {
	sort.Slice(requests, func(i, j int) bool {
		if requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].ID > requests[j].ID
		}
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
}
