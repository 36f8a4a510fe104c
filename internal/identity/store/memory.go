package store

import (
	"context"
	"strings"
	"sync"

	"github.com/sou1357/bloodbankapp/internal/identity/models"
	"github.com/sou1357/bloodbankapp/pkg/platform/sentinel"
)

// InMemory keeps users in process memory. Safe for concurrent use.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]*models.User
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]*models.User),
	}
}

// CreateIfEmailAvailable inserts the user unless the email is already taken
// (case-insensitive). The check and insert are one critical section so
// concurrent registrations cannot both win.
func (s *InMemory) CreateIfEmailAvailable(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, exists := s.byEmail[key]; exists {
		return sentinel.ErrConflict
	}

	clone := *user
	s.byID[user.ID] = &clone
	s.byEmail[key] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *user
	return &clone, nil
}
