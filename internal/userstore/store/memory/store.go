// Package memory keeps user records in process memory.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"userdir/internal/userstore/models"
	"userdir/pkg/platform/sentinel"
)

// InMemory is safe for concurrent use. Records are listed in creation order.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string
	order   []string
}

func New() *InMemory {
	return &InMemory{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

// Create stores u. A taken email address yields sentinel.ErrConflict.
func (s *InMemory) Create(_ context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[u.ID]; ok {
		return fmt.Errorf("user %s already exists: %w", u.ID, sentinel.ErrConflict)
	}
	key := u.EmailKey()
	if _, taken := s.byEmail[key]; taken {
		return fmt.Errorf("email in use: %w", sentinel.ErrConflict)
	}
	cp := *u
	s.byID[u.ID] = &cp
	s.byEmail[key] = u.ID
	s.order = append(s.order, u.ID)
	return nil
}

// Update replaces the record with u.ID.
func (s *InMemory) Update(_ context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[u.ID]
	if !ok {
		return fmt.Errorf("user %s: %w", u.ID, sentinel.ErrNotFound)
	}
	oldKey, newKey := existing.EmailKey(), u.EmailKey()
	if oldKey != newKey {
		if owner, taken := s.byEmail[newKey]; taken && owner != u.ID {
			return fmt.Errorf("email in use: %w", sentinel.ErrConflict)
		}
		delete(s.byEmail, oldKey)
		s.byEmail[newKey] = u.ID
	}
	cp := *u
	s.byID[u.ID] = &cp
	return nil
}

func (s *InMemory) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, sentinel.ErrNotFound)
	}
	delete(s.byEmail, existing.EmailKey())
	delete(s.byID, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, sentinel.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (s *InMemory) List(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.order))
	for _, id := range s.order {
		cp := *s.byID[id]
		out = append(out, &cp)
	}
	return out, nil
}

// Ping always succeeds.
func (s *InMemory) Ping(context.Context) error {
	return nil
}
