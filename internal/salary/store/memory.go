// Package store keeps salary grades. Only an in-memory repository exists;
// durable persistence of HR entities lives outside this service.
package store

import (
	"context"
	"sync"

	"hrcore/internal/salary/models"
	"hrcore/pkg/platform/sentinel"
)

// InMemoryStore is a mutex-guarded map of salary grades. It hands out copies,
// so callers can keep a snapshot across a mutation.
type InMemoryStore struct {
	mu       sync.RWMutex
	salaries map[string]models.Salary
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{salaries: make(map[string]models.Salary)}
}

// Save inserts or replaces the grade with s.ID.
func (s *InMemoryStore) Save(_ context.Context, salary *models.Salary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.salaries[salary.ID] = *salary
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Salary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	salary, ok := s.salaries[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &salary, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.salaries[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.salaries, id)
	return nil
}
