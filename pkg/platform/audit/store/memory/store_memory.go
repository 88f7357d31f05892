package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	audit "hrcore/pkg/platform/audit"
	"hrcore/pkg/platform/sentinel"
)

// InMemoryStore is an append-only audit store for tests and single-node dev runs.
type InMemoryStore struct {
	mu        sync.RWMutex
	envelopes []*audit.Envelope
	byID      map[string]*audit.Envelope
	clock     func() time.Time
}

// Option configures the store.
type Option func(*InMemoryStore)

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(s *InMemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		byID:  make(map[string]*audit.Envelope),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a copy of envelope with a fresh ID and timestamps.
func (s *InMemoryStore) Create(_ context.Context, envelope *audit.Envelope) (*audit.Envelope, error) {
	stored := *envelope
	stored.ID = uuid.NewString()
	now := s.clock().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.envelopes = append(s.envelopes, &stored)
	s.byID[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*audit.Envelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *found
	return &out, nil
}

// List returns one page, most recent first.
func (s *InMemoryStore) List(_ context.Context, page audit.Page) (*audit.PageResult, error) {
	page = page.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*audit.Envelope, 0, len(s.envelopes))
	for i := len(s.envelopes) - 1; i >= 0; i-- {
		env := s.envelopes[i]
		if page.EntityType != "" && env.EntityType != page.EntityType {
			continue
		}
		matched = append(matched, env)
	}

	result := &audit.PageResult{
		Items:  []*audit.Envelope{},
		Number: page.Number,
		Size:   page.Size,
		Total:  len(matched),
	}
	start := page.Offset()
	if start >= len(matched) {
		return result, nil
	}
	end := min(start+page.Size, len(matched))
	for _, env := range matched[start:end] {
		out := *env
		result.Items = append(result.Items, &out)
	}
	return result, nil
}

// Clear drops all envelopes.
func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envelopes = nil
	s.byID = make(map[string]*audit.Envelope)
}
