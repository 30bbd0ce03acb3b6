package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/bnema/mycelium-pulse/internal/ports"
)

type ReflectionStore struct {
	mu      sync.RWMutex
	circles map[domain.CircleID]domain.ReflectionCircle
	entries map[domain.CircleID][]domain.ReflectionEntry
}

var _ ports.ReflectionStore = (*ReflectionStore)(nil)

func NewReflectionStore() *ReflectionStore {
	return &ReflectionStore{
		circles: map[domain.CircleID]domain.ReflectionCircle{},
		entries: map[domain.CircleID][]domain.ReflectionEntry{},
	}
}

func (s *ReflectionStore) CreateCircle(ctx context.Context, circle domain.ReflectionCircle) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.circles[circle.ID]; ok {
		return fmt.Errorf("reflection circle %s already exists", circle.ID)
	}
	circle.Eligible = append([]domain.ParticipantID(nil), circle.Eligible...)
	s.circles[circle.ID] = circle
	return nil
}

func (s *ReflectionStore) Circle(ctx context.Context, id domain.CircleID) (domain.ReflectionCircle, error) {
	if err := ctx.Err(); err != nil {
		return domain.ReflectionCircle{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	circle, ok := s.circles[id]
	if !ok {
		return domain.ReflectionCircle{}, domain.ErrCircleNotFound
	}
	circle.Eligible = append([]domain.ParticipantID(nil), circle.Eligible...)
	return circle, nil
}

func (s *ReflectionStore) CloseCircle(ctx context.Context, id domain.CircleID, closedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	circle, ok := s.circles[id]
	if !ok {
		return domain.ErrCircleNotFound
	}
	if circle.Closed() {
		return nil
	}
	circle.ClosedAt = closedAt
	s.circles[id] = circle
	return nil
}

func (s *ReflectionStore) Append(ctx context.Context, id domain.CircleID, entry domain.ReflectionEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	circle, ok := s.circles[id]
	if !ok {
		return domain.ErrCircleNotFound
	}
	if circle.Closed() {
		return fmt.Errorf("reflection circle %s is closed", id)
	}
	entry.Insights = append([]string(nil), entry.Insights...)
	entry.ActionIdeas = append([]string(nil), entry.ActionIdeas...)
	s.entries[id] = append(s.entries[id], entry)
	return nil
}

func (s *ReflectionStore) Get(ctx context.Context, id domain.CircleID) ([]domain.ReflectionEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.circles[id]; !ok {
		return nil, domain.ErrCircleNotFound
	}
	stored := s.entries[id]
	entries := make([]domain.ReflectionEntry, len(stored))
	for i, e := range stored {
		e.Insights = append([]string(nil), e.Insights...)
		e.ActionIdeas = append([]string(nil), e.ActionIdeas...)
		entries[i] = e
	}
	return entries, nil
}
