package edition

import (
	"context"
	"strings"
	"sync"

	"stratus/internal/tenancy/models"
	id "stratus/pkg/domain"
	"stratus/pkg/platform/sentinel"
)

// InMemory holds the edition catalog. Catalog order (insertion order) is
// preserved for List; stability beyond that is not guaranteed.
type InMemory struct {
	mu       sync.RWMutex
	editions []*models.Edition
	byID     map[id.EditionID]*models.Edition
}

func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[id.EditionID]*models.Edition)}
}

func (s *InMemory) Create(_ context.Context, edition *models.Edition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.editions {
		if strings.EqualFold(existing.Name, edition.Name) {
			return sentinel.ErrAlreadyUsed
		}
	}
	copied := *edition
	s.editions = append(s.editions, &copied)
	s.byID[edition.ID] = &copied
	return nil
}

func (s *InMemory) FindByID(_ context.Context, editionID id.EditionID) (*models.Edition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edition, ok := s.byID[editionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *edition
	return &copied, nil
}

func (s *InMemory) FindByName(_ context.Context, name string) (*models.Edition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, edition := range s.editions {
		if strings.EqualFold(edition.Name, name) {
			copied := *edition
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) List(_ context.Context) ([]*models.Edition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Edition, 0, len(s.editions))
	for _, edition := range s.editions {
		copied := *edition
		out = append(out, &copied)
	}
	return out, nil
}
