package feature

import (
	"context"
	"sort"
	"sync"

	"stratus/internal/tenancy/models"
	id "stratus/pkg/domain"
)

// InMemory holds feature values for both scopes: edition defaults and
// tenant overrides. A tenant has at most one override per feature name;
// absence of an override means the edition default applies.
type InMemory struct {
	mu        sync.RWMutex
	defaults  map[id.EditionID]map[string]string
	overrides map[id.TenantID]map[string]string
}

func NewInMemory() *InMemory {
	return &InMemory{
		defaults:  make(map[id.EditionID]map[string]string),
		overrides: make(map[id.TenantID]map[string]string),
	}
}

func (s *InMemory) SetEditionDefault(_ context.Context, editionID id.EditionID, value models.FeatureValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.defaults[editionID] == nil {
		s.defaults[editionID] = make(map[string]string)
	}
	s.defaults[editionID][value.Name] = value.Value
	return nil
}

func (s *InMemory) EditionDefaults(_ context.Context, editionID id.EditionID) ([]models.FeatureValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.defaults[editionID]), nil
}

func (s *InMemory) UpsertTenantOverride(_ context.Context, tenantID id.TenantID, value models.FeatureValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.overrides[tenantID] == nil {
		s.overrides[tenantID] = make(map[string]string)
	}
	s.overrides[tenantID][value.Name] = value.Value
	return nil
}

func (s *InMemory) TenantOverrides(_ context.Context, tenantID id.TenantID) ([]models.FeatureValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.overrides[tenantID]), nil
}

// ReplaceTenantOverrides swaps the tenant's entire override set for exactly
// the given values. Overrides for names outside the new set are discarded.
func (s *InMemory) ReplaceTenantOverrides(_ context.Context, tenantID id.TenantID, values []models.FeatureValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := make(map[string]string, len(values))
	for _, v := range values {
		replaced[v.Name] = v.Value
	}
	s.overrides[tenantID] = replaced
	return nil
}

func sortedValues(byName map[string]string) []models.FeatureValue {
	out := make([]models.FeatureValue, 0, len(byName))
	for name, value := range byName {
		out = append(out, models.FeatureValue{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
