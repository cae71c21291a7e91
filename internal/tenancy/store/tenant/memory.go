package tenant

import (
	"context"
	"sort"
	"strings"
	"sync"

	"stratus/internal/tenancy/models"
	id "stratus/pkg/domain"
	"stratus/pkg/platform/sentinel"
)

// InMemory is the registry store used in tests and single-node wiring.
// Tenancy-name uniqueness is enforced case-insensitively, matching the
// postgres unique index on lower(tenancy_name).
type InMemory struct {
	mu      sync.RWMutex
	tenants map[id.TenantID]*models.Tenant
	byName  map[string]id.TenantID
}

func NewInMemory() *InMemory {
	return &InMemory{
		tenants: make(map[id.TenantID]*models.Tenant),
		byName:  make(map[string]id.TenantID),
	}
}

func (s *InMemory) CreateIfNameAvailable(_ context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(tenant.TenancyName)
	if _, taken := s.byName[key]; taken {
		return sentinel.ErrAlreadyUsed
	}
	copied := *tenant
	s.tenants[tenant.ID] = &copied
	s.byName[key] = tenant.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenant, ok := s.tenants[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *tenant
	return &copied, nil
}

func (s *InMemory) FindByTenancyName(_ context.Context, name string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenantID, ok := s.byName[strings.ToLower(name)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *s.tenants[tenantID]
	return &copied, nil
}

// List returns all tenants ordered by tenancy name ascending. Uniqueness of
// tenancy names makes the ordering total; no tie-break is needed.
func (s *InMemory) List(_ context.Context) ([]*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Tenant, 0, len(s.tenants))
	for _, tenant := range s.tenants {
		copied := *tenant
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].TenancyName) < strings.ToLower(out[j].TenancyName)
	})
	return out, nil
}

func (s *InMemory) Update(_ context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[tenant.ID]; !ok {
		return sentinel.ErrNotFound
	}
	copied := *tenant
	s.tenants[tenant.ID] = &copied
	return nil
}
