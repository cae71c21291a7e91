package role

import (
	"context"
	"strings"
	"sync"

	"stratus/internal/tenancy/models"
	"stratus/internal/tenancy/scope"
	id "stratus/pkg/domain"
	"stratus/pkg/platform/sentinel"
)

// InMemory is the tenant-scoped role store. Every operation resolves the
// target partition from the scoped execution context and fails closed
// (sentinel.ErrNoScope) outside one, so a role can never be written into
// the wrong tenant.
type InMemory struct {
	mu     sync.RWMutex
	roles  map[id.TenantID]map[id.RoleID]*models.Role
	grants map[id.RoleID]map[string]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{
		roles:  make(map[id.TenantID]map[id.RoleID]*models.Role),
		grants: make(map[id.RoleID]map[string]struct{}),
	}
}

func (s *InMemory) Create(ctx context.Context, role *models.Role) error {
	tenantID, err := scope.Require(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	partition := s.roles[tenantID]
	if partition == nil {
		partition = make(map[id.RoleID]*models.Role)
		s.roles[tenantID] = partition
	}
	for _, existing := range partition {
		if strings.EqualFold(existing.Name, role.Name) {
			return sentinel.ErrAlreadyUsed
		}
	}
	copied := *role
	copied.TenantID = tenantID
	partition[role.ID] = &copied
	return nil
}

func (s *InMemory) FindByName(ctx context.Context, name string) (*models.Role, error) {
	tenantID, err := scope.Require(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, role := range s.roles[tenantID] {
		if strings.EqualFold(role.Name, name) {
			copied := *role
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// GrantPermission is idempotent: granting an already-held permission is a
// no-op, which keeps provisioning retries safe.
func (s *InMemory) GrantPermission(ctx context.Context, roleID id.RoleID, permission string) error {
	if _, err := scope.Require(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.grants[roleID] == nil {
		s.grants[roleID] = make(map[string]struct{})
	}
	s.grants[roleID][permission] = struct{}{}
	return nil
}

func (s *InMemory) Permissions(ctx context.Context, roleID id.RoleID) ([]string, error) {
	if _, err := scope.Require(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.grants[roleID]))
	for permission := range s.grants[roleID] {
		out = append(out, permission)
	}
	return out, nil
}
