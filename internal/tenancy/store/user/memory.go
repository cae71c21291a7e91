package user

import (
	"context"
	"strings"
	"sync"

	"stratus/internal/tenancy/models"
	"stratus/internal/tenancy/scope"
	id "stratus/pkg/domain"
	"stratus/pkg/platform/sentinel"
)

// InMemory is the tenant-scoped user store, including role membership.
// Like the role store it fails closed outside a scoped execution context.
type InMemory struct {
	mu      sync.RWMutex
	users   map[id.TenantID]map[id.UserID]*models.User
	members map[id.UserID]map[id.RoleID]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{
		users:   make(map[id.TenantID]map[id.UserID]*models.User),
		members: make(map[id.UserID]map[id.RoleID]struct{}),
	}
}

func (s *InMemory) Create(ctx context.Context, user *models.User) error {
	tenantID, err := scope.Require(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	partition := s.users[tenantID]
	if partition == nil {
		partition = make(map[id.UserID]*models.User)
		s.users[tenantID] = partition
	}
	for _, existing := range partition {
		if strings.EqualFold(existing.Email, user.Email) {
			return sentinel.ErrAlreadyUsed
		}
	}
	copied := *user
	copied.TenantID = tenantID
	partition[user.ID] = &copied
	return nil
}

func (s *InMemory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	tenantID, err := scope.Require(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users[tenantID] {
		if strings.EqualFold(user.Email, email) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// AddToRole is idempotent so provisioning retries cannot double-assign.
func (s *InMemory) AddToRole(ctx context.Context, userID id.UserID, roleID id.RoleID) error {
	if _, err := scope.Require(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.members[userID] == nil {
		s.members[userID] = make(map[id.RoleID]struct{})
	}
	s.members[userID][roleID] = struct{}{}
	return nil
}

func (s *InMemory) IsInRole(ctx context.Context, userID id.UserID, roleID id.RoleID) (bool, error) {
	if _, err := scope.Require(ctx); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.members[userID][roleID]
	return ok, nil
}
