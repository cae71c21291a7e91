// Package authz implements the authorization collaborator consumed by the
// provisioning workflow: the catalog of known permission identifiers, the
// static role seeding routine, and permission grants.
package authz

import (
	"context"
	"errors"
	"time"

	"stratus/internal/tenancy/models"
	id "stratus/pkg/domain"
	"stratus/pkg/platform/sentinel"
)

// Permission identifiers known to the platform. The admin role of every
// tenant is granted all of them at provisioning time.
const (
	PermissionTenants  = "Pages.Tenants"
	PermissionEditions = "Pages.Editions"
	PermissionUsers    = "Pages.Users"
	PermissionRoles    = "Pages.Roles"
	PermissionFeatures = "Pages.Features"
)

// AllPermissions enumerates every permission identifier the platform knows.
func AllPermissions() []string {
	return []string{
		PermissionTenants,
		PermissionEditions,
		PermissionUsers,
		PermissionRoles,
		PermissionFeatures,
	}
}

// RoleStore is the tenant-scoped role persistence the service needs.
type RoleStore interface {
	Create(ctx context.Context, role *models.Role) error
	FindByName(ctx context.Context, name string) (*models.Role, error)
	GrantPermission(ctx context.Context, roleID id.RoleID, permission string) error
	Permissions(ctx context.Context, roleID id.RoleID) ([]string, error)
}

// Service seeds static roles and manages permission grants. All methods
// operate inside the caller's scoped execution context.
type Service struct {
	roles RoleStore
	now   func() time.Time
}

func New(roles RoleStore) *Service {
	return &Service{roles: roles, now: time.Now}
}

// CreateStaticRoles ensures the fixed set of platform roles exists in the
// current tenant scope. Idempotent: roles already present are left alone,
// so provisioning retries are safe.
func (s *Service) CreateStaticRoles(ctx context.Context) error {
	for _, name := range models.StaticRoleNames() {
		_, err := s.roles.FindByName(ctx, name)
		if err == nil {
			continue
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		role := &models.Role{
			ID:        id.NewRoleID(),
			Name:      name,
			IsStatic:  true,
			CreatedAt: s.now(),
		}
		if err := s.roles.Create(ctx, role); err != nil && !errors.Is(err, sentinel.ErrAlreadyUsed) {
			return err
		}
	}
	return nil
}

// FindRole looks up a role by name in the current tenant scope.
func (s *Service) FindRole(ctx context.Context, name string) (*models.Role, error) {
	return s.roles.FindByName(ctx, name)
}

// GrantAll grants the role every permission the platform knows.
func (s *Service) GrantAll(ctx context.Context, roleID id.RoleID) error {
	for _, permission := range AllPermissions() {
		if err := s.roles.GrantPermission(ctx, roleID, permission); err != nil {
			return err
		}
	}
	return nil
}

// Permissions returns the role's granted permission identifiers.
func (s *Service) Permissions(ctx context.Context, roleID id.RoleID) ([]string, error) {
	return s.roles.Permissions(ctx, roleID)
}
