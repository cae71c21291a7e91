// Package identity implements the identity collaborator: construction and
// persistence of the tenant-scoped administrative user, and role
// membership by role name.
package identity

import (
	"context"
	"errors"
	"time"

	"stratus/internal/tenancy/models"
	id "stratus/pkg/domain"
	dErrors "stratus/pkg/domain-errors"
	"stratus/pkg/platform/sentinel"
	"stratus/pkg/secrets"
)

// UserStore is the tenant-scoped user persistence the service needs.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	AddToRole(ctx context.Context, userID id.UserID, roleID id.RoleID) error
}

// RoleFinder resolves roles by name within the current tenant scope.
type RoleFinder interface {
	FindByName(ctx context.Context, name string) (*models.Role, error)
}

// Service creates tenant administrative identities.
type Service struct {
	users UserStore
	roles RoleFinder
	now   func() time.Time
}

func New(users UserStore, roles RoleFinder) *Service {
	return &Service{users: users, roles: roles, now: time.Now}
}

// CreateAdminUser constructs and persists the administrative user for the
// tenant in scope, hashing the platform default password. Idempotent: if a
// user with the email already exists in the tenant partition it is reused,
// which keeps provisioning retries safe.
func (s *Service) CreateAdminUser(ctx context.Context, tenantID id.TenantID, email, password string) (*models.User, error) {
	if existing, err := s.users.FindByEmail(ctx, email); err == nil {
		return existing, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	hash, err := secrets.Hash(password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDependency, "failed to hash admin password")
	}

	user := &models.User{
		ID:           id.NewUserID(),
		TenantID:     tenantID,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			// Lost a race with a concurrent retry; the winner's row is the
			// one we want.
			return s.users.FindByEmail(ctx, email)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeDependency, "failed to create admin user")
	}
	return user, nil
}

// AddToRole assigns the user to the named role in the current tenant scope.
func (s *Service) AddToRole(ctx context.Context, userID id.UserID, roleName string) error {
	role, err := s.roles.FindByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "role not found: "+roleName)
		}
		return err
	}
	return s.users.AddToRole(ctx, userID, role.ID)
}
