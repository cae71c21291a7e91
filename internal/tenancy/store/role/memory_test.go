package role

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"stratus/internal/tenancy/models"
	"stratus/internal/tenancy/scope"
	id "stratus/pkg/domain"
	"stratus/pkg/platform/sentinel"
)

type RoleStoreSuite struct {
	suite.Suite
	store    *InMemory
	tenantID id.TenantID
	ctx      context.Context
	handle   *scope.Handle
}

func TestRoleStoreSuite(t *testing.T) {
	suite.Run(t, new(RoleStoreSuite))
}

func (s *RoleStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.tenantID = id.NewTenantID()
	s.ctx, s.handle = scope.Enter(context.Background(), s.tenantID)
}

func (s *RoleStoreSuite) newRole(name string) *models.Role {
	return &models.Role{
		ID:        id.NewRoleID(),
		Name:      name,
		IsStatic:  true,
		CreatedAt: time.Now(),
	}
}

func (s *RoleStoreSuite) TestFailsClosedWithoutScope() {
	unscoped := context.Background()

	s.ErrorIs(s.store.Create(unscoped, s.newRole("Admin")), sentinel.ErrNoScope)

	_, err := s.store.FindByName(unscoped, "Admin")
	s.ErrorIs(err, sentinel.ErrNoScope)

	s.ErrorIs(s.store.GrantPermission(unscoped, id.NewRoleID(), "Pages.Tenants"), sentinel.ErrNoScope)

	_, err = s.store.Permissions(unscoped, id.NewRoleID())
	s.ErrorIs(err, sentinel.ErrNoScope)
}

func (s *RoleStoreSuite) TestReleasedScopeIsInactive() {
	role := s.newRole("Admin")
	s.Require().NoError(s.store.Create(s.ctx, role))

	s.handle.Release()
	_, err := s.store.FindByName(s.ctx, "Admin")
	s.ErrorIs(err, sentinel.ErrNoScope)
}

func (s *RoleStoreSuite) TestCreateAndFind() {
	s.Run("stamps the scope tenant onto the role", func() {
		role := s.newRole("Admin")
		s.Require().NoError(s.store.Create(s.ctx, role))

		found, err := s.store.FindByName(s.ctx, "admin")
		s.Require().NoError(err)
		s.Equal(s.tenantID, found.TenantID)
	})

	s.Run("name is unique within the tenant partition", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newRole("User")))
		s.ErrorIs(s.store.Create(s.ctx, s.newRole("user")), sentinel.ErrAlreadyUsed)
	})

	s.Run("same name is allowed in another tenant", func() {
		s.Require().NoError(s.store.Create(s.ctx, s.newRole("Auditor")))

		otherCtx, otherHandle := scope.Enter(context.Background(), id.NewTenantID())
		defer otherHandle.Release()
		s.NoError(s.store.Create(otherCtx, s.newRole("Auditor")))
	})
}

func (s *RoleStoreSuite) TestPermissionGrants() {
	role := s.newRole("Admin")
	s.Require().NoError(s.store.Create(s.ctx, role))

	s.Require().NoError(s.store.GrantPermission(s.ctx, role.ID, "Pages.Tenants"))
	s.Require().NoError(s.store.GrantPermission(s.ctx, role.ID, "Pages.Editions"))
	// Granting again is a no-op.
	s.Require().NoError(s.store.GrantPermission(s.ctx, role.ID, "Pages.Tenants"))

	permissions, err := s.store.Permissions(s.ctx, role.ID)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"Pages.Tenants", "Pages.Editions"}, permissions)
}
