package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"stratus/internal/tenancy/models"
	id "stratus/pkg/domain"
	"stratus/pkg/platform/sentinel"
)

type TenantStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestTenantStoreSuite(t *testing.T) {
	suite.Run(t, new(TenantStoreSuite))
}

func (s *TenantStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *TenantStoreSuite) newTenant(name string) *models.Tenant {
	return &models.Tenant{
		ID:          id.NewTenantID(),
		TenancyName: name,
		DisplayName: name + " Inc",
		AdminEmail:  "admin@" + name + ".test",
		State:       models.StateRegistered,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

func (s *TenantStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds tenant by id", func() {
		tenant := s.newTenant("acme")
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, tenant))

		found, err := s.store.FindByID(s.ctx, tenant.ID)
		s.Require().NoError(err)
		s.Equal(tenant.TenancyName, found.TenancyName)
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.store.FindByID(s.ctx, id.NewTenantID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("finds by tenancy name case-insensitively", func() {
		tenant := s.newTenant("globex")
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, tenant))

		found, err := s.store.FindByTenancyName(s.ctx, "GLOBEX")
		s.Require().NoError(err)
		s.Equal(tenant.ID, found.ID)
	})
}

func (s *TenantStoreSuite) TestNameUniqueness() {
	s.Run("rejects duplicate tenancy name", func() {
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, s.newTenant("dup")))
		s.ErrorIs(s.store.CreateIfNameAvailable(s.ctx, s.newTenant("dup")), sentinel.ErrAlreadyUsed)
	})

	s.Run("uniqueness is case-insensitive", func() {
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, s.newTenant("MyTenant")))
		s.ErrorIs(s.store.CreateIfNameAvailable(s.ctx, s.newTenant("MYTENANT")), sentinel.ErrAlreadyUsed)
	})
}

func (s *TenantStoreSuite) TestListOrdering() {
	for _, name := range []string{"zeta", "Alpha", "midway"} {
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, s.newTenant(name)))
	}

	tenants, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(tenants, 3)
	s.Equal("Alpha", tenants[0].TenancyName)
	s.Equal("midway", tenants[1].TenancyName)
	s.Equal("zeta", tenants[2].TenancyName)
}

func (s *TenantStoreSuite) TestUpdates() {
	s.Run("persists state transitions", func() {
		tenant := s.newTenant("acme")
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, tenant))

		tenant.MarkProvisioned(time.Now())
		s.Require().NoError(s.store.Update(s.ctx, tenant))

		found, err := s.store.FindByID(s.ctx, tenant.ID)
		s.Require().NoError(err)
		s.Equal(models.StateProvisioned, found.State)
	})

	s.Run("returns ErrNotFound for unknown tenant", func() {
		s.ErrorIs(s.store.Update(s.ctx, s.newTenant("ghost")), sentinel.ErrNotFound)
	})

	s.Run("callers cannot mutate stored state through returned pointers", func() {
		tenant := s.newTenant("immut")
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, tenant))

		found, err := s.store.FindByID(s.ctx, tenant.ID)
		s.Require().NoError(err)
		found.DisplayName = "changed"

		again, err := s.store.FindByID(s.ctx, tenant.ID)
		s.Require().NoError(err)
		s.Equal("immut Inc", again.DisplayName)
	})
}
