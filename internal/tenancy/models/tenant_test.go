package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "stratus/pkg/domain"
	dErrors "stratus/pkg/domain-errors"
)

type TenantModelSuite struct {
	suite.Suite
	now time.Time
}

func TestTenantModelSuite(t *testing.T) {
	suite.Run(t, new(TenantModelSuite))
}

func (s *TenantModelSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
}

func (s *TenantModelSuite) TestNewTenant() {
	s.Run("valid input yields a registered tenant", func() {
		tenant, err := NewTenant(id.NewTenantID(), "acme", "Acme Corp", "admin@acme.test", s.now)
		s.Require().NoError(err)
		s.Equal("acme", tenant.TenancyName)
		s.Equal(StateRegistered, tenant.State)
		s.False(tenant.HasEdition())
		s.Empty(tenant.ConnectionString)
	})

	s.Run("input is trimmed", func() {
		tenant, err := NewTenant(id.NewTenantID(), "  acme  ", " Acme ", " admin@acme.test ", s.now)
		s.Require().NoError(err)
		s.Equal("acme", tenant.TenancyName)
		s.Equal("Acme", tenant.DisplayName)
		s.Equal("admin@acme.test", tenant.AdminEmail)
	})

	s.Run("collects every violation, not just the first", func() {
		_, err := NewTenant(id.NewTenantID(), "", "", "not-an-email", s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		violations := dErrors.Violations(err)
		s.Len(violations, 3)
		s.Contains(violations, "tenancy name is required")
		s.Contains(violations, "display name is required")
		s.Contains(violations, "admin email is not a valid address")
	})

	s.Run("rejects tenancy name starting with a digit", func() {
		_, err := NewTenant(id.NewTenantID(), "1acme", "Acme", "admin@acme.test", s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects tenancy name with invalid characters", func() {
		_, err := NewTenant(id.NewTenantID(), "acme corp", "Acme", "admin@acme.test", s.now)
		s.Require().Error(err)
		s.Len(dErrors.Violations(err), 1)
	})

	s.Run("accepts hyphenated tenancy names", func() {
		tenant, err := NewTenant(id.NewTenantID(), "acme-west-2", "Acme West", "admin@acme.test", s.now)
		s.Require().NoError(err)
		s.Equal("acme-west-2", tenant.TenancyName)
	})

	s.Run("rejects overlong names", func() {
		longName := "a" + strings.Repeat("b", 64)
		longDisplay := strings.Repeat("d", 129)
		_, err := NewTenant(id.NewTenantID(), longName, longDisplay, "admin@acme.test", s.now)
		s.Require().Error(err)
		s.Len(dErrors.Violations(err), 2)
	})
}

func (s *TenantModelSuite) TestStateTransitions() {
	tenant, err := NewTenant(id.NewTenantID(), "acme", "Acme", "admin@acme.test", s.now)
	s.Require().NoError(err)

	s.Run("edition assignment", func() {
		editionID := id.NewEditionID()
		tenant.AssignEdition(editionID, s.now.Add(time.Minute))
		s.True(tenant.HasEdition())
		s.Equal(editionID, *tenant.EditionID)
		s.Equal(s.now.Add(time.Minute), tenant.UpdatedAt)
	})

	s.Run("provisioned is terminal success", func() {
		tenant.MarkProvisioned(s.now.Add(2 * time.Minute))
		s.Equal(StateProvisioned, tenant.State)
	})

	s.Run("failed records the timestamp", func() {
		tenant.MarkFailed(s.now.Add(3 * time.Minute))
		s.Equal(StateFailed, tenant.State)
		s.Equal(s.now.Add(3*time.Minute), tenant.UpdatedAt)
	})
}

func (s *TenantModelSuite) TestNewEdition() {
	s.Run("display name falls back to name", func() {
		edition, err := NewEdition(id.NewEditionID(), "Standard", "", s.now)
		s.Require().NoError(err)
		s.Equal("Standard", edition.DisplayName)
	})

	s.Run("empty name is rejected", func() {
		_, err := NewEdition(id.NewEditionID(), "  ", "Standard", s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *TenantModelSuite) TestFeatureMap() {
	values := []FeatureValue{
		{Name: "MaxUserCount", Value: "50"},
		{Name: "ChatFeature", Value: "true"},
	}
	m := FeatureMap(values)
	s.Len(m, 2)
	s.Equal("50", m["MaxUserCount"])
	s.Empty(FeatureMap(nil))
}
