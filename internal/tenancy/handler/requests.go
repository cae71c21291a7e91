package handler

import (
	"stratus/internal/tenancy/models"
	"stratus/internal/tenancy/service"
	id "stratus/pkg/domain"
)

// createTenantRequest is the admin-facing provisioning request body.
type createTenantRequest struct {
	TenancyName      string  `json:"tenancy_name"`
	DisplayName      string  `json:"display_name"`
	AdminEmail       string  `json:"admin_email"`
	ConnectionString string  `json:"connection_string,omitempty"`
	EditionID        *string `json:"edition_id,omitempty"`
}

func (r *createTenantRequest) toInput() (service.CreateTenantInput, error) {
	input := service.CreateTenantInput{
		TenancyName:      r.TenancyName,
		DisplayName:      r.DisplayName,
		AdminEmail:       r.AdminEmail,
		ConnectionString: r.ConnectionString,
	}
	if r.EditionID != nil && *r.EditionID != "" {
		editionID, err := id.ParseEditionID(*r.EditionID)
		if err != nil {
			return service.CreateTenantInput{}, err
		}
		input.EditionID = &editionID
	}
	return input, nil
}

type assignEditionRequest struct {
	EditionID string `json:"edition_id"`
}

type setFeaturesRequest struct {
	Features []models.FeatureValue `json:"features"`
}

type createEditionRequest struct {
	Name        string                `json:"name"`
	DisplayName string                `json:"display_name,omitempty"`
	Features    []models.FeatureValue `json:"features,omitempty"`
}

// tenantResponse is the wire shape for a single tenant.
type tenantResponse struct {
	TenantID    string  `json:"tenant_id"`
	TenancyName string  `json:"tenancy_name"`
	DisplayName string  `json:"display_name"`
	AdminEmail  string  `json:"admin_email"`
	EditionID   *string `json:"edition_id,omitempty"`
	State       string  `json:"state"`
}

func toTenantResponse(tenant *models.Tenant) tenantResponse {
	resp := tenantResponse{
		TenantID:    tenant.ID.String(),
		TenancyName: tenant.TenancyName,
		DisplayName: tenant.DisplayName,
		AdminEmail:  tenant.AdminEmail,
		State:       string(tenant.State),
	}
	if tenant.HasEdition() {
		editionID := tenant.EditionID.String()
		resp.EditionID = &editionID
	}
	return resp
}

// tenantListItem augments the tenant row with its edition name for the
// admin listing.
type tenantListItem struct {
	tenantResponse
	EditionName string `json:"edition_name,omitempty"`
}
