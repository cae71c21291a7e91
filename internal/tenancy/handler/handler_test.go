package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"stratus/internal/authz"
	"stratus/internal/crypto"
	"stratus/internal/i18n"
	"stratus/internal/identity"
	"stratus/internal/platform/middleware"
	"stratus/internal/provision"
	"stratus/internal/tenancy/models"
	"stratus/internal/tenancy/service"
	editionstore "stratus/internal/tenancy/store/edition"
	featurestore "stratus/internal/tenancy/store/feature"
	rolestore "stratus/internal/tenancy/store/role"
	tenantstore "stratus/internal/tenancy/store/tenant"
	userstore "stratus/internal/tenancy/store/user"
	"stratus/pkg/platform/tx"
)

const adminToken = "admin-test-token"

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	if token != adminToken {
		return nil, errors.New("invalid token")
	}
	return &middleware.JWTClaims{Subject: "host-admin"}, nil
}

func newAdminRouter(t *testing.T) http.Handler {
	t.Helper()

	tenants := tenantstore.NewInMemory()
	editions := editionstore.NewInMemory()
	features := featurestore.NewInMemory()
	roles := rolestore.NewInMemory()
	users := userstore.NewInMemory()
	runner := tx.NopRunner{}
	localizer := i18n.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	registry := service.NewRegistry(tenants, editions, runner, localizer)
	catalog := service.NewCatalog(editions, features, tenants, runner, "Standard")
	featureSvc := service.NewFeatures(tenants, editions, features, runner, localizer)
	provisioner := service.NewProvisioner(registry, catalog, tenants, runner,
		provision.NewInMemory(), crypto.Passthrough{},
		authz.New(roles), identity.New(users, roles), "123qwe")

	h := New(provisioner, registry, catalog, featureSvc, logger)
	return NewRouter(h, stubValidator{}, logger)
}

func do(t *testing.T, router http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func createEdition(t *testing.T, router http.Handler, name string, features map[string]string) string {
	t.Helper()
	payload := map[string]any{"name": name}
	var values []map[string]string
	for fname, value := range features {
		values = append(values, map[string]string{"name": fname, "value": value})
	}
	payload["features"] = values
	rec := do(t, router, http.MethodPost, "/admin/editions", payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating edition, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID string `json:"id"`
	}
	decode(t, rec, &resp)
	return resp.ID
}

func createTenant(t *testing.T, router http.Handler, name string) string {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/admin/tenants", map[string]string{
		"tenancy_name": name,
		"display_name": name + " Inc",
		"admin_email":  "admin@" + name + ".test",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating tenant, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		TenantID string `json:"tenant_id"`
	}
	decode(t, rec, &resp)
	return resp.TenantID
}

func TestAuthRequired(t *testing.T) {
	router := newAdminRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/tenants", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without bearer token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/tenants", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with invalid token, got %d", rec.Code)
	}
}

func TestHealthzIsPublic(t *testing.T) {
	router := newAdminRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health probe, got %d", rec.Code)
	}
}

func TestCreateTenantLifecycle(t *testing.T) {
	router := newAdminRouter(t)
	createEdition(t, router, "Standard", map[string]string{"MaxUserCount": "5"})

	tenantID := createTenant(t, router, "acme")

	rec := do(t, router, http.MethodGet, "/admin/tenants/"+tenantID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 fetching tenant, got %d", rec.Code)
	}
	var tenant struct {
		State     string  `json:"state"`
		EditionID *string `json:"edition_id"`
	}
	decode(t, rec, &tenant)
	if tenant.State != "provisioned" {
		t.Fatalf("expected provisioned state, got %q", tenant.State)
	}
	if tenant.EditionID == nil {
		t.Fatalf("expected the default edition to be assigned")
	}
}

func TestCreateTenantValidation(t *testing.T) {
	router := newAdminRouter(t)

	rec := do(t, router, http.MethodPost, "/admin/tenants", map[string]string{
		"tenancy_name": "9 bad",
		"display_name": "",
		"admin_email":  "nope",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid input, got %d", rec.Code)
	}
	var resp struct {
		Violations []string `json:"violations"`
	}
	decode(t, rec, &resp)
	if len(resp.Violations) != 3 {
		t.Fatalf("expected all 3 violations listed, got %v", resp.Violations)
	}
}

func TestDuplicateTenancyName(t *testing.T) {
	router := newAdminRouter(t)
	createEdition(t, router, "Standard", nil)
	createTenant(t, router, "acme")

	rec := do(t, router, http.MethodPost, "/admin/tenants", map[string]string{
		"tenancy_name": "acme",
		"display_name": "Other Acme",
		"admin_email":  "other@acme.test",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate tenancy name, got %d", rec.Code)
	}
}

func TestTenantListingIncludesEditionName(t *testing.T) {
	router := newAdminRouter(t)
	createEdition(t, router, "Standard", nil)
	createTenant(t, router, "zeta")
	createTenant(t, router, "alpha")

	rec := do(t, router, http.MethodGet, "/admin/tenants", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing tenants, got %d", rec.Code)
	}
	var resp struct {
		Tenants []struct {
			TenancyName string `json:"tenancy_name"`
			EditionName string `json:"edition_name"`
		} `json:"tenants"`
	}
	decode(t, rec, &resp)
	if len(resp.Tenants) != 2 {
		t.Fatalf("expected 2 tenants, got %d", len(resp.Tenants))
	}
	if resp.Tenants[0].TenancyName != "alpha" || resp.Tenants[1].TenancyName != "zeta" {
		t.Fatalf("expected name-ordered listing, got %+v", resp.Tenants)
	}
	if resp.Tenants[0].EditionName != "Standard" {
		t.Fatalf("expected edition name in listing, got %+v", resp.Tenants[0])
	}
}

func TestFeatureEndpoints(t *testing.T) {
	router := newAdminRouter(t)
	createEdition(t, router, "Standard", map[string]string{"MaxUserCount": "5"})
	tenantID := createTenant(t, router, "acme")

	readFeatures := func() map[string]string {
		rec := do(t, router, http.MethodGet, "/admin/tenants/"+tenantID+"/features", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 reading features, got %d", rec.Code)
		}
		var resp struct {
			Features map[string]string `json:"features"`
		}
		decode(t, rec, &resp)
		return resp.Features
	}

	if got := readFeatures()["MaxUserCount"]; got != "5" {
		t.Fatalf("expected edition default 5, got %q", got)
	}

	rec := do(t, router, http.MethodPut, "/admin/tenants/"+tenantID+"/features", map[string]any{
		"features": []map[string]string{{"name": "MaxUserCount", "value": "50"}},
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 setting features, got %d", rec.Code)
	}
	if got := readFeatures()["MaxUserCount"]; got != "50" {
		t.Fatalf("expected override 50, got %q", got)
	}

	rec = do(t, router, http.MethodPost, "/admin/tenants/"+tenantID+"/features/reset", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 resetting features, got %d", rec.Code)
	}
	if got := readFeatures()["MaxUserCount"]; got != "5" {
		t.Fatalf("expected default restored after reset, got %q", got)
	}
}

func TestFeaturesWithoutEdition(t *testing.T) {
	router := newAdminRouter(t)
	// No Standard edition exists, so the tenant registers unassigned.
	tenantID := createTenant(t, router, "acme")

	rec := do(t, router, http.MethodGet, "/admin/tenants/"+tenantID+"/features", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for tenant without edition, got %d", rec.Code)
	}
	var resp struct {
		ErrorKey string `json:"error_key"`
	}
	decode(t, rec, &resp)
	if resp.ErrorKey != i18n.KeyNoEditionIsSetForTenant {
		t.Fatalf("expected error key %q, got %q", i18n.KeyNoEditionIsSetForTenant, resp.ErrorKey)
	}
}

func TestAssignEdition(t *testing.T) {
	router := newAdminRouter(t)
	createEdition(t, router, "Standard", nil)
	premiumID := createEdition(t, router, "Premium", nil)
	tenantID := createTenant(t, router, "acme")

	rec := do(t, router, http.MethodPut, "/admin/tenants/"+tenantID+"/edition", map[string]string{
		"edition_id": premiumID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 assigning edition, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodGet, "/admin/tenants/"+tenantID+"/editions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing editions for tenant, got %d", rec.Code)
	}
	var resp struct {
		Editions []struct {
			Edition struct {
				ID string `json:"id"`
			} `json:"edition"`
			Active bool `json:"active"`
		} `json:"editions"`
	}
	decode(t, rec, &resp)
	if len(resp.Editions) != 2 {
		t.Fatalf("expected 2 catalog entries, got %d", len(resp.Editions))
	}
	for _, entry := range resp.Editions {
		if entry.Edition.ID == premiumID && !entry.Active {
			t.Fatalf("expected the assigned edition to be flagged active")
		}
	}
}

// failingEditionStore degrades the catalog listing while leaving lookups
// (used during provisioning) intact.
type failingEditionStore struct {
	*editionstore.InMemory
}

func (failingEditionStore) List(context.Context) ([]*models.Edition, error) {
	return nil, errors.New("catalog unavailable")
}

func TestTenantListingSurfacesCatalogFailure(t *testing.T) {
	tenants := tenantstore.NewInMemory()
	editions := failingEditionStore{editionstore.NewInMemory()}
	features := featurestore.NewInMemory()
	roles := rolestore.NewInMemory()
	users := userstore.NewInMemory()
	runner := tx.NopRunner{}
	localizer := i18n.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	registry := service.NewRegistry(tenants, editions, runner, localizer)
	catalog := service.NewCatalog(editions, features, tenants, runner, "Standard")
	featureSvc := service.NewFeatures(tenants, editions, features, runner, localizer)
	provisioner := service.NewProvisioner(registry, catalog, tenants, runner,
		provision.NewInMemory(), crypto.Passthrough{},
		authz.New(roles), identity.New(users, roles), "123qwe")
	router := NewRouter(New(provisioner, registry, catalog, featureSvc, logger), stubValidator{}, logger)

	createTenant(t, router, "acme")

	rec := do(t, router, http.MethodGet, "/admin/tenants", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when the edition catalog cannot be listed, got %d", rec.Code)
	}
}

func TestUnknownTenantIs404(t *testing.T) {
	router := newAdminRouter(t)
	rec := do(t, router, http.MethodGet, "/admin/tenants/00000000-0000-0000-0000-000000000001", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown tenant, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/admin/tenants/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed tenant id, got %d", rec.Code)
	}
}
