package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"stratus/internal/tenancy/service"
	id "stratus/pkg/domain"
	dErrors "stratus/pkg/domain-errors"
)

// Handler wires the admin-facing tenancy routes to the services.
type Handler struct {
	provisioner *service.Provisioner
	registry    *service.Registry
	catalog     *service.Catalog
	features    *service.Features
	logger      *slog.Logger
}

// New constructs the tenancy HTTP handler.
func New(provisioner *service.Provisioner, registry *service.Registry, catalog *service.Catalog, features *service.Features, logger *slog.Logger) *Handler {
	return &Handler{
		provisioner: provisioner,
		registry:    registry,
		catalog:     catalog,
		features:    features,
		logger:      logger,
	}
}

// Routes mounts the admin surface on r. Authentication middleware is
// applied by the caller so tests can drive the routes directly.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/tenants", h.listTenants)
	r.Post("/tenants", h.createTenant)
	r.Get("/tenants/{tenantID}", h.getTenant)
	r.Post("/tenants/{tenantID}/provision", h.retryProvisioning)
	r.Put("/tenants/{tenantID}/edition", h.assignEdition)
	r.Get("/tenants/{tenantID}/editions", h.editionsForTenant)
	r.Get("/tenants/{tenantID}/features", h.getFeatures)
	r.Put("/tenants/{tenantID}/features", h.setFeatures)
	r.Post("/tenants/{tenantID}/features/reset", h.resetFeatures)
	r.Get("/editions", h.listEditions)
	r.Post("/editions", h.createEdition)
}

func (h *Handler) listTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.registry.ListTenants(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	editionNames := make(map[id.EditionID]string)
	editions, err := h.catalog.ListEditions(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	for _, edition := range editions {
		editionNames[edition.ID] = edition.Name
	}

	out := make([]tenantListItem, 0, len(tenants))
	for _, tenant := range tenants {
		item := tenantListItem{tenantResponse: toTenantResponse(tenant)}
		if tenant.HasEdition() {
			item.EditionName = editionNames[*tenant.EditionID]
		}
		out = append(out, item)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"tenants": out})
}

func (h *Handler) createTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tenant, err := h.provisioner.Provision(r.Context(), input)
	if err != nil {
		// A tenant that registered but failed later is reported with its
		// id so the caller can retry the remainder.
		if tenant != nil {
			h.writeJSON(w, http.StatusInternalServerError, map[string]any{
				"tenant_id": tenant.ID.String(),
				"state":     string(tenant.State),
				"error":     err.Error(),
			})
			return
		}
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toTenantResponse(tenant))
}

func (h *Handler) getTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	tenant, err := h.registry.GetTenant(r.Context(), tenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toTenantResponse(tenant))
}

func (h *Handler) retryProvisioning(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	tenant, err := h.provisioner.RetryProvisioning(r.Context(), tenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toTenantResponse(tenant))
}

func (h *Handler) assignEdition(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req assignEditionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	editionID, err := id.ParseEditionID(req.EditionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	tenant, err := h.registry.AssignEdition(r.Context(), tenantID, editionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toTenantResponse(tenant))
}

func (h *Handler) editionsForTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	editions, err := h.catalog.EditionsForTenant(r.Context(), tenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"editions": editions})
}

func (h *Handler) getFeatures(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	features, err := h.features.EffectiveFeatures(r.Context(), tenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"features": features})
}

func (h *Handler) setFeatures(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req setFeaturesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if err := h.features.SetFeatureValues(r.Context(), tenantID, req.Features); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resetFeatures(w http.ResponseWriter, r *http.Request) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.features.ResetToEditionDefaults(r.Context(), tenantID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listEditions(w http.ResponseWriter, r *http.Request) {
	editions, err := h.catalog.ListEditions(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"editions": editions})
}

func (h *Handler) createEdition(w http.ResponseWriter, r *http.Request) {
	var req createEditionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	edition, err := h.catalog.CreateEdition(r.Context(), req.Name, req.DisplayName, req.Features)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, edition)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && h.logger != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps domain error codes to HTTP statuses. Validation errors
// carry the full violation list; domain-rule errors carry their key so
// clients can localize.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	body := map[string]any{"error": err.Error()}

	switch {
	case dErrors.HasCode(err, dErrors.CodeValidation):
		status = http.StatusBadRequest
		if violations := dErrors.Violations(err); len(violations) > 0 {
			body["violations"] = violations
		}
	case dErrors.HasCode(err, dErrors.CodeInvalidInput):
		status = http.StatusBadRequest
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		status = http.StatusNotFound
	case dErrors.HasCode(err, dErrors.CodeConflict):
		status = http.StatusConflict
	case dErrors.HasCode(err, dErrors.CodeDomainRule):
		status = http.StatusConflict
		if key := dErrors.KeyOf(err); key != "" {
			body["error_key"] = key
		}
	case dErrors.HasCode(err, dErrors.CodeDependency):
		status = http.StatusBadGateway
	case dErrors.HasCode(err, dErrors.CodeMisconfiguration):
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError && h.logger != nil {
		h.logger.ErrorContext(r.Context(), "request failed", "error", err, "path", r.URL.Path)
	}

	h.writeJSON(w, status, body)
}
