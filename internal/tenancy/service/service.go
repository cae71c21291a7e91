package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"stratus/internal/audit"
	"stratus/internal/i18n"
	"stratus/internal/platform/middleware"
	"stratus/internal/tenancy/metrics"
	"stratus/internal/tenancy/models"
	id "stratus/pkg/domain"
	dErrors "stratus/pkg/domain-errors"
	"stratus/pkg/platform/sentinel"
	"stratus/pkg/platform/tx"
)

// TenantStore is the global tenant registry partition.
type TenantStore interface {
	CreateIfNameAvailable(ctx context.Context, tenant *models.Tenant) error
	FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error)
	FindByTenancyName(ctx context.Context, name string) (*models.Tenant, error)
	List(ctx context.Context) ([]*models.Tenant, error)
	Update(ctx context.Context, tenant *models.Tenant) error
}

// EditionStore is the edition catalog partition.
type EditionStore interface {
	Create(ctx context.Context, edition *models.Edition) error
	FindByID(ctx context.Context, editionID id.EditionID) (*models.Edition, error)
	FindByName(ctx context.Context, name string) (*models.Edition, error)
	List(ctx context.Context) ([]*models.Edition, error)
}

// FeatureStore holds feature values for both scopes.
type FeatureStore interface {
	SetEditionDefault(ctx context.Context, editionID id.EditionID, value models.FeatureValue) error
	EditionDefaults(ctx context.Context, editionID id.EditionID) ([]models.FeatureValue, error)
	UpsertTenantOverride(ctx context.Context, tenantID id.TenantID, value models.FeatureValue) error
	TenantOverrides(ctx context.Context, tenantID id.TenantID) ([]models.FeatureValue, error)
	ReplaceTenantOverrides(ctx context.Context, tenantID id.TenantID, values []models.FeatureValue) error
}

// Registry exposes the global tenant catalog. Mutations run inside the
// caller-supplied tx.Runner so the provisioning workflow controls commit
// boundaries.
type Registry struct {
	tenants   TenantStore
	editions  EditionStore
	runner    tx.Runner
	localizer *i18n.Localizer
	cache     FeatureCache
	logger    *slog.Logger
	publisher audit.Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(r *Registry)

func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

func WithRegistryAuditPublisher(publisher audit.Publisher) RegistryOption {
	return func(r *Registry) { r.publisher = publisher }
}

func WithRegistryMetrics(m *metrics.Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// WithRegistryFeatureCache wires the effective-feature cache so edition
// reassignment invalidates the tenant's cached entitlements. Pass the
// same cache the Features service resolves through.
func WithRegistryFeatureCache(cache FeatureCache) RegistryOption {
	return func(r *Registry) { r.cache = cache }
}

// NewRegistry constructs a Registry.
func NewRegistry(tenants TenantStore, editions EditionStore, runner tx.Runner, localizer *i18n.Localizer, opts ...RegistryOption) *Registry {
	r := &Registry{
		tenants:   tenants,
		editions:  editions,
		runner:    runner,
		localizer: localizer,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ListTenants returns all tenants ordered by tenancy name ascending.
func (r *Registry) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	tenants, err := r.tenants.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tenants")
	}
	return tenants, nil
}

// GetTenant fetches a tenant by id.
func (r *Registry) GetTenant(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	tenant, err := r.tenants.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tenant")
	}
	return tenant, nil
}

// Create inserts a registered tenant. The caller owns the commit boundary;
// Create itself only writes through whatever transaction the context
// carries. Tenancy-name uniqueness violations surface as validation
// errors with the full context a caller needs to correct the input.
func (r *Registry) Create(ctx context.Context, tenant *models.Tenant) error {
	if err := r.tenants.CreateIfNameAvailable(ctx, tenant); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return dErrors.NewWithKey(dErrors.CodeValidation,
				i18n.KeyTenantNameAlreadyTaken,
				r.localizer.L(i18n.KeyTenantNameAlreadyTaken)+": "+tenant.TenancyName)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create tenant")
	}
	return nil
}

// AssignEdition sets the tenant's edition reference. Fails with NotFound
// when either id is unknown. Commits through the registry's runner.
func (r *Registry) AssignEdition(ctx context.Context, tenantID id.TenantID, editionID id.EditionID) (*models.Tenant, error) {
	tenant, err := r.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if _, err := r.editions.FindByID(ctx, editionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "edition not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load edition")
	}

	tenant.AssignEdition(editionID, r.now())
	err = r.runner.Execute(ctx, func(ctx context.Context) error {
		return r.tenants.Update(ctx, tenant)
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to assign edition")
	}

	// The edition change replaces the tenant's entitlement baseline, so any
	// cached effective set is stale from here on.
	if r.cache != nil {
		_ = r.cache.Invalidate(ctx, tenant.ID)
	}

	r.logAudit(ctx, audit.EventEditionAssigned, tenant.ID.String(), "edition_id", editionID.String())
	return tenant, nil
}

func (r *Registry) logAudit(ctx context.Context, action, tenantID string, attributes ...any) {
	logAudit(ctx, r.logger, r.publisher, action, tenantID, attributes...)
}

// logAudit writes the audit line and fans the event out to the configured
// publisher. Shared by every service in this package.
func logAudit(ctx context.Context, logger *slog.Logger, publisher audit.Publisher, action, tenantID string, attributes ...any) {
	requestID := middleware.GetRequestID(ctx)
	if logger != nil {
		args := append([]any{"event", action, "tenant_id", tenantID, "log_type", "audit"}, attributes...)
		if requestID != "" {
			args = append(args, "request_id", requestID)
		}
		logger.InfoContext(ctx, action, args...)
	}
	if publisher == nil {
		return
	}
	_ = publisher.Emit(ctx, audit.Event{
		TenantID:  tenantID,
		Action:    action,
		RequestID: requestID,
	})
}
