package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stratus/internal/audit"
	"stratus/internal/tenancy/metrics"
	"stratus/internal/tenancy/models"
	"stratus/internal/tenancy/scope"
	id "stratus/pkg/domain"
	dErrors "stratus/pkg/domain-errors"
	"stratus/pkg/platform/sentinel"
	"stratus/pkg/platform/tx"
)

// StorageProvisioner creates or migrates a tenant's dedicated data store.
// Must be safe to invoke multiple times for the same tenant.
type StorageProvisioner interface {
	CreateOrMigrate(ctx context.Context, tenant *models.Tenant) error
}

// Cipher encrypts connection descriptors before they reach the registry.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
}

// RoleSeeder seeds and queries tenant-scoped roles. All methods operate
// inside the caller's scoped execution context.
type RoleSeeder interface {
	CreateStaticRoles(ctx context.Context) error
	FindRole(ctx context.Context, name string) (*models.Role, error)
	GrantAll(ctx context.Context, roleID id.RoleID) error
}

// IdentitySeeder creates the tenant administrative identity.
type IdentitySeeder interface {
	CreateAdminUser(ctx context.Context, tenantID id.TenantID, email, password string) (*models.User, error)
	AddToRole(ctx context.Context, userID id.UserID, roleName string) error
}

// CreateTenantInput is the provisioning request.
type CreateTenantInput struct {
	TenancyName string
	DisplayName string
	AdminEmail  string
	// ConnectionString is the plaintext connection descriptor for a
	// dedicated store; empty means the shared/default store.
	ConnectionString string
	// EditionID overrides the system default edition when set.
	EditionID *id.EditionID
}

// Provisioner orchestrates tenant creation end to end. True atomicity
// across the registry and the storage system does not exist, so the run
// is an explicit state machine: registration commits first, everything
// after it is idempotent and resumable via RetryProvisioning.
type Provisioner struct {
	registry  *Registry
	catalog   *Catalog
	runner    tx.Runner
	storage   StorageProvisioner
	cipher    Cipher
	roles     RoleSeeder
	identity  IdentitySeeder
	tenants   TenantStore
	password  string
	logger    *slog.Logger
	publisher audit.Publisher
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	now       func() time.Time
}

// ProvisionerOption configures a Provisioner.
type ProvisionerOption func(p *Provisioner)

func WithProvisionerLogger(logger *slog.Logger) ProvisionerOption {
	return func(p *Provisioner) { p.logger = logger }
}

func WithProvisionerAuditPublisher(publisher audit.Publisher) ProvisionerOption {
	return func(p *Provisioner) { p.publisher = publisher }
}

func WithProvisionerMetrics(m *metrics.Metrics) ProvisionerOption {
	return func(p *Provisioner) { p.metrics = m }
}

// NewProvisioner constructs a Provisioner. defaultAdminPassword seeds the
// administrative account of every new tenant.
func NewProvisioner(
	registry *Registry,
	catalog *Catalog,
	tenants TenantStore,
	runner tx.Runner,
	storage StorageProvisioner,
	cipher Cipher,
	roles RoleSeeder,
	identity IdentitySeeder,
	defaultAdminPassword string,
	opts ...ProvisionerOption,
) *Provisioner {
	p := &Provisioner{
		registry: registry,
		catalog:  catalog,
		tenants:  tenants,
		runner:   runner,
		storage:  storage,
		cipher:   cipher,
		roles:    roles,
		identity: identity,
		password: defaultAdminPassword,
		tracer:   otel.Tracer("stratus/internal/tenancy"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Provision runs the full workflow. A validation or uniqueness failure in
// step 1 aborts with no side effects beyond the registry attempt itself;
// failures after registration leave the tenant in the failed state and
// surface the error so the caller can retry the idempotent remainder.
func (p *Provisioner) Provision(ctx context.Context, input CreateTenantInput) (*models.Tenant, error) {
	start := p.now()
	ctx, span := p.tracer.Start(ctx, "provisioner.provision")
	defer span.End()

	tenant, err := p.register(ctx, input)
	if err != nil {
		span.SetStatus(codes.Error, "registration failed")
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("tenant.id", tenant.ID.String()))

	if err := p.resume(ctx, tenant); err != nil {
		return tenant, err
	}

	if p.metrics != nil {
		p.metrics.TenantsProvisioned.Inc()
		p.metrics.ObserveProvision(start)
	}
	return tenant, nil
}

// RetryProvisioning resumes steps 2-6 for a registered or failed tenant.
// Provisioned tenants are returned as-is.
func (p *Provisioner) RetryProvisioning(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	tenant, err := p.registry.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant.State == models.StateProvisioned {
		return tenant, nil
	}
	if err := p.resume(ctx, tenant); err != nil {
		return tenant, err
	}
	if p.metrics != nil {
		p.metrics.TenantsProvisioned.Inc()
	}
	return tenant, nil
}

// register is step 1: validate, encrypt the connection descriptor, assign
// the default edition, insert the registry row, commit.
func (p *Provisioner) register(ctx context.Context, input CreateTenantInput) (*models.Tenant, error) {
	ctx, span := p.tracer.Start(ctx, "provisioner.register")
	defer span.End()

	tenant, err := models.NewTenant(id.NewTenantID(), input.TenancyName, input.DisplayName, input.AdminEmail, p.now())
	if err != nil {
		return nil, err
	}

	if input.ConnectionString != "" {
		encrypted, err := p.cipher.Encrypt(input.ConnectionString)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeDependency, "failed to encrypt connection descriptor")
		}
		tenant.ConnectionString = encrypted
	}

	if input.EditionID != nil {
		if _, err := p.catalog.FindByID(ctx, *input.EditionID); err != nil {
			return nil, err
		}
		tenant.AssignEdition(*input.EditionID, p.now())
	} else {
		defaultEdition, err := p.catalog.DefaultEdition(ctx)
		if err != nil {
			return nil, err
		}
		if defaultEdition != nil {
			tenant.AssignEdition(defaultEdition.ID, p.now())
		}
	}

	// The registry row and the edition assignment commit together or not
	// at all.
	err = p.runner.Execute(ctx, func(ctx context.Context) error {
		return p.registry.Create(ctx, tenant)
	})
	if err != nil {
		return nil, err
	}

	logAudit(ctx, p.logger, p.publisher, audit.EventTenantRegistered, tenant.ID.String(),
		"tenancy_name", tenant.TenancyName)
	return tenant, nil
}

// resume runs steps 2-6: storage, scoped seeding, admin identity, state
// transition. Each sub-step is idempotent, so a transient failure is
// recoverable by calling resume again.
func (p *Provisioner) resume(ctx context.Context, tenant *models.Tenant) error {
	if err := p.provisionStorage(ctx, tenant); err != nil {
		return p.fail(ctx, tenant, err)
	}
	if err := p.seedTenant(ctx, tenant); err != nil {
		return p.fail(ctx, tenant, err)
	}

	tenant.MarkProvisioned(p.now())
	err := p.runner.Execute(ctx, func(ctx context.Context) error {
		return p.tenants.Update(ctx, tenant)
	})
	if err != nil {
		return p.fail(ctx, tenant, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record provisioned state"))
	}

	logAudit(ctx, p.logger, p.publisher, audit.EventTenantProvisioned, tenant.ID.String())
	return nil
}

// provisionStorage is step 2. The collaborator contract is
// create-or-migrate, so invoking it again after a transient failure is
// safe without re-running registration.
func (p *Provisioner) provisionStorage(ctx context.Context, tenant *models.Tenant) error {
	ctx, span := p.tracer.Start(ctx, "provisioner.provision_storage")
	defer span.End()

	if err := p.storage.CreateOrMigrate(ctx, tenant); err != nil {
		span.SetStatus(codes.Error, "storage provisioning failed")
		span.RecordError(err)
		return dErrors.Wrap(err, dErrors.CodeDependency, "storage provisioning failed")
	}
	return nil
}

// seedTenant covers steps 3-5 inside the tenant's scoped execution
// context: static roles, permission grants, admin identity. The scope is
// released on every exit path.
func (p *Provisioner) seedTenant(ctx context.Context, tenant *models.Tenant) error {
	ctx, span := p.tracer.Start(ctx, "provisioner.seed_tenant")
	defer span.End()

	scopedCtx, handle := scope.Enter(ctx, tenant.ID)
	defer handle.Release()

	// Step 3: static roles, committed so generated role ids are durably
	// visible before the grant step references them.
	err := p.runner.Execute(scopedCtx, func(ctx context.Context) error {
		return p.roles.CreateStaticRoles(ctx)
	})
	if err != nil {
		span.RecordError(err)
		return dErrors.Wrap(err, dErrors.CodeDependency, "failed to seed static roles")
	}

	adminRole, err := p.roles.FindRole(scopedCtx, models.RoleAdmin)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Seeding just ran; a missing admin role means the platform
			// setup is broken, not that the caller sent bad input.
			return dErrors.New(dErrors.CodeMisconfiguration, "administrative role missing after seeding")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to locate administrative role")
	}

	// Step 4: the admin role holds every permission the platform knows.
	err = p.runner.Execute(scopedCtx, func(ctx context.Context) error {
		return p.roles.GrantAll(ctx, adminRole.ID)
	})
	if err != nil {
		span.RecordError(err)
		return dErrors.Wrap(err, dErrors.CodeDependency, "failed to grant permissions to administrative role")
	}

	// Step 5: admin identity, committed to obtain its id before the role
	// assignment references it.
	var admin *models.User
	err = p.runner.Execute(scopedCtx, func(ctx context.Context) error {
		var err error
		admin, err = p.identity.CreateAdminUser(ctx, tenant.ID, tenant.AdminEmail, p.password)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	err = p.runner.Execute(scopedCtx, func(ctx context.Context) error {
		return p.identity.AddToRole(ctx, admin.ID, adminRole.Name)
	})
	if err != nil {
		span.RecordError(err)
		return dErrors.Wrap(err, dErrors.CodeDependency, "failed to assign admin user to administrative role")
	}

	logAudit(scopedCtx, p.logger, p.publisher, audit.EventAdminIdentitySeeded, tenant.ID.String(),
		"admin_email", tenant.AdminEmail)
	return nil
}

// fail records the failed state (best effort) and surfaces the original
// error. No compensating rollback: committed steps stay, the remainder is
// retryable.
func (p *Provisioner) fail(ctx context.Context, tenant *models.Tenant, cause error) error {
	tenant.MarkFailed(p.now())
	updateErr := p.runner.Execute(ctx, func(ctx context.Context) error {
		return p.tenants.Update(ctx, tenant)
	})
	if updateErr != nil && p.logger != nil {
		p.logger.ErrorContext(ctx, "failed to record provisioning failure",
			"tenant_id", tenant.ID.String(), "error", updateErr)
	}

	if p.metrics != nil {
		p.metrics.ProvisioningFailed.Inc()
	}
	logAudit(ctx, p.logger, p.publisher, audit.EventProvisioningFailed, tenant.ID.String(),
		"error", cause.Error())
	return cause
}
