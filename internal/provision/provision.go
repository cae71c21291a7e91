// Package provision implements the storage-provisioning collaborator:
// create-or-migrate of a tenant's dedicated data store. The contract is
// idempotent, so retrying a failed provisioning run never has to repeat
// the registry step.
package provision

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"stratus/internal/tenancy/models"
	id "stratus/pkg/domain"
)

// PostgresProvisioner creates one schema per tenant in the shared cluster
// and applies the tenant-scoped DDL. Every statement is IF NOT EXISTS, so
// CreateOrMigrate is safe to invoke any number of times.
type PostgresProvisioner struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresProvisioner {
	return &PostgresProvisioner{db: db}
}

// SchemaName derives the tenant's schema identifier. Hyphens are stripped
// because they are not valid in unquoted postgres identifiers.
func SchemaName(tenantID id.TenantID) string {
	return "tenant_" + strings.ReplaceAll(uuid.UUID(tenantID).String(), "-", "")
}

func (p *PostgresProvisioner) CreateOrMigrate(ctx context.Context, tenant *models.Tenant) error {
	schema := SchemaName(tenant.ID)
	statements := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.settings (
			name text PRIMARY KEY,
			value text NOT NULL
		)`, schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.audit_log (
			id bigserial PRIMARY KEY,
			occurred_at timestamptz NOT NULL DEFAULT now(),
			action text NOT NULL,
			detail text NOT NULL DEFAULT ''
		)`, schema),
	}
	for _, stmt := range statements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("provision tenant storage %s: %w", schema, err)
		}
	}
	return nil
}

// InMemoryProvisioner records provisioning calls for tests and for wiring
// without postgres. Fail can be set to simulate a transient outage.
type InMemoryProvisioner struct {
	mu          sync.Mutex
	provisioned map[id.TenantID]int
	Fail        error
}

func NewInMemory() *InMemoryProvisioner {
	return &InMemoryProvisioner{provisioned: make(map[id.TenantID]int)}
}

func (p *InMemoryProvisioner) CreateOrMigrate(_ context.Context, tenant *models.Tenant) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Fail != nil {
		return p.Fail
	}
	p.provisioned[tenant.ID]++
	return nil
}

// Calls reports how many times the tenant's store has been provisioned.
func (p *InMemoryProvisioner) Calls(tenantID id.TenantID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.provisioned[tenantID]
}
