package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"stratus/internal/tenancy/models"
	id "stratus/pkg/domain"
	"stratus/pkg/platform/sentinel"
	"stratus/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists the tenant registry. Writes participate in the
// transaction carried in context, so commit boundaries stay with the
// caller (the provisioning workflow commits once per step).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) querier {
	if dbTx, ok := tx.From(ctx); ok {
		return dbTx
	}
	return s.db
}

func (s *PostgresStore) CreateIfNameAvailable(ctx context.Context, tenant *models.Tenant) error {
	var editionID any
	if tenant.EditionID != nil {
		editionID = uuid.UUID(*tenant.EditionID)
	}
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO tenants (id, tenancy_name, display_name, admin_email, connection_string, edition_id, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.UUID(tenant.ID), tenant.TenancyName, tenant.DisplayName, tenant.AdminEmail,
		tenant.ConnectionString, editionID, string(tenant.State), tenant.CreatedAt, tenant.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, tenancy_name, display_name, admin_email, connection_string, edition_id, state, created_at, updated_at
		FROM tenants WHERE id = $1`,
		uuid.UUID(tenantID),
	)
	return scanTenant(row)
}

func (s *PostgresStore) FindByTenancyName(ctx context.Context, name string) (*models.Tenant, error) {
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, tenancy_name, display_name, admin_email, connection_string, edition_id, state, created_at, updated_at
		FROM tenants WHERE lower(tenancy_name) = lower($1)`,
		name,
	)
	return scanTenant(row)
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Tenant, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, tenancy_name, display_name, admin_email, connection_string, edition_id, state, created_at, updated_at
		FROM tenants ORDER BY lower(tenancy_name) ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var out []*models.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tenant)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, tenant *models.Tenant) error {
	var editionID any
	if tenant.EditionID != nil {
		editionID = uuid.UUID(*tenant.EditionID)
	}
	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE tenants
		SET display_name = $2, admin_email = $3, connection_string = $4, edition_id = $5, state = $6, updated_at = $7
		WHERE id = $1`,
		uuid.UUID(tenant.ID), tenant.DisplayName, tenant.AdminEmail,
		tenant.ConnectionString, editionID, string(tenant.State), tenant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*models.Tenant, error) {
	var (
		tenant    models.Tenant
		rawID     uuid.UUID
		editionID uuid.NullUUID
		state     string
	)
	err := row.Scan(&rawID, &tenant.TenancyName, &tenant.DisplayName, &tenant.AdminEmail,
		&tenant.ConnectionString, &editionID, &state, &tenant.CreatedAt, &tenant.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	tenant.ID = id.TenantID(rawID)
	tenant.State = models.ProvisioningState(state)
	if editionID.Valid {
		eid := id.EditionID(editionID.UUID)
		tenant.EditionID = &eid
	}
	return &tenant, nil
}
