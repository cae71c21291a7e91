package role

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"stratus/internal/tenancy/models"
	"stratus/internal/tenancy/scope"
	id "stratus/pkg/domain"
	"stratus/pkg/platform/sentinel"
	"stratus/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists tenant-scoped roles and their permission grants.
// The tenant partition always comes from the scoped execution context,
// never from the caller's arguments.
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

func (s *PostgresStore) Create(ctx context.Context, role *models.Role) error {
	tenantID, err := scope.Require(ctx)
	if err != nil {
		return err
	}
	_, err = s.conn(ctx).ExecContext(ctx, `
		INSERT INTO roles (id, tenant_id, name, is_static, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(role.ID), uuid.UUID(tenantID), role.Name, role.IsStatic, role.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert role: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*models.Role, error) {
	tenantID, err := scope.Require(ctx)
	if err != nil {
		return nil, err
	}
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, tenant_id, name, is_static, created_at
		FROM roles WHERE tenant_id = $1 AND lower(name) = lower($2)`,
		uuid.UUID(tenantID), name,
	)

	var (
		role     models.Role
		rawID    uuid.UUID
		rawTenID uuid.UUID
	)
	err = row.Scan(&rawID, &rawTenID, &role.Name, &role.IsStatic, &role.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan role: %w", err)
	}
	role.ID = id.RoleID(rawID)
	role.TenantID = id.TenantID(rawTenID)
	return &role, nil
}

func (s *PostgresStore) GrantPermission(ctx context.Context, roleID id.RoleID, permission string) error {
	if _, err := scope.Require(ctx); err != nil {
		return err
	}
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO role_permissions (role_id, permission)
		VALUES ($1, $2)
		ON CONFLICT (role_id, permission) DO NOTHING`,
		uuid.UUID(roleID), permission,
	)
	if err != nil {
		return fmt.Errorf("grant permission: %w", err)
	}
	return nil
}

func (s *PostgresStore) Permissions(ctx context.Context, roleID id.RoleID) ([]string, error) {
	if _, err := scope.Require(ctx); err != nil {
		return nil, err
	}
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT permission FROM role_permissions WHERE role_id = $1 ORDER BY permission ASC`,
		uuid.UUID(roleID),
	)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var permission string
		if err := rows.Scan(&permission); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		out = append(out, permission)
	}
	return out, rows.Err()
}
