package user

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

// PostgresStore persists tenant-scoped users and role membership.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) querier {
	if dbTx, ok := tx.From(ctx); ok {
		return dbTx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	tenantID, err := scope.Require(ctx)
	if err != nil {
		return err
	}
	_, err = s.conn(ctx).ExecContext(ctx, `
		INSERT INTO users (id, tenant_id, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(user.ID), uuid.UUID(tenantID), user.Email, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	tenantID, err := scope.Require(ctx)
	if err != nil {
		return nil, err
	}
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, tenant_id, email, password_hash, created_at
		FROM users WHERE tenant_id = $1 AND lower(email) = lower($2)`,
		uuid.UUID(tenantID), email,
	)

	var (
		user     models.User
		rawID    uuid.UUID
		rawTenID uuid.UUID
	)
	err = row.Scan(&rawID, &rawTenID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.ID = id.UserID(rawID)
	user.TenantID = id.TenantID(rawTenID)
	return &user, nil
}

func (s *PostgresStore) AddToRole(ctx context.Context, userID id.UserID, roleID id.RoleID) error {
	if _, err := scope.Require(ctx); err != nil {
		return err
	}
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO role_members (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role_id) DO NOTHING`,
		uuid.UUID(userID), uuid.UUID(roleID),
	)
	if err != nil {
		return fmt.Errorf("add to role: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsInRole(ctx context.Context, userID id.UserID, roleID id.RoleID) (bool, error) {
	if _, err := scope.Require(ctx); err != nil {
		return false, err
	}
	row := s.conn(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM role_members WHERE user_id = $1 AND role_id = $2)`,
		uuid.UUID(userID), uuid.UUID(roleID),
	)
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, fmt.Errorf("check role membership: %w", err)
	}
	return ok, nil
}
