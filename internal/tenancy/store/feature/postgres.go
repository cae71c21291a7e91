package feature

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"stratus/internal/tenancy/models"
	id "stratus/pkg/domain"
	"stratus/pkg/platform/tx"
)

// PostgresStore persists feature values. Edition defaults and tenant
// overrides live in separate tables; each table carries a unique key on
// (owner, feature name), which makes upserts a single ON CONFLICT.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) conn(ctx context.Context) querier {
	if dbTx, ok := tx.From(ctx); ok {
		return dbTx
	}
	return s.db
}

func (s *PostgresStore) SetEditionDefault(ctx context.Context, editionID id.EditionID, value models.FeatureValue) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO edition_features (edition_id, name, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (edition_id, name) DO UPDATE SET value = EXCLUDED.value`,
		uuid.UUID(editionID), value.Name, value.Value,
	)
	if err != nil {
		return fmt.Errorf("upsert edition feature: %w", err)
	}
	return nil
}

func (s *PostgresStore) EditionDefaults(ctx context.Context, editionID id.EditionID) ([]models.FeatureValue, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT name, value FROM edition_features WHERE edition_id = $1 ORDER BY name ASC`,
		uuid.UUID(editionID),
	)
	if err != nil {
		return nil, fmt.Errorf("list edition features: %w", err)
	}
	return collectValues(rows)
}

func (s *PostgresStore) UpsertTenantOverride(ctx context.Context, tenantID id.TenantID, value models.FeatureValue) error {
	_, err := s.conn(ctx).ExecContext(ctx, `
		INSERT INTO tenant_features (tenant_id, name, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, name) DO UPDATE SET value = EXCLUDED.value`,
		uuid.UUID(tenantID), value.Name, value.Value,
	)
	if err != nil {
		return fmt.Errorf("upsert tenant feature: %w", err)
	}
	return nil
}

func (s *PostgresStore) TenantOverrides(ctx context.Context, tenantID id.TenantID) ([]models.FeatureValue, error) {
	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT name, value FROM tenant_features WHERE tenant_id = $1 ORDER BY name ASC`,
		uuid.UUID(tenantID),
	)
	if err != nil {
		return nil, fmt.Errorf("list tenant features: %w", err)
	}
	return collectValues(rows)
}

// ReplaceTenantOverrides deletes and re-inserts the tenant's override set.
// Callers run this inside a tx.Runner boundary so the replace is atomic.
func (s *PostgresStore) ReplaceTenantOverrides(ctx context.Context, tenantID id.TenantID, values []models.FeatureValue) error {
	conn := s.conn(ctx)
	if _, err := conn.ExecContext(ctx, `DELETE FROM tenant_features WHERE tenant_id = $1`, uuid.UUID(tenantID)); err != nil {
		return fmt.Errorf("clear tenant features: %w", err)
	}
	for _, v := range values {
		if err := s.UpsertTenantOverride(ctx, tenantID, v); err != nil {
			return err
		}
	}
	return nil
}

func collectValues(rows *sql.Rows) ([]models.FeatureValue, error) {
	defer rows.Close()
	var out []models.FeatureValue
	for rows.Next() {
		var v models.FeatureValue
		if err := rows.Scan(&v.Name, &v.Value); err != nil {
			return nil, fmt.Errorf("scan feature value: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
