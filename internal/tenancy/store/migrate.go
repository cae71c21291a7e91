// Package store holds the persistent registry schema shared by the
// per-entity stores in its subpackages.
package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the registry tables when they do not exist yet. Schema
// changes ship as additive statements here; destructive migrations are
// run by operators out of band.
func Migrate(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS editions (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS editions_name_key ON editions (lower(name))`,
		`CREATE TABLE IF NOT EXISTS tenants (
			id UUID PRIMARY KEY,
			tenancy_name TEXT NOT NULL,
			display_name TEXT NOT NULL,
			admin_email TEXT NOT NULL,
			connection_string TEXT NOT NULL DEFAULT '',
			edition_id UUID REFERENCES editions (id),
			state TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS tenants_tenancy_name_key ON tenants (lower(tenancy_name))`,
		`CREATE TABLE IF NOT EXISTS edition_features (
			edition_id UUID NOT NULL REFERENCES editions (id),
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (edition_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS tenant_features (
			tenant_id UUID NOT NULL REFERENCES tenants (id),
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (tenant_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS roles (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL REFERENCES tenants (id),
			name TEXT NOT NULL,
			is_static BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS roles_tenant_name_key ON roles (tenant_id, lower(name))`,
		`CREATE TABLE IF NOT EXISTS role_permissions (
			role_id UUID NOT NULL REFERENCES roles (id),
			permission TEXT NOT NULL,
			PRIMARY KEY (role_id, permission)
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL REFERENCES tenants (id),
			email TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_tenant_email_key ON users (tenant_id, lower(email))`,
		`CREATE TABLE IF NOT EXISTS role_members (
			user_id UUID NOT NULL REFERENCES users (id),
			role_id UUID NOT NULL REFERENCES roles (id),
			PRIMARY KEY (user_id, role_id)
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate registry schema: %w", err)
		}
	}
	return nil
}
