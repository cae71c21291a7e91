package models

import (
	"time"

	id "stratus/pkg/domain"
)

// Well-known static role names seeded into every tenant at provisioning
// time. The admin role must exist before the admin identity can be
// assigned to it; its absence after seeding is a platform misconfiguration.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// StaticRoleNames returns the fixed set of roles every tenant starts with.
func StaticRoleNames() []string {
	return []string{RoleAdmin, RoleUser}
}

// Role is a tenant-scoped role. Name is unique within the owning tenant's
// partition. Roles are only ever created inside a scoped execution context
// bound to their tenant.
type Role struct {
	ID        id.RoleID   `json:"id"`
	TenantID  id.TenantID `json:"tenant_id"`
	Name      string      `json:"name"`
	IsStatic  bool        `json:"is_static"`
	CreatedAt time.Time   `json:"created_at"`
}

// User is a tenant-scoped identity. The provisioning workflow creates one
// administrative user per tenant; everything else is external.
type User struct {
	ID           id.UserID   `json:"id"`
	TenantID     id.TenantID `json:"tenant_id"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
}
