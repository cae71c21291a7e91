// Package tenancy is the composition surface for tenant provisioning,
// the edition catalog, and feature resolution.
package tenancy

import (
	"log/slog"

	"stratus/internal/tenancy/handler"
	"stratus/internal/tenancy/service"
)

// Registry exposes tenant registry operations.
type Registry = service.Registry

// Catalog exposes the edition catalog.
type Catalog = service.Catalog

// Features resolves and mutates tenant feature sets.
type Features = service.Features

// Provisioner orchestrates tenant creation.
type Provisioner = service.Provisioner

// Handler wires HTTP endpoints to the tenancy services.
type Handler = handler.Handler

// NewHandler constructs the admin-facing HTTP handler.
func NewHandler(p *Provisioner, r *Registry, c *Catalog, f *Features, logger *slog.Logger) *Handler {
	return handler.New(p, r, c, f, logger)
}
