package service

import (
	"context"
	"errors"
	"time"

	"stratus/internal/tenancy/models"
	id "stratus/pkg/domain"
	dErrors "stratus/pkg/domain-errors"
	"stratus/pkg/platform/sentinel"
	"stratus/pkg/platform/tx"
)

// Catalog exposes the edition catalog: subscription tiers and their
// default feature-value sets. One edition, designated by configured name,
// is the system default assigned at tenant creation when no edition is
// chosen explicitly.
type Catalog struct {
	editions           EditionStore
	features           FeatureStore
	tenants            TenantStore
	runner             tx.Runner
	defaultEditionName string
	now                func() time.Time
}

// NewCatalog constructs a Catalog.
func NewCatalog(editions EditionStore, features FeatureStore, tenants TenantStore, runner tx.Runner, defaultEditionName string) *Catalog {
	return &Catalog{
		editions:           editions,
		features:           features,
		tenants:            tenants,
		runner:             runner,
		defaultEditionName: defaultEditionName,
		now:                time.Now,
	}
}

// ListEditions returns all editions in catalog order.
func (c *Catalog) ListEditions(ctx context.Context) ([]*models.Edition, error) {
	editions, err := c.editions.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list editions")
	}
	return editions, nil
}

// FindByID returns the edition or NotFound.
func (c *Catalog) FindByID(ctx context.Context, editionID id.EditionID) (*models.Edition, error) {
	edition, err := c.editions.FindByID(ctx, editionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "edition not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load edition")
	}
	return edition, nil
}

// FindByName returns the edition or NotFound.
func (c *Catalog) FindByName(ctx context.Context, name string) (*models.Edition, error) {
	edition, err := c.editions.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "edition not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load edition")
	}
	return edition, nil
}

// DefaultEdition resolves the system default edition by its configured
// name. Returns (nil, nil) when no edition carries that name: creation
// without a default edition is legal, feature resolution for such tenants
// is not.
func (c *Catalog) DefaultEdition(ctx context.Context) (*models.Edition, error) {
	edition, err := c.editions.FindByName(ctx, c.defaultEditionName)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve default edition")
	}
	return edition, nil
}

// DefaultFeatureValues returns the edition's full default feature set.
func (c *Catalog) DefaultFeatureValues(ctx context.Context, editionID id.EditionID) ([]models.FeatureValue, error) {
	if _, err := c.FindByID(ctx, editionID); err != nil {
		return nil, err
	}
	values, err := c.features.EditionDefaults(ctx, editionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load edition defaults")
	}
	return values, nil
}

// CreateEdition registers an edition together with its feature defaults in
// one commit.
func (c *Catalog) CreateEdition(ctx context.Context, name, displayName string, defaults []models.FeatureValue) (*models.Edition, error) {
	edition, err := models.NewEdition(id.NewEditionID(), name, displayName, c.now())
	if err != nil {
		return nil, err
	}

	err = c.runner.Execute(ctx, func(ctx context.Context) error {
		if err := c.editions.Create(ctx, edition); err != nil {
			return err
		}
		for _, value := range defaults {
			if err := c.features.SetEditionDefault(ctx, edition.ID, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "edition name must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create edition")
	}
	return edition, nil
}

// EditionForTenant pairs an edition with whether it is the tenant's
// currently assigned one.
type EditionForTenant struct {
	Edition *models.Edition `json:"edition"`
	Active  bool            `json:"active"`
}

// EditionsForTenant lists the whole catalog flagged against the tenant's
// current assignment.
func (c *Catalog) EditionsForTenant(ctx context.Context, tenantID id.TenantID) ([]EditionForTenant, error) {
	tenant, err := c.tenants.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tenant")
	}

	editions, err := c.ListEditions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]EditionForTenant, 0, len(editions))
	for _, edition := range editions {
		active := tenant.HasEdition() && *tenant.EditionID == edition.ID
		out = append(out, EditionForTenant{Edition: edition, Active: active})
	}
	return out, nil
}
