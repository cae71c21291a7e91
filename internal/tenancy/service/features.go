package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"stratus/internal/audit"
	"stratus/internal/i18n"
	"stratus/internal/tenancy/metrics"
	"stratus/internal/tenancy/models"
	id "stratus/pkg/domain"
	dErrors "stratus/pkg/domain-errors"
	"stratus/pkg/platform/sentinel"
	"stratus/pkg/platform/tx"
)

// FeatureCache caches resolved effective feature sets. Implementations
// treat misses and backend outages alike: (nil, false, nil) — the
// resolver falls through to the stores.
type FeatureCache interface {
	Get(ctx context.Context, tenantID id.TenantID) (map[string]string, bool, error)
	Set(ctx context.Context, tenantID id.TenantID, features map[string]string) error
	Invalidate(ctx context.Context, tenantID id.TenantID) error
}

// Features computes and mutates the effective feature set of a tenant by
// layering tenant overrides over edition defaults.
type Features struct {
	tenants   TenantStore
	editions  EditionStore
	features  FeatureStore
	runner    tx.Runner
	localizer *i18n.Localizer
	cache     FeatureCache
	logger    *slog.Logger
	publisher audit.Publisher
	metrics   *metrics.Metrics

	// resetMu serializes ResetToEditionDefaults per tenant. Reset is a
	// full replace and would lose concurrent per-feature upserts without
	// mutual exclusion.
	resetMu sync.Map // id.TenantID -> *sync.Mutex
}

// FeaturesOption configures a Features service.
type FeaturesOption func(f *Features)

func WithFeatureCache(cache FeatureCache) FeaturesOption {
	return func(f *Features) { f.cache = cache }
}

func WithFeaturesLogger(logger *slog.Logger) FeaturesOption {
	return func(f *Features) { f.logger = logger }
}

func WithFeaturesAuditPublisher(publisher audit.Publisher) FeaturesOption {
	return func(f *Features) { f.publisher = publisher }
}

func WithFeaturesMetrics(m *metrics.Metrics) FeaturesOption {
	return func(f *Features) { f.metrics = m }
}

// NewFeatures constructs the feature resolver.
func NewFeatures(tenants TenantStore, editions EditionStore, features FeatureStore, runner tx.Runner, localizer *i18n.Localizer, opts ...FeaturesOption) *Features {
	f := &Features{
		tenants:   tenants,
		editions:  editions,
		features:  features,
		runner:    runner,
		localizer: localizer,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// EffectiveFeatures returns one value per feature name present in the
// edition defaults or the tenant overrides. An override masks its default;
// overrides whose names the edition no longer defines are still included.
// Pruning them would silently change observable entitlement, so the union
// stays inclusive.
func (f *Features) EffectiveFeatures(ctx context.Context, tenantID id.TenantID) (map[string]string, error) {
	start := time.Now()
	defer f.observeResolve(start)

	_, editionID, err := f.tenantWithEdition(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if cached, ok, err := f.cache.Get(ctx, tenantID); err == nil && ok {
			f.countCache(true)
			return cached, nil
		}
		f.countCache(false)
	}

	var defaults, overrides []models.FeatureValue
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		defaults, err = f.features.EditionDefaults(gctx, editionID)
		return err
	})
	g.Go(func() error {
		var err error
		overrides, err = f.features.TenantOverrides(gctx, tenantID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load feature values")
	}

	effective := models.FeatureMap(defaults)
	for name, value := range models.FeatureMap(overrides) {
		effective[name] = value
	}

	if f.cache != nil {
		_ = f.cache.Set(ctx, tenantID, effective)
	}
	return effective, nil
}

// SetFeatureValues upserts one override record per pair. Names are not
// validated against the current edition: overrides for unrecognized
// features are accepted under the same inclusive policy resolution uses.
// Writes are independent; a failure partway leaves prior writes in place.
func (f *Features) SetFeatureValues(ctx context.Context, tenantID id.TenantID, values []models.FeatureValue) error {
	if _, _, err := f.tenantWithEdition(ctx, tenantID); err != nil {
		return err
	}

	for _, value := range values {
		if err := f.features.UpsertTenantOverride(ctx, tenantID, value); err != nil {
			f.invalidate(ctx, tenantID)
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set feature value "+value.Name)
		}
	}

	f.invalidate(ctx, tenantID)
	logAudit(ctx, f.logger, f.publisher, audit.EventFeaturesOverridden, tenantID.String(),
		"feature_count", len(values))
	return nil
}

// ResetToEditionDefaults replaces the tenant's entire override set with
// exactly the edition's defaults. Overrides for features outside the
// edition are deliberately discarded. Idempotent.
func (f *Features) ResetToEditionDefaults(ctx context.Context, tenantID id.TenantID) error {
	_, editionID, err := f.tenantWithEdition(ctx, tenantID)
	if err != nil {
		return err
	}

	mu := f.tenantMutex(tenantID)
	mu.Lock()
	defer mu.Unlock()

	defaults, err := f.features.EditionDefaults(ctx, editionID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load edition defaults")
	}

	err = f.runner.Execute(ctx, func(ctx context.Context) error {
		return f.features.ReplaceTenantOverrides(ctx, tenantID, defaults)
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset feature values")
	}

	f.invalidate(ctx, tenantID)
	logAudit(ctx, f.logger, f.publisher, audit.EventFeaturesReset, tenantID.String())
	return nil
}

// tenantWithEdition loads the tenant and enforces the edition guard:
// feature operations against a tenant with no edition are a user-facing
// domain condition, not a system fault and never a silent empty set.
func (f *Features) tenantWithEdition(ctx context.Context, tenantID id.TenantID) (*models.Tenant, id.EditionID, error) {
	tenant, err := f.tenants.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, id.EditionID{}, dErrors.New(dErrors.CodeNotFound, "tenant not found")
		}
		return nil, id.EditionID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tenant")
	}
	if !tenant.HasEdition() {
		return nil, id.EditionID{}, dErrors.NewWithKey(dErrors.CodeDomainRule,
			i18n.KeyNoEditionIsSetForTenant,
			f.localizer.L(i18n.KeyNoEditionIsSetForTenant))
	}
	return tenant, *tenant.EditionID, nil
}

func (f *Features) tenantMutex(tenantID id.TenantID) *sync.Mutex {
	mu, _ := f.resetMu.LoadOrStore(tenantID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (f *Features) invalidate(ctx context.Context, tenantID id.TenantID) {
	if f.cache != nil {
		_ = f.cache.Invalidate(ctx, tenantID)
	}
}

func (f *Features) observeResolve(start time.Time) {
	if f.metrics != nil {
		f.metrics.ObserveResolve(start)
	}
}

func (f *Features) countCache(hit bool) {
	if f.metrics == nil {
		return
	}
	if hit {
		f.metrics.FeatureCacheHits.Inc()
	} else {
		f.metrics.FeatureCacheMisses.Inc()
	}
}
